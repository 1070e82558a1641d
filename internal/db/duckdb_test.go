package db

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-map/internal/service"
)

func TestSelectionLog(t *testing.T) {
	conn, err := Open(Config{DataDir: t.TempDir(), DBName: "test"})
	require.NoError(t, err)
	defer conn.Close()

	log := NewSelectionLog(conn)
	ctx := context.Background()
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, log.RecordSelection(ctx, service.SelectionEvent{
		Layer:      "main",
		Action:     "selected",
		FeatureIDs: []string{"a", "b"},
		Properties: []geojson.Properties{{"id": "a"}, {"id": "b"}},
		Revision:   1,
		At:         t0,
	}))
	require.NoError(t, log.RecordSelection(ctx, service.SelectionEvent{
		Layer:      "main",
		Action:     "cleared",
		FeatureIDs: []string{"a", "b"},
		Revision:   2,
		At:         t0.Add(time.Second),
	}))
	require.NoError(t, log.RecordSelection(ctx, service.SelectionEvent{
		Layer:      "other",
		Action:     "selected",
		FeatureIDs: []string{"c"},
		Revision:   1,
		At:         t0.Add(2 * time.Second),
	}))

	events, err := log.Recent(ctx, "main", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "cleared", events[0].Action)
	assert.Empty(t, events[0].Properties)
	assert.Equal(t, "selected", events[1].Action)
	assert.Equal(t, []string{"a", "b"}, events[1].FeatureIDs)
	assert.Equal(t, "b", events[1].Properties[1]["id"])
	assert.Equal(t, uint64(1), events[1].Revision)

	all, err := log.Recent(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "other", all[0].Layer)
}
