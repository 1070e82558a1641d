package humastar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"layer":"main","x":12.5,"zoom":11,"y":0}`))
	require.NoError(t, err)

	assert.Equal(t, 12.5, s.Float("x"))
	assert.Equal(t, 11.0, s.Float("zoom"))
	assert.True(t, s.Has("y"))
	assert.Equal(t, 0.0, s.FloatOr("y", 5), "sent zero wins over the default")
	assert.Equal(t, 3.0, s.FloatOr("missing", 3))
	assert.Equal(t, 0.0, s.FloatOr("layer", 3), "wrong type reads as zero")
	assert.False(t, s.Has("missing"))

	_, err = (&SignalsInput{RawBody: []byte("{")}).MustParse()
	assert.Error(t, err)
}

func TestPage(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}

	p := Page(items, 2, 3)
	assert.Equal(t, []int{2, 3, 4}, p.Data)
	assert.Equal(t, 7, p.Total)
	assert.Equal(t, []string{
		`</x?offset=0&limit=3>; rel="first"`,
		`</x?offset=0&limit=3>; rel="prev"`,
		`</x?offset=5&limit=3>; rel="next"`,
		`</x?offset=6&limit=3>; rel="last"`,
	}, p.PaginationLinks("/x"))

	assert.Empty(t, Page(items, 10, 3).Data)
	assert.Len(t, Page(items, 0, 0).Data, 7)
}

func TestActionsFor(t *testing.T) {
	actions := ActionsFor("roads", []ActionDef{
		{Rel: "styles", Pattern: "/api/v1/layers/%s/styles", Method: "PUT", Title: "Patch styles"},
	})
	require.Len(t, actions, 1)
	assert.Equal(t, `</api/v1/layers/roads/styles>; rel="styles"; method="PUT"; title="Patch styles"`, actions[0].LinkHeader())
}
