// Package db stores selection history in DuckDB.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/plat-map/internal/service"
)

// Config holds database configuration. An empty DataDir opens an
// in-memory database.
type Config struct {
	DataDir string
	DBName  string
}

// Open opens the DuckDB database and creates the schema.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		name := cfg.DBName
		if name == "" {
			name = "platmap"
		}
		dsn = filepath.Join(duckdbDir, name+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

const schema = `CREATE TABLE IF NOT EXISTS selection_events (
	at          TIMESTAMP NOT NULL,
	layer       VARCHAR NOT NULL,
	action      VARCHAR NOT NULL,
	revision    UBIGINT NOT NULL,
	feature_ids VARCHAR NOT NULL,
	properties  VARCHAR
)`

func migrate(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("creating selection_events: %w", err)
	}
	return nil
}

// SelectionLog records selection events. It implements
// service.SelectionRecorder.
type SelectionLog struct {
	db *sql.DB
}

// NewSelectionLog wraps an open database.
func NewSelectionLog(db *sql.DB) *SelectionLog {
	return &SelectionLog{db: db}
}

// RecordSelection inserts one event.
func (l *SelectionLog) RecordSelection(ctx context.Context, e service.SelectionEvent) error {
	ids, err := json.Marshal(e.FeatureIDs)
	if err != nil {
		return err
	}
	var props sql.NullString
	if len(e.Properties) > 0 {
		b, err := json.Marshal(e.Properties)
		if err != nil {
			return err
		}
		props = sql.NullString{String: string(b), Valid: true}
	}
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO selection_events (at, layer, action, revision, feature_ids, properties) VALUES (?, ?, ?, ?, ?, ?)`,
		at, e.Layer, e.Action, e.Revision, string(ids), props)
	return err
}

// Recent returns up to limit events for layer, newest first. An empty layer
// matches every layer.
func (l *SelectionLog) Recent(ctx context.Context, layer string, limit int) ([]service.SelectionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT at, layer, action, revision, feature_ids, properties
		FROM selection_events
		WHERE ? = '' OR layer = ?
		ORDER BY at DESC, revision DESC
		LIMIT ?`, layer, layer, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []service.SelectionEvent{}
	for rows.Next() {
		var (
			e     service.SelectionEvent
			ids   string
			props sql.NullString
		)
		if err := rows.Scan(&e.At, &e.Layer, &e.Action, &e.Revision, &ids, &props); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ids), &e.FeatureIDs); err != nil {
			return nil, fmt.Errorf("decoding feature ids: %w", err)
		}
		if props.Valid {
			if err := json.Unmarshal([]byte(props.String), &e.Properties); err != nil {
				return nil, fmt.Errorf("decoding properties: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
