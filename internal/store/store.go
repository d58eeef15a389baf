// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store persists run history in a local SQLite database so
// that past workflow executions can be inspected after the fact.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

// Store is a SQLite-backed run-history store. It implements
// pipeline.RunRecorder.
type Store struct {
	db *sql.DB
}

// Run is one recorded pipeline run.
type Run struct {
	ID             int64
	RunID          string
	Workflow       string
	MatrixEntry    map[string]any
	Status         string
	ItemsProcessed int
	FailureCount   int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Open opens (or creates) the run-history database at path and runs
// migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, &errors.ConfigError{Key: "history_db", Reason: "database path is required"}
	}

	// WAL mode for concurrent matrix writers.
	connStr := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to connect to database %s", path)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		workflow TEXT NOT NULL,
		matrix_entry_json TEXT,
		status TEXT NOT NULL,
		items_processed INTEGER NOT NULL DEFAULT 0,
		failure_count INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	index := `CREATE INDEX IF NOT EXISTS idx_runs_workflow ON runs(workflow, started_at)`
	_, err := s.db.ExecContext(ctx, index)
	return err
}

// RecordRun implements pipeline.RunRecorder.
func (s *Store) RecordRun(ctx context.Context, rec pipeline.RunRecord) error {
	var matrixJSON any
	if rec.MatrixEntry != nil {
		data, err := json.Marshal(rec.MatrixEntry)
		if err != nil {
			return errors.Wrap(err, "failed to encode matrix entry")
		}
		matrixJSON = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, workflow, matrix_entry_json, status, items_processed, failure_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.Workflow,
		matrixJSON,
		rec.Status,
		rec.ItemsProcessed,
		rec.FailureCount,
		rec.StartedAt.UTC().Format(time.RFC3339),
		rec.FinishedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrap(err, "failed to record run")
	}
	return nil
}

// ListRuns returns the most recent runs for a workflow, newest first.
func (s *Store) ListRuns(ctx context.Context, workflow string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, workflow, matrix_entry_json, status, items_processed, failure_count, started_at, finished_at
		FROM runs
		WHERE workflow = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, workflow, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query runs for workflow %s", workflow)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			matrixJSON sql.NullString
			started    string
			finished   string
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Workflow, &matrixJSON, &r.Status,
			&r.ItemsProcessed, &r.FailureCount, &started, &finished); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		if matrixJSON.Valid && matrixJSON.String != "" {
			if err := json.Unmarshal([]byte(matrixJSON.String), &r.MatrixEntry); err != nil {
				return nil, errors.Wrap(err, "failed to decode matrix entry")
			}
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, errors.Wrap(err, "failed to parse started_at")
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, errors.Wrap(err, "failed to parse finished_at")
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
