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

// Package checkpoint persists per-item completion records so that a
// re-run of the same workflow skips items that already reached the
// bundler. State lives under <root>/<workflow>/<collection>.csv, one
// append-only log per collection, rewritten atomically on flush.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stacflow/stacflow/pkg/errors"
)

// DefaultFlushThreshold is the number of buffered records that triggers
// an automatic flush.
const DefaultFlushThreshold = 100

const fileExt = ".csv"

// Manager tracks item completion for one workflow across all of its
// collections. A single Manager is shared by every pipeline of a matrix
// run; records are keyed by (collection_id, item_id) so sibling
// pipelines that target different collections never collide.
//
// IsCompleted reads an atomic snapshot of the completion set and never
// waits on flush I/O. MarkCompleted, MarkFailed and Flush serialize on
// an internal lock; the collection index has its own read-write lock so
// lookups proceed while a flush is writing to disk.
type Manager struct {
	dir       string
	threshold int

	// mu serializes record buffering and flush I/O.
	mu sync.Mutex

	// logsMu guards the logs map only, never held across I/O.
	logsMu sync.RWMutex
	logs   map[string]*collectionLog
}

// collectionLog holds one collection's on-disk rows plus the records
// buffered since the last flush.
type collectionLog struct {
	path      string
	persisted []Record
	pending   []Record
	completed atomic.Pointer[map[string]struct{}]
}

// NewManager opens the checkpoint state for the named workflow under
// root, loading every existing collection log into memory. A corrupt or
// unreadable log is fatal: resuming against unknown state could
// reprocess or skip the wrong items.
func NewManager(root, workflow string) (*Manager, error) {
	dir := filepath.Join(root, workflow)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &errors.ConfigError{
			Key:    "checkpoint_root",
			Reason: fmt.Sprintf("failed to create checkpoint directory %s", dir),
			Cause:  err,
		}
	}

	m := &Manager{
		dir:       dir,
		threshold: DefaultFlushThreshold,
		logs:      make(map[string]*collectionLog),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &errors.ConfigError{
			Key:    "checkpoint_root",
			Reason: fmt.Sprintf("failed to list checkpoint directory %s", dir),
			Cause:  err,
		}
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		collection := strings.TrimSuffix(entry.Name(), fileExt)
		if err := m.loadCollection(collection); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// WithFlushThreshold overrides the buffered-record count that triggers
// an automatic flush. Zero or negative disables automatic flushing;
// records are then persisted only on Flush or Close.
func (m *Manager) WithFlushThreshold(n int) *Manager {
	m.threshold = n
	return m
}

func (m *Manager) loadCollection(collection string) error {
	path := filepath.Join(m.dir, collection+fileExt)

	log := &collectionLog{path: path}
	completed := make(map[string]struct{})

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return &errors.ConfigError{
				Key:    "checkpoint",
				Reason: fmt.Sprintf("failed to open checkpoint file %s", path),
				Cause:  err,
			}
		}
	} else {
		defer f.Close()
		records, err := readRecords(f)
		if err != nil {
			return &errors.ConfigError{
				Key:    "checkpoint",
				Reason: fmt.Sprintf("corrupt checkpoint file %s", path),
				Cause:  err,
			}
		}
		log.persisted = records
		for _, r := range records {
			if r.Completed {
				completed[r.ItemID] = struct{}{}
			}
		}
	}

	log.completed.Store(&completed)
	m.logs[collection] = log
	return nil
}

// log returns the collection's log, creating an empty one on first use.
// Collections that appear for the first time at run time have no file
// yet, so creation cannot hit a corrupt log.
func (m *Manager) log(collection string) *collectionLog {
	m.logsMu.RLock()
	l, ok := m.logs[collection]
	m.logsMu.RUnlock()
	if ok {
		return l
	}

	m.logsMu.Lock()
	defer m.logsMu.Unlock()
	if l, ok := m.logs[collection]; ok {
		return l
	}
	l = &collectionLog{path: filepath.Join(m.dir, collection+fileExt)}
	empty := make(map[string]struct{})
	l.completed.Store(&empty)
	m.logs[collection] = l
	return l
}

// IsCompleted reports whether the item completed the pipeline in this
// run or a previous one. Safe for concurrent use and never blocked by
// an in-progress flush.
func (m *Manager) IsCompleted(collection, itemID string) bool {
	set := m.log(collection).completed.Load()
	_, ok := (*set)[itemID]
	return ok
}

// MarkCompleted records that the item passed the bundler. The
// completion set is updated immediately so in-run IsCompleted checks
// see it before any flush. Returns an IOError if the write crossed the
// flush threshold and persisting failed.
func (m *Manager) MarkCompleted(collection, itemID, outputPath string) error {
	l := m.log(collection)

	m.mu.Lock()
	defer m.mu.Unlock()

	l.pending = append(l.pending, Record{
		ItemID:       itemID,
		CollectionID: collection,
		OutputPath:   outputPath,
		Completed:    true,
		Timestamp:    time.Now(),
	})

	// Copy-on-write so concurrent IsCompleted readers never observe a
	// map mid-mutation.
	old := l.completed.Load()
	next := make(map[string]struct{}, len(*old)+1)
	for id := range *old {
		next[id] = struct{}{}
	}
	next[itemID] = struct{}{}
	l.completed.Store(&next)

	return m.maybeFlushLocked(l)
}

// MarkFailed records a failed item for debugging. The item stays out of
// the completion set and is retried on the next run.
func (m *Manager) MarkFailed(collection, itemID, errMsg string) error {
	l := m.log(collection)

	m.mu.Lock()
	defer m.mu.Unlock()

	l.pending = append(l.pending, Record{
		ItemID:       itemID,
		CollectionID: collection,
		Completed:    false,
		Timestamp:    time.Now(),
		Error:        errMsg,
	})

	return m.maybeFlushLocked(l)
}

func (m *Manager) maybeFlushLocked(l *collectionLog) error {
	if m.threshold <= 0 || len(l.pending) < m.threshold {
		return nil
	}
	return m.flushLogLocked(l)
}

// Flush persists all buffered records. On failure the previous on-disk
// file is left intact and the buffered records remain pending.
func (m *Manager) Flush() error {
	m.logsMu.RLock()
	logs := make([]*collectionLog, 0, len(m.logs))
	for _, l := range m.logs {
		logs = append(logs, l)
	}
	m.logsMu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range logs {
		if err := m.flushLogLocked(l); err != nil {
			return err
		}
	}
	return nil
}

// flushLogLocked rewrites the collection file as persisted rows plus
// pending rows, via a temp sibling and an atomic rename. A crash at any
// point leaves either the old or the new complete file.
func (m *Manager) flushLogLocked(l *collectionLog) error {
	if len(l.pending) == 0 {
		return nil
	}

	all := make([]Record, 0, len(l.persisted)+len(l.pending))
	all = append(all, l.persisted...)
	all = append(all, l.pending...)

	tmpPath := l.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return &errors.IOError{Op: "flush", Path: l.path, Cause: err}
	}

	if err := writeRecords(f, all); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return &errors.IOError{Op: "flush", Path: l.path, Cause: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return &errors.IOError{Op: "flush", Path: l.path, Cause: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return &errors.IOError{Op: "flush", Path: l.path, Cause: err}
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return &errors.IOError{Op: "flush", Path: l.path, Cause: err}
	}

	l.persisted = all
	l.pending = nil
	return nil
}

// Close flushes any buffered records.
func (m *Manager) Close() error {
	return m.Flush()
}
