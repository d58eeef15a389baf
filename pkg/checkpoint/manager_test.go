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

package checkpoint

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacflow/stacflow/pkg/errors"
)

func TestMarkCompletedVisibleBeforeFlush(t *testing.T) {
	m, err := NewManager(t.TempDir(), "w")
	require.NoError(t, err)

	assert.False(t, m.IsCompleted("C1", "a"))
	require.NoError(t, m.MarkCompleted("C1", "a", "out/a.json"))
	assert.True(t, m.IsCompleted("C1", "a"))

	// No flush yet, so nothing on disk.
	_, statErr := os.Stat(filepath.Join(m.dir, "C1.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestResumeAcrossManagers(t *testing.T) {
	root := t.TempDir()

	m1, err := NewManager(root, "w")
	require.NoError(t, err)
	require.NoError(t, m1.MarkCompleted("C1", "a", ""))
	require.NoError(t, m1.MarkCompleted("C1", "b", "out/b.json"))
	require.NoError(t, m1.MarkFailed("C1", "c", "boom"))
	require.NoError(t, m1.Close())

	m2, err := NewManager(root, "w")
	require.NoError(t, err)
	assert.True(t, m2.IsCompleted("C1", "a"))
	assert.True(t, m2.IsCompleted("C1", "b"))

	// Failed records never cause skipping.
	assert.False(t, m2.IsCompleted("C1", "c"))
}

func TestCollectionsAreIndependent(t *testing.T) {
	m, err := NewManager(t.TempDir(), "w")
	require.NoError(t, err)

	require.NoError(t, m.MarkCompleted("A", "i1", ""))
	assert.True(t, m.IsCompleted("A", "i1"))
	assert.False(t, m.IsCompleted("B", "i1"))

	require.NoError(t, m.Flush())
	_, err = os.Stat(filepath.Join(m.dir, "A.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(m.dir, "B.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestFlushThresholdTriggersWrite(t *testing.T) {
	m, err := NewManager(t.TempDir(), "w")
	require.NoError(t, err)
	m.WithFlushThreshold(2)

	require.NoError(t, m.MarkCompleted("C1", "a", ""))
	_, statErr := os.Stat(filepath.Join(m.dir, "C1.csv"))
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, m.MarkCompleted("C1", "b", ""))
	_, statErr = os.Stat(filepath.Join(m.dir, "C1.csv"))
	assert.NoError(t, statErr)

	// No temp sibling left behind.
	_, statErr = os.Stat(filepath.Join(m.dir, "C1.csv.tmp"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFlushAppendsToExistingRows(t *testing.T) {
	root := t.TempDir()

	m1, err := NewManager(root, "w")
	require.NoError(t, err)
	require.NoError(t, m1.MarkCompleted("C1", "a", ""))
	require.NoError(t, m1.Close())

	m2, err := NewManager(root, "w")
	require.NoError(t, err)
	require.NoError(t, m2.MarkCompleted("C1", "b", ""))
	require.NoError(t, m2.Close())

	f, err := os.Open(filepath.Join(root, "w", "C1.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := readRecords(f)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ItemID)
	assert.Equal(t, "b", records[1].ItemID)
	assert.Equal(t, "C1", records[1].CollectionID)
	assert.True(t, records[1].Completed)
}

func TestCorruptFileIsFatal(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "w")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "C1.csv"), []byte("not,a,checkpoint\n1,2,3\n"), 0644))

	_, err := NewManager(root, "w")
	var configErr *errors.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestRecordRoundTripPreservesFields(t *testing.T) {
	root := t.TempDir()

	m1, err := NewManager(root, "w")
	require.NoError(t, err)
	require.NoError(t, m1.MarkFailed("C1", "x", "field properties.cloud missing"))
	require.NoError(t, m1.Close())

	f, err := os.Open(filepath.Join(root, "w", "C1.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := readRecords(f)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "x", r.ItemID)
	assert.Equal(t, "C1", r.CollectionID)
	assert.False(t, r.Completed)
	assert.Equal(t, "field properties.cloud missing", r.Error)
	assert.Empty(t, r.OutputPath)
	assert.False(t, r.Timestamp.IsZero())
}

func TestUnflushedMarksAreRetriedAfterCrash(t *testing.T) {
	root := t.TempDir()

	m1, err := NewManager(root, "w")
	require.NoError(t, err)
	require.NoError(t, m1.MarkCompleted("C1", "a", ""))
	require.NoError(t, m1.MarkCompleted("C1", "b", "out/b.json"))
	// No Flush or Close: the process died with records still buffered.
	// A re-run must see the items as incomplete and process them again.

	m2, err := NewManager(root, "w")
	require.NoError(t, err)
	assert.False(t, m2.IsCompleted("C1", "a"))
	assert.False(t, m2.IsCompleted("C1", "b"))
}

func TestIsCompletedDoesNotWaitOnFlushLock(t *testing.T) {
	m, err := NewManager(t.TempDir(), "w")
	require.NoError(t, err)
	require.NoError(t, m.MarkCompleted("C1", "a", ""))

	// Hold the flush lock the way an in-progress flush would.
	m.mu.Lock()
	defer m.mu.Unlock()

	done := make(chan bool, 1)
	go func() { done <- m.IsCompleted("C1", "a") }()

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("IsCompleted blocked behind the flush lock")
	}
}

func TestConcurrentMarksFromSiblingPipelines(t *testing.T) {
	m, err := NewManager(t.TempDir(), "w")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, collection := range []string{"A", "B"} {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(c string, n int) {
				defer wg.Done()
				id := string(rune('a' + n%26))
				_ = m.MarkCompleted(c, id, "")
				m.IsCompleted(c, id)
			}(collection, i)
		}
	}
	wg.Wait()

	require.NoError(t, m.Flush())
	assert.True(t, m.IsCompleted("A", "a"))
	assert.True(t, m.IsCompleted("B", "a"))
}
