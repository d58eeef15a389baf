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

package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesTypedCause(t *testing.T) {
	cause := &IOError{Op: "flush", Path: "runs.csv"}
	err := Wrap(cause, "persisting checkpoint")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persisting checkpoint")

	// The typed cause stays reachable through the wrap.
	var ioErr *IOError
	require.True(t, As(err, &ioErr))
	assert.Equal(t, KindIO, KindOf(err))
	assert.True(t, IsFatal(err))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "nothing happened"))
	assert.Nil(t, Wrapf(nil, "nothing happened to %s", "x"))
}

func TestWrapfFormatsContext(t *testing.T) {
	cause := &DataError{StepID: "up", ItemID: "i1", Message: "bad field"}
	err := Wrapf(cause, "processing item %s", "i1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processing item i1")
	assert.Equal(t, KindData, KindOf(err))
	assert.False(t, IsFatal(err))
}
