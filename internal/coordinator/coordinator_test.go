// Copyright 2026 The ingestcore Authors
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

package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refdata-org/ingestcore/internal/model"
)

func TestBuildUnitsSplitsIntoContiguousRanges(t *testing.T) {
	units := buildUnits(42, model.UnitParse, 2500, 1000)

	require.Len(t, units, 3)

	assert.Equal(t, int64(42), units[0].JobID)
	assert.Equal(t, model.UnitParse, units[0].UnitType)
	assert.Equal(t, int64(0), units[0].BatchNumber)
	assert.Equal(t, int64(0), units[0].StartOffset)
	assert.Equal(t, int64(1000), units[0].EndOffset)

	assert.Equal(t, int64(1), units[1].BatchNumber)
	assert.Equal(t, int64(1000), units[1].StartOffset)
	assert.Equal(t, int64(2000), units[1].EndOffset)

	assert.Equal(t, int64(2), units[2].BatchNumber)
	assert.Equal(t, int64(2000), units[2].StartOffset)
	assert.Equal(t, int64(2500), units[2].EndOffset)
}

func TestBuildUnitsZeroTotalReturnsNil(t *testing.T) {
	assert.Nil(t, buildUnits(42, model.UnitParse, 0, 1000))
}

func TestBuildUnitsExactMultipleOfBatchSize(t *testing.T) {
	units := buildUnits(1, model.UnitStore, 2000, 1000)
	require.Len(t, units, 2)
	assert.Equal(t, int64(2000), units[1].EndOffset)
}

func TestPastGrace(t *testing.T) {
	c := &Coordinator{FailureGrace: 15 * time.Minute}

	recent := &model.Job{UpdatedAt: time.Now().Add(-5 * time.Minute)}
	stale := &model.Job{UpdatedAt: time.Now().Add(-20 * time.Minute)}

	assert.False(t, c.pastGrace(recent))
	assert.True(t, c.pastGrace(stale))
}
