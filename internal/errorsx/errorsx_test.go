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

package errorsx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"wrapped transient error", fmt.Errorf("dbcore: %w: boom", ErrTransient), true},
		{"bare transient sentinel", ErrTransient, true},
		{"unrelated error", errors.New("boom"), false},
		{"other sentinel", ErrNotFound, false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTransient(tt.err))
		})
	}
}

func TestClassifyKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"integrity mismatch", fmt.Errorf("download: %w", ErrIntegrityMismatch), KindIntegrityMismatch},
		{"record error threshold", fmt.Errorf("parse: %w", ErrRecordErrorThreshold), KindParserRecordError},
		{"foreign reference missing", fmt.Errorf("xref: %w", ErrForeignReferenceMissing), KindForeignRefMissing},
		{"stale claim", fmt.Errorf("workqueue: %w", ErrStaleClaim), KindWorkUnitStall},
		{"already exists", fmt.Errorf("jobstore: %w", ErrAlreadyExists), KindDuplicateIngest},
		{"retries exhausted", fmt.Errorf("workqueue: %w", ErrRetriesExhausted), KindRetriesExhausted},
		{"transient", fmt.Errorf("dbcore: %w", ErrTransient), KindTransientIO},
		{"unclassified falls back to domain constraint", errors.New("constraint violation"), KindDomainConstraint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyKind(tt.err))
		})
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrAlreadyExists, ErrStaleState, ErrStaleClaim, ErrNoWorkAvailable,
		ErrIntegrityMismatch, ErrRetriesExhausted, ErrForeignReferenceMissing,
		ErrNotFound, ErrTransient,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "sentinel %d unexpectedly matches sentinel %d", i, j)
		}
	}
}
