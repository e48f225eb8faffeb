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

package versiondiscovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareLexicographic(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"equal", "2024_03", "2024_03", 0},
		{"earlier month sorts before", "2024_03", "2024_11", -1},
		{"later month sorts after", "2024_11", "2024_03", 1},
		{"zero padding keeps order stable", "2024_09", "2024_10", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(OrderingLexicographic, tt.a, tt.b))
		})
	}
}

func TestCompareSemver(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"equal with v prefix", "v1.12.0", "v1.12.0", 0},
		{"equal without v prefix", "1.12.0", "1.12.0", 0},
		{"minor bump sorts after", "1.12.0", "1.11.0", 1},
		{"mixed prefix still compares", "v1.2.0", "1.10.0", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(OrderingSemver, tt.a, tt.b))
		})
	}
}

func TestCompareDefaultOrderingIsLexicographic(t *testing.T) {
	assert.Equal(t, Compare(OrderingLexicographic, "a", "b"), Compare(Ordering(""), "a", "b"))
}
