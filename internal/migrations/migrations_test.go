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

package migrations

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreOrderedAndNonEmpty(t *testing.T) {
	entries, err := sqlFiles.ReadDir("sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())

		contents, err := sqlFiles.ReadFile("sql/" + e.Name())
		require.NoError(t, err)
		assert.Contains(t, string(contents), "-- +goose Up")
	}

	assert.True(t, sort.StringsAreSorted(names), "migration files must sort in application order: %v", names)
	assert.True(t, strings.HasSuffix(names[0], ".sql"))
}
