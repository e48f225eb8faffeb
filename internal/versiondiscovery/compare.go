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

// Package versiondiscovery implements discovering and ordering a Data
// Source's external version labels.
package versiondiscovery

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Ordering selects how two external version labels are compared.
// Lexicographic YYYY_MM is the default for every in-tree source plugin;
// Semver is available for sources whose upstream actually publishes
// semantic versions.
type Ordering string

const (
	// OrderingLexicographic compares labels as plain strings. It is correct
	// for zero-padded YYYY_MM-style labels ("2024_03" < "2024_11") and is
	// the default for every source plugin shipped in this tree.
	OrderingLexicographic Ordering = "lexicographic"

	// OrderingSemver compares labels as semantic versions via
	// golang.org/x/mod/semver, for sources whose external_version is a
	// semver string (e.g. "v1.12.0").
	OrderingSemver Ordering = "semver"
)

// Compare returns -1, 0, or 1 as a compares before, equal to, or after b,
// under the given ordering. Semver comparison canonicalizes missing "v"
// prefixes before delegating to golang.org/x/mod/semver, the same
// normalization Chromium milestone strings need before comparison.
func Compare(ordering Ordering, a, b string) int {
	switch ordering {
	case OrderingSemver:
		return semver.Compare(normalizeSemver(a), normalizeSemver(b))
	default:
		return strings.Compare(a, b)
	}
}

func normalizeSemver(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}

	return "v" + v
}
