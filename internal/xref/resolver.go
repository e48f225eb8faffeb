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

// Package xref implements the Cross-Reference Resolver: batch
// resolution of a secondary source's foreign identifiers to the current
// Version of the Registry Entry that identifier names, and the cascade
// pass that finds local Versions needing a follow-up bump when a foreign
// Version changes.
package xref

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/refdata-org/ingestcore/internal/dbcore"
)

// Target is what one resolved identifier maps to: the Data Source owning
// the entry and its current Version id.
type Target struct {
	DataSourceID      int64
	CurrentVersionID  int64
}

const cacheSize = 4096

// Resolver implements resolveBatch backed by an in-process
// cache keyed by (foreignType, identifier), following
// lib/gcpspanner query-cache pattern of a bounded LRU guarding a single
// batched round trip.
type Resolver struct {
	db    *dbcore.Client
	cache *lru.Cache[string, Target]
}

// NewResolver constructs a Resolver with a cacheSize-entry LRU cache.
func NewResolver(db *dbcore.Client) (*Resolver, error) {
	cache, err := lru.New[string, Target](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("xref: create cache: %w", err)
	}

	return &Resolver{db: db, cache: cache}, nil
}

// ResolveBatch resolves identifiers of foreignType to their current
// Version, per : "one SQL statement with IN/ANY binding, backed by
// an in-process cache keyed by identifier. Missing identifiers are
// returned absent; callers choose whether to skip or hard-fail."
func (r *Resolver) ResolveBatch(ctx context.Context, foreignType string, identifiers []string) (map[string]Target, error) {
	out := make(map[string]Target, len(identifiers))

	var misses []string
	for _, id := range identifiers {
		if t, ok := r.cache.Get(cacheKey(foreignType, id)); ok {
			out[id] = t
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return out, nil
	}

	resolved, err := r.queryBatch(ctx, foreignType, misses)
	if err != nil {
		return nil, err
	}

	for id, t := range resolved {
		r.cache.Add(cacheKey(foreignType, id), t)
		out[id] = t
	}

	return out, nil
}

// queryBatch issues a single IN-bound lookup: the foreign slug joins
// Registry Entry -> Data Source (type filter) -> the entry's highest
// (major, minor) Version.
func (r *Resolver) queryBatch(ctx context.Context, foreignType string, identifiers []string) (map[string]Target, error) {
	const query = `
		SELECT DISTINCT ON (e.slug)
			e.slug, ds.entry_id, v.id
		FROM registry_entries e
		JOIN data_sources ds ON ds.entry_id = e.id
		JOIN versions v ON v.entry_id = e.id
		WHERE ds.type = $1 AND e.slug = ANY($2)
		ORDER BY e.slug, v.major DESC, v.minor DESC
	`

	rows, err := r.db.Query(ctx, query, foreignType, identifiers)
	if err != nil {
		return nil, fmt.Errorf("xref: resolve batch (%s, %d ids): %w", foreignType, len(identifiers), dbcore.ClassifyError(err))
	}
	defer rows.Close()

	out := make(map[string]Target, len(identifiers))
	for rows.Next() {
		var slug string
		var t Target
		if err := rows.Scan(&slug, &t.DataSourceID, &t.CurrentVersionID); err != nil {
			return nil, fmt.Errorf("xref: scan resolved reference: %w", err)
		}
		out[slug] = t
	}

	return out, rows.Err()
}

// Invalidate drops a resolved identifier from the cache so the next
// ResolveBatch queries its current Version id again. Nothing in this
// repository calls it, including the cascade pass; a cached entry
// otherwise stays until the LRU evicts it.
func (r *Resolver) Invalidate(foreignType, identifier string) {
	r.cache.Remove(cacheKey(foreignType, identifier))
}

func cacheKey(foreignType, identifier string) string {
	return foreignType + ":" + identifier
}
