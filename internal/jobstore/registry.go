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

package jobstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/model"
)

// RegistryRepository manages Registry Entries and their 1:1 Data Source
// rows. Both are owned by the organization, survive job deletion,
// and are written by the Store Stage under transaction.
type RegistryRepository struct {
	db *dbcore.Client
}

// NewRegistryRepository constructs a RegistryRepository.
func NewRegistryRepository(db *dbcore.Client) *RegistryRepository {
	return &RegistryRepository{db: db}
}

// UpsertEntryTx upserts a Registry Entry keyed by (organization, slug),
// returning the same row id on rerun.
func (r *RegistryRepository) UpsertEntryTx(ctx context.Context, tx pgx.Tx, organizationID int64, slug string) (int64, error) {
	const query = `
		INSERT INTO registry_entries (organization_id, slug)
		VALUES ($1, $2)
		ON CONFLICT (organization_id, slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id
	`

	var id int64
	if err := tx.QueryRow(ctx, query, organizationID, slug).Scan(&id); err != nil {
		return 0, fmt.Errorf("jobstore: upsert registry entry %q: %w", slug, dbcore.ClassifyError(err))
	}

	return id, nil
}

// GetEntryBySlug looks up a Registry Entry for read paths (e.g. the
// Cross-Reference Resolver's batch lookup joins through this table).
func (r *RegistryRepository) GetEntryBySlug(ctx context.Context, organizationID int64, slug string) (*model.RegistryEntry, error) {
	const query = `
		SELECT id, organization_id, slug, created_at
		FROM registry_entries
		WHERE organization_id = $1 AND slug = $2
	`

	e := &model.RegistryEntry{}
	if err := r.db.QueryRow(ctx, query, organizationID, slug).Scan(&e.ID, &e.OrganizationID, &e.Slug, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("jobstore: get registry entry %q: %w", slug, dbcore.ClassifyError(err))
	}

	return e, nil
}

// GetEntryByVersionID looks up the Registry Entry owning a Version, used by
// the cascade-bump batch job to find which organization and slug a
// dependent Version belongs to.
func (r *RegistryRepository) GetEntryByVersionID(ctx context.Context, versionID int64) (*model.RegistryEntry, error) {
	const query = `
		SELECT e.id, e.organization_id, e.slug, e.created_at
		FROM registry_entries e
		JOIN versions v ON v.entry_id = e.id
		WHERE v.id = $1
	`

	e := &model.RegistryEntry{}
	if err := r.db.QueryRow(ctx, query, versionID).Scan(&e.ID, &e.OrganizationID, &e.Slug, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("jobstore: get registry entry for version %d: %w", versionID, dbcore.ClassifyError(err))
	}

	return e, nil
}

// UpsertDataSourceTx upserts the type-specific Data Source row sharing
// identity with the Registry Entry.
func (r *RegistryRepository) UpsertDataSourceTx(
	ctx context.Context, tx pgx.Tx, entryID int64, sourceType model.SourceType, metadata map[string]any,
) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("jobstore: marshal data source metadata: %w", err)
	}

	const query = `
		INSERT INTO data_sources (entry_id, type, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (entry_id) DO UPDATE SET type = EXCLUDED.type, metadata = EXCLUDED.metadata
	`

	if _, err := tx.Exec(ctx, query, entryID, sourceType, metaJSON); err != nil {
		return fmt.Errorf("jobstore: upsert data source %d: %w", entryID, dbcore.ClassifyError(err))
	}

	return nil
}

// GetDataSource fetches the type discriminator and metadata for an entry.
// The Cross-Reference Resolver does not call it; it reads the data source
// id through its own join in xref.Resolver.queryBatch.
func (r *RegistryRepository) GetDataSource(ctx context.Context, entryID int64) (*model.DataSource, error) {
	const query = `SELECT entry_id, type, metadata FROM data_sources WHERE entry_id = $1`

	ds := &model.DataSource{}
	var metaJSON []byte
	if err := r.db.QueryRow(ctx, query, entryID).Scan(&ds.EntryID, &ds.Type, &metaJSON); err != nil {
		return nil, fmt.Errorf("jobstore: get data source %d: %w", entryID, dbcore.ClassifyError(err))
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &ds.Metadata); err != nil {
			return nil, fmt.Errorf("jobstore: unmarshal data source metadata: %w", err)
		}
	}

	return ds, nil
}
