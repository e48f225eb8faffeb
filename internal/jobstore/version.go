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

// VersionRepository manages Version, VersionFile, and DependencyEdge rows.
type VersionRepository struct {
	db *dbcore.Client
}

// NewVersionRepository constructs a VersionRepository.
func NewVersionRepository(db *dbcore.Client) *VersionRepository {
	return &VersionRepository{db: db}
}

// UpsertVersionTx upserts a Version row keyed by (entry_id, major, minor),
// the idempotence rule: rerunning a failed batch yields the same
// row id. Versions have no patch component; the schema's CHECK keeps major
// and minor non-negative. payload is
// persisted so the next ingestion's versioning-rule comparison has
// something to diff against.
func (r *VersionRepository) UpsertVersionTx(
	ctx context.Context, tx pgx.Tx, entryID int64, major, minor int, externalVersion string, payload model.RecordPayload,
) (int64, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("jobstore: marshal version payload: %w", err)
	}

	const query = `
		INSERT INTO versions (entry_id, major, minor, external_version, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entry_id, major, minor) DO UPDATE SET
			external_version = EXCLUDED.external_version, payload = EXCLUDED.payload
		RETURNING id
	`

	var id int64
	if err := tx.QueryRow(ctx, query, entryID, major, minor, externalVersion, payloadJSON).Scan(&id); err != nil {
		return 0, fmt.Errorf("jobstore: upsert version (entry %d, %d.%d): %w", entryID, major, minor, dbcore.ClassifyError(err))
	}

	return id, nil
}

// LatestVersion returns the highest (major, minor) Version for an entry, or
// errorsx.ErrNotFound (wrapped) if the entry has never been ingested. Used
// by the Store Stage's internal versioning rule.
func (r *VersionRepository) LatestVersion(ctx context.Context, entryID int64) (*model.Version, error) {
	const query = `
		SELECT id, entry_id, major, minor, external_version, payload, created_at
		FROM versions
		WHERE entry_id = $1
		ORDER BY major DESC, minor DESC
		LIMIT 1
	`

	v := &model.Version{}
	var payloadJSON []byte
	if err := r.db.QueryRow(ctx, query, entryID).
		Scan(&v.ID, &v.EntryID, &v.Major, &v.Minor, &v.ExternalVersion, &payloadJSON, &v.CreatedAt); err != nil {
		return nil, fmt.Errorf("jobstore: latest version for entry %d: %w", entryID, dbcore.ClassifyError(err))
	}
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &v.Payload); err != nil {
			return nil, fmt.Errorf("jobstore: unmarshal version payload: %w", err)
		}
	}

	return v, nil
}

// ExistsWithExternalVersion reports whether any Version row exists for the
// organization with the given external label, used by Version Discovery's
// existsInStore.
func (r *VersionRepository) ExistsWithExternalVersion(ctx context.Context, organizationID int64, externalVersion string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM versions v
			JOIN registry_entries e ON e.id = v.entry_id
			WHERE e.organization_id = $1 AND v.external_version = $2
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, organizationID, externalVersion).Scan(&exists); err != nil {
		return false, fmt.Errorf("jobstore: exists with external version %q: %w", externalVersion, dbcore.ClassifyError(err))
	}

	return exists, nil
}

// InsertVersionFileTx inserts a Version File row, unique per (version,
// format).
func (r *VersionRepository) InsertVersionFileTx(ctx context.Context, tx pgx.Tx, vf *model.VersionFile) error {
	const query = `
		INSERT INTO version_files (version_id, format, object_key, size, checksum)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (version_id, format) DO UPDATE SET
			object_key = EXCLUDED.object_key, size = EXCLUDED.size, checksum = EXCLUDED.checksum
		RETURNING id
	`

	if err := tx.QueryRow(ctx, query, vf.VersionID, vf.Format, vf.ObjectKey, vf.Size, vf.Checksum).Scan(&vf.ID); err != nil {
		return fmt.Errorf("jobstore: insert version file (version %d, format %s): %w", vf.VersionID, vf.Format, dbcore.ClassifyError(err))
	}

	return nil
}

// InsertDependencyEdgeTx inserts a version-pinned Dependency Edge within the
// Store Stage's transaction.
func (r *VersionRepository) InsertDependencyEdgeTx(ctx context.Context, tx pgx.Tx, e model.DependencyEdge) error {
	const query = `
		INSERT INTO dependencies (from_version_id, to_version_id, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (from_version_id, to_version_id, kind) DO NOTHING
	`

	if _, err := tx.Exec(ctx, query, e.FromVersionID, e.ToVersionID, e.Kind); err != nil {
		return fmt.Errorf("jobstore: insert dependency edge %d->%d: %w", e.FromVersionID, e.ToVersionID, dbcore.ClassifyError(err))
	}

	return nil
}

// DependentsOf returns the from_version_ids of edges pointing at
// toVersionID, used by the cascade-bump batch job to find Versions that
// need a follow-up bump when a foreign Version changes.
func (r *VersionRepository) DependentsOf(ctx context.Context, toVersionID int64) ([]int64, error) {
	const query = `SELECT from_version_id FROM dependencies WHERE to_version_id = $1`

	rows, err := r.db.Query(ctx, query, toVersionID)
	if err != nil {
		return nil, fmt.Errorf("jobstore: dependents of version %d: %w", toVersionID, dbcore.ClassifyError(err))
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("jobstore: scan dependent row: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
