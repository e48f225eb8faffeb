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
	"fmt"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/model"
)

// SyncStatusRepository manages the Sync Status entity used by the Mode
// Controller.
type SyncStatusRepository struct {
	db *dbcore.Client
}

// NewSyncStatusRepository constructs a SyncStatusRepository.
func NewSyncStatusRepository(db *dbcore.Client) *SyncStatusRepository {
	return &SyncStatusRepository{db: db}
}

// Get returns the latest successfully completed external version for
// (organization, source_type), or errorsx.ErrNotFound (wrapped) if this is
// the organization's first ingestion of that source type.
func (r *SyncStatusRepository) Get(ctx context.Context, organizationID int64, sourceType model.SourceType) (*model.SyncStatus, error) {
	const query = `
		SELECT organization_id, source_type, external_version, completed_at
		FROM sync_status
		WHERE organization_id = $1 AND source_type = $2
	`

	s := &model.SyncStatus{}
	if err := r.db.QueryRow(ctx, query, organizationID, sourceType).
		Scan(&s.OrganizationID, &s.SourceType, &s.ExternalVersion, &s.CompletedAt); err != nil {
		return nil, fmt.Errorf("jobstore: get sync status (org %d, %s): %w", organizationID, sourceType, dbcore.ClassifyError(err))
	}

	return s, nil
}

// Upsert records a newly completed external version, called by the
// Coordinator's finalizing step.
func (r *SyncStatusRepository) Upsert(ctx context.Context, organizationID int64, sourceType model.SourceType, externalVersion string) error {
	const query = `
		INSERT INTO sync_status (organization_id, source_type, external_version, completed_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (organization_id, source_type) DO UPDATE SET
			external_version = EXCLUDED.external_version, completed_at = EXCLUDED.completed_at
	`

	if _, err := r.db.Exec(ctx, query, organizationID, sourceType, externalVersion); err != nil {
		return fmt.Errorf("jobstore: upsert sync status (org %d, %s): %w", organizationID, sourceType, dbcore.ClassifyError(err))
	}

	return nil
}
