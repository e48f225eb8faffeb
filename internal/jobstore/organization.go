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

// Package jobstore is the Job Store: typed repositories over the
// relational schema in internal/migrations, one file per entity, following
// the lib/gcpspanner layout (one file per table: web_features.go,
// baseline_status.go, browser_releases.go, ...).
package jobstore

import (
	"context"
	"fmt"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/model"
)

// OrganizationRepository manages the Organization entity: a
// namespace for one upstream source, immutable after creation except for
// metadata.
type OrganizationRepository struct {
	db *dbcore.Client
}

// NewOrganizationRepository constructs an OrganizationRepository.
func NewOrganizationRepository(db *dbcore.Client) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create inserts a new Organization.
func (r *OrganizationRepository) Create(ctx context.Context, org *model.Organization) error {
	const query = `
		INSERT INTO organizations (slug, name, license, citation)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, org.Slug, org.Name, org.License, org.Citation).
		Scan(&org.ID, &org.CreatedAt)
	if err != nil {
		return fmt.Errorf("jobstore: create organization %q: %w", org.Slug, dbcore.ClassifyError(err))
	}

	return nil
}

// GetBySlug looks up an Organization by its unique slug.
func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	const query = `
		SELECT id, slug, name, license, citation, created_at
		FROM organizations
		WHERE slug = $1
	`

	org := &model.Organization{}
	err := r.db.QueryRow(ctx, query, slug).
		Scan(&org.ID, &org.Slug, &org.Name, &org.License, &org.Citation, &org.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("jobstore: get organization %q: %w", slug, dbcore.ClassifyError(err))
	}

	return org, nil
}

// GetByID looks up an Organization by primary key, the lookup a Work Unit
// dispatcher needs to recover an org's slug from a Job's organization_id.
func (r *OrganizationRepository) GetByID(ctx context.Context, id int64) (*model.Organization, error) {
	const query = `
		SELECT id, slug, name, license, citation, created_at
		FROM organizations
		WHERE id = $1
	`

	org := &model.Organization{}
	err := r.db.QueryRow(ctx, query, id).
		Scan(&org.ID, &org.Slug, &org.Name, &org.License, &org.Citation, &org.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("jobstore: get organization %d: %w", id, dbcore.ClassifyError(err))
	}

	return org, nil
}

// UpdateMetadata updates the mutable license/citation fields of an
// Organization. Every other field is immutable after creation.
func (r *OrganizationRepository) UpdateMetadata(ctx context.Context, id int64, license, citation string) error {
	const query = `UPDATE organizations SET license = $1, citation = $2 WHERE id = $3`

	tag, err := r.db.Exec(ctx, query, license, citation, id)
	if err != nil {
		return fmt.Errorf("jobstore: update organization %d: %w", id, dbcore.ClassifyError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("jobstore: update organization %d: %w", id, errNotFoundSentinel)
	}

	return nil
}
