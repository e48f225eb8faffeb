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

// RawFileRepository manages the RawFile entity owned by a Job.
type RawFileRepository struct {
	db *dbcore.Client
}

// NewRawFileRepository constructs a RawFileRepository.
func NewRawFileRepository(db *dbcore.Client) *RawFileRepository {
	return &RawFileRepository{db: db}
}

// Create inserts a RawFile row in the downloading state.
func (r *RawFileRepository) Create(ctx context.Context, f *model.RawFile) error {
	const query = `
		INSERT INTO ingestion_raw_files (job_id, file_type, object_key, expected_digest, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, updated_at
	`

	err := r.db.QueryRow(ctx, query, f.JobID, f.FileType, f.ObjectKey, f.ExpectedDigest, f.Status).
		Scan(&f.ID, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("jobstore: create raw file: %w", dbcore.ClassifyError(err))
	}

	return nil
}

// GetByJobAndType implements the idempotence short-circuit from :
// "if a Raw File row with this (job, file_type) already exists in verified,
// the stage short-circuits." Returns errorsx.ErrNotFound (wrapped) if absent.
func (r *RawFileRepository) GetByJobAndType(ctx context.Context, jobID int64, fileType string) (*model.RawFile, error) {
	const query = `
		SELECT id, job_id, file_type, object_key, expected_digest, computed_digest, verified, status, updated_at
		FROM ingestion_raw_files
		WHERE job_id = $1 AND file_type = $2
	`

	f := &model.RawFile{}
	var computed, objectKey *string
	row := r.db.QueryRow(ctx, query, jobID, fileType)
	err := row.Scan(&f.ID, &f.JobID, &f.FileType, &objectKey, &f.ExpectedDigest, &computed, &f.Verified, &f.Status, &f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("jobstore: get raw file: %w", dbcore.ClassifyError(err))
	}
	if objectKey != nil {
		f.ObjectKey = *objectKey
	}
	if computed != nil {
		f.ComputedDigest = *computed
	}

	return f, nil
}

// MarkVerified records the computed digest and transitions the RawFile to
// verified.
func (r *RawFileRepository) MarkVerified(ctx context.Context, id int64, computedDigest string) error {
	const query = `
		UPDATE ingestion_raw_files
		SET computed_digest = $1, verified = true, status = $2, updated_at = now()
		WHERE id = $3
	`

	if _, err := r.db.Exec(ctx, query, computedDigest, model.RawFileVerified, id); err != nil {
		return fmt.Errorf("jobstore: mark raw file %d verified: %w", id, dbcore.ClassifyError(err))
	}

	return nil
}

// MarkFailed transitions the RawFile to failed on an integrity mismatch or
// exhausted download retries.
func (r *RawFileRepository) MarkFailed(ctx context.Context, id int64, computedDigest string) error {
	const query = `
		UPDATE ingestion_raw_files
		SET computed_digest = $1, status = $2, updated_at = now()
		WHERE id = $3
	`

	if _, err := r.db.Exec(ctx, query, computedDigest, model.RawFileFailed, id); err != nil {
		return fmt.Errorf("jobstore: mark raw file %d failed: %w", id, dbcore.ClassifyError(err))
	}

	return nil
}

// SetObjectKey records the transient object-store key once the artifact has
// been uploaded verbatim.
func (r *RawFileRepository) SetObjectKey(ctx context.Context, id int64, objectKey string) error {
	const query = `
		UPDATE ingestion_raw_files
		SET object_key = $1, status = $2, updated_at = now()
		WHERE id = $3
	`

	if _, err := r.db.Exec(ctx, query, objectKey, model.RawFileDownloaded, id); err != nil {
		return fmt.Errorf("jobstore: set raw file %d object key: %w", id, dbcore.ClassifyError(err))
	}

	return nil
}

// ListByJob lists all Raw Files belonging to a Job.
func (r *RawFileRepository) ListByJob(ctx context.Context, jobID int64) ([]*model.RawFile, error) {
	const query = `
		SELECT id, job_id, file_type, object_key, expected_digest, computed_digest, verified, status, updated_at
		FROM ingestion_raw_files
		WHERE job_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list raw files for job %d: %w", jobID, dbcore.ClassifyError(err))
	}
	defer rows.Close()

	var files []*model.RawFile
	for rows.Next() {
		f := &model.RawFile{}
		var objectKey, computed *string
		if err := rows.Scan(&f.ID, &f.JobID, &f.FileType, &objectKey, &f.ExpectedDigest, &computed, &f.Verified, &f.Status, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("jobstore: scan raw file row: %w", err)
		}
		if objectKey != nil {
			f.ObjectKey = *objectKey
		}
		if computed != nil {
			f.ComputedDigest = *computed
		}
		files = append(files, f)
	}

	return files, rows.Err()
}
