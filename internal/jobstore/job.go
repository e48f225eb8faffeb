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
	"errors"
	"fmt"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/errorsx"
	"github.com/refdata-org/ingestcore/internal/model"
)

// JobRepository manages the Job entity.
type JobRepository struct {
	db *dbcore.Client
}

// NewJobRepository constructs a JobRepository.
func NewJobRepository(db *dbcore.Client) *JobRepository {
	return &JobRepository{db: db}
}

// CreateJob implements the createJob contract: on a unique-constraint
// conflict on (organization_id, job_type, external_version) the existing Job
// is fetched and returned alongside errorsx.ErrAlreadyExists, so the caller
// can join the existing job instead of creating a duplicate.
func (r *JobRepository) CreateJob(
	ctx context.Context, organizationID int64, jobType, externalVersion string, metadata map[string]any,
) (*model.Job, error) {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("jobstore: marshal job metadata: %w", err)
	}

	const insert = `
		INSERT INTO ingestion_jobs (organization_id, job_type, external_version, status, source_metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, organization_id, job_type, external_version, status, source_metadata,
		          records_processed, records_stored, created_at, updated_at
	`

	job := &model.Job{}
	row := r.db.QueryRow(ctx, insert, organizationID, jobType, externalVersion, model.JobPending, metaJSON)
	if err := scanJob(row, job); err == nil {
		return job, nil
	} else if !errors.Is(dbcore.ClassifyError(err), errorsx.ErrAlreadyExists) {
		return nil, fmt.Errorf("jobstore: create job: %w", dbcore.ClassifyError(err))
	}

	existing, getErr := r.GetByNaturalKey(ctx, organizationID, jobType, externalVersion)
	if getErr != nil {
		return nil, fmt.Errorf("jobstore: create job: conflict but lookup failed: %w", getErr)
	}

	return existing, errorsx.ErrAlreadyExists
}

// GetByNaturalKey fetches a Job by its unique (organization, job_type,
// external_version) tuple.
func (r *JobRepository) GetByNaturalKey(
	ctx context.Context, organizationID int64, jobType, externalVersion string,
) (*model.Job, error) {
	const query = `
		SELECT id, organization_id, job_type, external_version, status, source_metadata,
		       records_processed, records_stored, created_at, updated_at
		FROM ingestion_jobs
		WHERE organization_id = $1 AND job_type = $2 AND external_version = $3
	`

	job := &model.Job{}
	row := r.db.QueryRow(ctx, query, organizationID, jobType, externalVersion)
	if err := scanJob(row, job); err != nil {
		return nil, fmt.Errorf("jobstore: get job: %w", dbcore.ClassifyError(err))
	}

	return job, nil
}

// GetByID fetches a Job by its primary key.
func (r *JobRepository) GetByID(ctx context.Context, id int64) (*model.Job, error) {
	const query = `
		SELECT id, organization_id, job_type, external_version, status, source_metadata,
		       records_processed, records_stored, created_at, updated_at
		FROM ingestion_jobs
		WHERE id = $1
	`

	job := &model.Job{}
	row := r.db.QueryRow(ctx, query, id)
	if err := scanJob(row, job); err != nil {
		return nil, fmt.Errorf("jobstore: get job %d: %w", id, dbcore.ClassifyError(err))
	}

	return job, nil
}

// AdvanceJobStatus implements the conditional CAS update: "WHERE
// status = from", failing with errorsx.ErrStaleState if the current status
// no longer matches from. This makes the job state machine safe to drive
// from multiple Coordinator ticks without external locking.
func (r *JobRepository) AdvanceJobStatus(ctx context.Context, id int64, from, to model.JobStatus) error {
	const query = `
		UPDATE ingestion_jobs
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`

	tag, err := r.db.Exec(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("jobstore: advance job %d status: %w", id, dbcore.ClassifyError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("jobstore: advance job %d %s->%s: %w", id, from, to, errorsx.ErrStaleState)
	}

	return nil
}

// IncrementCounters bumps records_processed and records_stored for a job.
// The Parse and Store stage handlers do not call it; they count records
// through internal/metrics only, so these columns stay at their last
// explicitly written values.
func (r *JobRepository) IncrementCounters(ctx context.Context, id int64, processedDelta, storedDelta int64) error {
	const query = `
		UPDATE ingestion_jobs
		SET records_processed = records_processed + $1,
		    records_stored = records_stored + $2,
		    updated_at = now()
		WHERE id = $3
	`

	if _, err := r.db.Exec(ctx, query, processedDelta, storedDelta, id); err != nil {
		return fmt.Errorf("jobstore: increment job %d counters: %w", id, dbcore.ClassifyError(err))
	}

	return nil
}

// ListByStatus lists jobs in a given status, used by the Coordinator poll
// loop and by ingestctl's `list` command.
func (r *JobRepository) ListByStatus(ctx context.Context, status model.JobStatus) ([]*model.Job, error) {
	const query = `
		SELECT id, organization_id, job_type, external_version, status, source_metadata,
		       records_processed, records_stored, created_at, updated_at
		FROM ingestion_jobs
		WHERE status = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list jobs by status %s: %w", status, dbcore.ClassifyError(err))
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job := &model.Job{}
		if err := scanJob(rows, job); err != nil {
			return nil, fmt.Errorf("jobstore: scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// scannable is satisfied by both pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable, job *model.Job) error {
	var metaJSON []byte
	if err := row.Scan(
		&job.ID, &job.OrganizationID, &job.JobType, &job.ExternalVersion, &job.Status, &metaJSON,
		&job.RecordsProcessed, &job.RecordsStored, &job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &job.SourceMetadata); err != nil {
			return fmt.Errorf("jobstore: unmarshal job metadata: %w", err)
		}
	}

	return nil
}
