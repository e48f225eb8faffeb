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

// FailureRepository records the structured failure log: every failure
// writes a record with job, unit, worker, error kind, and message to the
// ingestion_failures audit table.
type FailureRepository struct {
	db *dbcore.Client
}

// NewFailureRepository constructs a FailureRepository.
func NewFailureRepository(db *dbcore.Client) *FailureRepository {
	return &FailureRepository{db: db}
}

// Record inserts one structured failure row.
func (r *FailureRepository) Record(ctx context.Context, f model.IngestionFailure) error {
	const query = `
		INSERT INTO ingestion_failures (job_id, work_unit_id, worker_id, kind, message)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.db.Exec(ctx, query, f.JobID, f.WorkUnitID, f.WorkerID, f.Kind, f.Message); err != nil {
		return fmt.Errorf("jobstore: record failure for job %d: %w", f.JobID, dbcore.ClassifyError(err))
	}

	return nil
}

// CountsByKind returns the per-kind failure counts for a job, backing the
// "expose counts per status" operator surface alongside internal/metrics.
func (r *FailureRepository) CountsByKind(ctx context.Context, jobID int64) (map[string]int64, error) {
	const query = `
		SELECT kind, COUNT(*)
		FROM ingestion_failures
		WHERE job_id = $1
		GROUP BY kind
	`

	rows, err := r.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("jobstore: failure counts for job %d: %w", jobID, dbcore.ClassifyError(err))
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("jobstore: scan failure count row: %w", err)
		}
		counts[kind] = count
	}

	return counts, rows.Err()
}
