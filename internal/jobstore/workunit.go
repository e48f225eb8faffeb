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

	"github.com/jackc/pgx/v5"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/model"
)

// WorkUnitRepository manages the non-claim lifecycle of Work Units: bulk
// creation by the Coordinator and read-side status queries. The atomic
// claim/heartbeat/complete/fail primitives live in internal/workqueue,
// which is the sole writer of the claimed/completed/failed transitions.
type WorkUnitRepository struct {
	db *dbcore.Client
}

// NewWorkUnitRepository constructs a WorkUnitRepository.
func NewWorkUnitRepository(db *dbcore.Client) *WorkUnitRepository {
	return &WorkUnitRepository{db: db}
}

// CreateBatch bulk-inserts pending Work Units for a job, chunked to
// dbcore.ChunkSize rows per statement. Creating zero units is a
// no-op.
func (r *WorkUnitRepository) CreateBatch(ctx context.Context, units []*model.WorkUnit) error {
	for start := 0; start < len(units); start += dbcore.ChunkSize {
		end := min(start+dbcore.ChunkSize, len(units))
		if err := r.insertChunk(ctx, units[start:end]); err != nil {
			return err
		}
	}

	return nil
}

func (r *WorkUnitRepository) insertChunk(ctx context.Context, units []*model.WorkUnit) error {
	if len(units) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO ingestion_work_units (job_id, unit_type, batch_number, start_offset, end_offset, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, updated_at
	`
	for _, u := range units {
		batch.Queue(query, u.JobID, u.UnitType, u.BatchNumber, u.StartOffset, u.EndOffset, model.UnitPending)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for _, u := range units {
		if err := results.QueryRow().Scan(&u.ID, &u.UpdatedAt); err != nil {
			return fmt.Errorf("jobstore: bulk insert work unit (job %d, batch %d): %w",
				u.JobID, u.BatchNumber, dbcore.ClassifyError(err))
		}
		u.Status = model.UnitPending
	}

	return nil
}

// CountByStatus returns, for a job and unit type, how many units are in
// each status. Used by the Coordinator to decide "all units done": no unit
// remains in pending or claimed.
func (r *WorkUnitRepository) CountByStatus(
	ctx context.Context, jobID int64, unitType model.WorkUnitType,
) (map[model.WorkUnitStatus]int64, error) {
	const query = `
		SELECT status, COUNT(*)
		FROM ingestion_work_units
		WHERE job_id = $1 AND unit_type = $2
		GROUP BY status
	`

	rows, err := r.db.Query(ctx, query, jobID, unitType)
	if err != nil {
		return nil, fmt.Errorf("jobstore: count work units for job %d: %w", jobID, dbcore.ClassifyError(err))
	}
	defer rows.Close()

	counts := make(map[model.WorkUnitStatus]int64)
	for rows.Next() {
		var status model.WorkUnitStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("jobstore: scan work unit count row: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// ListFailed lists terminally failed work units for a job, used by
// ingestctl's fail-requeue operator command.
func (r *WorkUnitRepository) ListFailed(ctx context.Context, jobID int64) ([]*model.WorkUnit, error) {
	const query = `
		SELECT id, job_id, unit_type, batch_number, start_offset, end_offset, status,
		       worker_id, worker_hostname, claimed_at, heartbeat_at, retry_count, last_error, updated_at
		FROM ingestion_work_units
		WHERE job_id = $1 AND status = $2
		ORDER BY batch_number ASC
	`

	rows, err := r.db.Query(ctx, query, jobID, model.UnitFailed)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list failed work units for job %d: %w", jobID, dbcore.ClassifyError(err))
	}
	defer rows.Close()

	var units []*model.WorkUnit
	for rows.Next() {
		u, err := scanWorkUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}

	return units, rows.Err()
}

func scanWorkUnit(row scannable) (*model.WorkUnit, error) {
	u := &model.WorkUnit{}
	if err := row.Scan(
		&u.ID, &u.JobID, &u.UnitType, &u.BatchNumber, &u.StartOffset, &u.EndOffset, &u.Status,
		&u.WorkerID, &u.WorkerHostname, &u.ClaimedAt, &u.HeartbeatAt, &u.RetryCount, &u.LastError, &u.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("jobstore: scan work unit row: %w", err)
	}

	return u, nil
}
