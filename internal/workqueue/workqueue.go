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

// Package workqueue is the Work-Unit Queue, the heart of the
// system: a single-row atomic claim built on Postgres's
// "SELECT ... FOR UPDATE SKIP LOCKED", in the style of
// 30c3668b_sojohnnysaid-mirai-app's GetNextQueued/ClaimJobByID and
// d4569048_mycelian-ai-mycelian-memory's outbox leaseBatch backoff.
package workqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/errorsx"
	"github.com/refdata-org/ingestcore/internal/model"
)

// Queue implements Claim/Heartbeat/Fail over a Job Store database. The
// completed transition is deliberately not exposed here standalone: it must
// run in the same transaction as the work unit's output writes, so callers
// use CompleteTx against their own pgx.Tx.
type Queue struct {
	db         *dbcore.Client
	maxRetries int
}

// New constructs a Queue. maxRetries bounds retry_count the
// invariant "retry_count <= max_retries".
func New(db *dbcore.Client, maxRetries int) *Queue {
	return &Queue{db: db, maxRetries: maxRetries}
}

// Claim implements the claim contract as one UPDATE ... WHERE id =
// (SELECT ... FOR UPDATE SKIP LOCKED LIMIT 1) statement: lowest
// batch_number first (starvation-free ordering), SKIP LOCKED guarantees
// at-most-one claim across concurrent callers, and a missing row returns
// errorsx.ErrNoWorkAvailable rather than blocking.
func (q *Queue) Claim(ctx context.Context, jobID int64, workerID, hostname string, unitType model.WorkUnitType, now time.Time) (*model.WorkUnit, error) {
	const query = `
		UPDATE ingestion_work_units
		SET status = $1, worker_id = $2, worker_hostname = $3, claimed_at = $4, heartbeat_at = $4, updated_at = $4
		WHERE id = (
			SELECT id FROM ingestion_work_units
			WHERE job_id = $5 AND unit_type = $6 AND status = $7
			ORDER BY batch_number ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, job_id, unit_type, batch_number, start_offset, end_offset, status,
		          worker_id, worker_hostname, claimed_at, heartbeat_at, retry_count, last_error, updated_at
	`

	row := q.db.QueryRow(ctx, query, model.UnitClaimed, workerID, hostname, now, jobID, unitType, model.UnitPending)

	unit, err := scanWorkUnit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorsx.ErrNoWorkAvailable
		}

		return nil, fmt.Errorf("workqueue: claim (job %d, %s): %w", jobID, unitType, dbcore.ClassifyError(err))
	}

	return unit, nil
}

// Heartbeat implements the conditional heartbeat update: it only
// lands if the caller still holds the claim (status='claimed' AND
// worker_id matches). A missed heartbeat is non-fatal for the caller, who
// should treat it as an instruction to abandon the unit.
func (q *Queue) Heartbeat(ctx context.Context, unitID int64, workerID string, now time.Time) error {
	const query = `
		UPDATE ingestion_work_units
		SET heartbeat_at = $1, updated_at = $1
		WHERE id = $2 AND worker_id = $3 AND status = $4
	`

	tag, err := q.db.Exec(ctx, query, now, unitID, workerID, model.UnitClaimed)
	if err != nil {
		return fmt.Errorf("workqueue: heartbeat unit %d: %w", unitID, dbcore.ClassifyError(err))
	}
	if tag.RowsAffected() == 0 {
		return errorsx.ErrStaleClaim
	}

	return nil
}

// CompleteTx performs the claimed -> completed transition within the
// caller's transaction, the atomicity requirement with the work
// unit's output writes (Staged Record inserts for parse units, domain-table
// writes for store units).
func (q *Queue) CompleteTx(ctx context.Context, tx pgx.Tx, unitID int64, workerID string) error {
	const query = `
		UPDATE ingestion_work_units
		SET status = $1, updated_at = now()
		WHERE id = $2 AND worker_id = $3 AND status = $4
	`

	tag, err := tx.Exec(ctx, query, model.UnitCompleted, unitID, workerID, model.UnitClaimed)
	if err != nil {
		return fmt.Errorf("workqueue: complete unit %d: %w", unitID, dbcore.ClassifyError(err))
	}
	if tag.RowsAffected() == 0 {
		return errorsx.ErrStaleClaim
	}

	return nil
}

// Fail implements the retry/terminal-fail split of : claimed units
// whose retry_count is still under the queue's max go back to pending for
// another worker; units that have exhausted retries move to failed and the
// caller should record a Job Store failure entry.
func (q *Queue) Fail(ctx context.Context, unitID int64, workerID string, cause error) error {
	const selectQuery = `SELECT retry_count FROM ingestion_work_units WHERE id = $1 AND worker_id = $2 AND status = $3`

	var retryCount int
	if err := q.db.QueryRow(ctx, selectQuery, unitID, workerID, model.UnitClaimed).Scan(&retryCount); err != nil {
		return fmt.Errorf("workqueue: fail unit %d: %w", unitID, dbcore.ClassifyError(err))
	}

	msg := cause.Error()
	nextStatus := model.UnitPending
	if retryCount+1 >= q.maxRetries {
		nextStatus = model.UnitFailed
	}

	const updateQuery = `
		UPDATE ingestion_work_units
		SET status = $1, retry_count = retry_count + 1, last_error = $2,
		    worker_id = NULL, worker_hostname = NULL, claimed_at = NULL, updated_at = now()
		WHERE id = $3 AND worker_id = $4 AND status = $5
	`

	tag, err := q.db.Exec(ctx, updateQuery, nextStatus, msg, unitID, workerID, model.UnitClaimed)
	if err != nil {
		return fmt.Errorf("workqueue: fail unit %d: %w", unitID, dbcore.ClassifyError(err))
	}
	if tag.RowsAffected() == 0 {
		return errorsx.ErrStaleClaim
	}
	if nextStatus == model.UnitFailed {
		return fmt.Errorf("workqueue: unit %d: %w", unitID, errorsx.ErrRetriesExhausted)
	}

	return nil
}

// RequeueFailed resets a terminally failed unit back to pending with
// retry_count cleared, the operator action `ingestctl fail-requeue`
// implements.
func (q *Queue) RequeueFailed(ctx context.Context, unitID int64) error {
	const query = `
		UPDATE ingestion_work_units
		SET status = $1, retry_count = 0, last_error = NULL, updated_at = now()
		WHERE id = $2 AND status = $3
	`

	tag, err := q.db.Exec(ctx, query, model.UnitPending, unitID, model.UnitFailed)
	if err != nil {
		return fmt.Errorf("workqueue: requeue unit %d: %w", unitID, dbcore.ClassifyError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workqueue: requeue unit %d: %w", unitID, errorsx.ErrNotFound)
	}

	return nil
}

func scanWorkUnit(row pgx.Row) (*model.WorkUnit, error) {
	u := &model.WorkUnit{}
	if err := row.Scan(
		&u.ID, &u.JobID, &u.UnitType, &u.BatchNumber, &u.StartOffset, &u.EndOffset, &u.Status,
		&u.WorkerID, &u.WorkerHostname, &u.ClaimedAt, &u.HeartbeatAt, &u.RetryCount, &u.LastError, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return u, nil
}
