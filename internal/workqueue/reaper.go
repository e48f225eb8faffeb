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

package workqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/metrics"
)

// Reaper reclaims stalled claims: a unit whose heartbeat has gone silent for
// longer than Timeout is assumed abandoned (worker crash, network partition)
// and is pushed back through Fail's retry/terminal-fail split. It runs as
// one of the Coordinator's background
// loops, grounded on the same lease-expiry sweep pattern as
// d4569048_mycelian-ai-mycelian-memory's outbox reaper.
type Reaper struct {
	db       *dbcore.Client
	queue    *Queue
	Interval time.Duration
	Timeout  time.Duration
}

// NewReaper constructs a Reaper with Interval set to 30s and Timeout to
// 120s, 4x the default 30s heartbeat interval. Callers may overwrite both
// fields before Run; a zero value is used as is.
func NewReaper(db *dbcore.Client, queue *Queue) *Reaper {
	return &Reaper{db: db, queue: queue, Interval: 30 * time.Second, Timeout: 120 * time.Second}
}

// Run blocks, sweeping on Interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context, log *slog.Logger) error {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			reclaimed, err := r.sweepOnce(ctx, now)
			if err != nil {
				log.ErrorContext(ctx, "workqueue: reaper sweep failed", "error", err)
				continue
			}
			if reclaimed > 0 {
				log.InfoContext(ctx, "workqueue: reaper reclaimed stalled units", "count", reclaimed)
			}
		}
	}
}

// sweepOnce resets claims that stalled before the deadline back to pending
// (with retry_count incremented) or terminally fails them once retries are
// exhausted, in a single statement per outcome.
func (r *Reaper) sweepOnce(ctx context.Context, now time.Time) (int64, error) {
	deadline := now.Add(-r.Timeout)

	const requeueQuery = `
		UPDATE ingestion_work_units
		SET status = 'pending', worker_id = NULL, worker_hostname = NULL, claimed_at = NULL,
		    retry_count = retry_count + 1, last_error = 'reaped: heartbeat timeout', updated_at = $1
		WHERE status = 'claimed' AND heartbeat_at < $2 AND retry_count + 1 < $3
	`

	tag, err := r.db.Exec(ctx, requeueQuery, now, deadline, r.queue.maxRetries)
	if err != nil {
		return 0, err
	}

	const failQuery = `
		UPDATE ingestion_work_units
		SET status = 'failed', worker_id = NULL, worker_hostname = NULL, claimed_at = NULL,
		    last_error = 'reaped: retries exhausted', updated_at = $1
		WHERE status = 'claimed' AND heartbeat_at < $2 AND retry_count + 1 >= $3
	`

	failTag, err := r.db.Exec(ctx, failQuery, now, deadline, r.queue.maxRetries)
	if err != nil {
		return 0, err
	}

	metrics.ReaperRequeuedTotal.Add(float64(tag.RowsAffected()))
	metrics.ReaperFailedTotal.Add(float64(failTag.RowsAffected()))

	return tag.RowsAffected() + failTag.RowsAffected(), nil
}
