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

// Package worker implements the generic, stateless Worker loop:
// claim a unit, heartbeat while it runs, dispatch to the stage handler,
// complete or fail. Workers carry no state between units and are anonymous
// beyond a process-lifetime identity, so any number of them can be run
// behind the same Job Store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/refdata-org/ingestcore/internal/errorsx"
	"github.com/refdata-org/ingestcore/internal/jobstore"
	"github.com/refdata-org/ingestcore/internal/metrics"
	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/workqueue"
)

// Dispatcher processes one claimed Work Unit's payload. Implementations
// live outside this package (cmd/ingest-worker wires a job-scoped
// dispatcher over internal/parse and internal/store) so this loop stays
// ignorant of source-specific plugin wiring.
type Dispatcher interface {
	Dispatch(ctx context.Context, unit *model.WorkUnit) error
}

// Worker runs the claim/heartbeat/dispatch/complete loop against one
// (job, unit_type) scope.
type Worker struct {
	queue      *workqueue.Queue
	dispatcher Dispatcher
	failures   *jobstore.FailureRepository

	// ID is this worker's identity: a fresh UUID per process start plus
	// hostname. Workers are anonymous; nothing ties an ID back to a
	// specific host across restarts.
	ID       string
	Hostname string

	PollInterval      time.Duration
	HeartbeatInterval time.Duration
}

const (
	defaultPollInterval      = 10 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
)

// New constructs a Worker with a fresh identity.
func New(queue *workqueue.Queue, dispatcher Dispatcher, failures *jobstore.FailureRepository) *Worker {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &Worker{
		queue: queue, dispatcher: dispatcher, failures: failures,
		ID: uuid.NewString(), Hostname: hostname,
		PollInterval: defaultPollInterval, HeartbeatInterval: defaultHeartbeatInterval,
	}
}

// Run loops until ctx is cancelled, claiming and processing units of
// unitType for jobID. A unit in flight when ctx is cancelled receives the
// cancelled ctx in its dispatch; Run returns once that dispatch returns.
func (w *Worker) Run(ctx context.Context, log *slog.Logger, jobID int64, unitType model.WorkUnitType) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		unit, err := w.queue.Claim(ctx, jobID, w.ID, w.Hostname, unitType, time.Now())
		if err != nil {
			if errors.Is(err, errorsx.ErrNoWorkAvailable) {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(w.PollInterval):
					continue
				}
			}

			return fmt.Errorf("worker: claim: %w", err)
		}

		w.processOne(ctx, log, unit)
	}
}

// processOne runs one claimed unit's heartbeat-guarded dispatch.
func (w *Worker) processOne(ctx context.Context, log *slog.Logger, unit *model.WorkUnit) {
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(hbCtx)
	group.Go(func() error {
		return w.heartbeatLoop(gctx, log, unit.ID)
	})

	dispatchErr := w.dispatcher.Dispatch(ctx, unit)
	stopHeartbeat()
	_ = group.Wait() // heartbeatLoop returns context.Canceled here, or nil after a stale claim

	if unit.ClaimedAt != nil {
		metrics.WorkUnitClaimDuration.WithLabelValues(string(unit.UnitType)).Observe(time.Since(*unit.ClaimedAt).Seconds())
	}

	if dispatchErr != nil {
		log.Error("work unit failed", "unit_id", unit.ID, "unit_type", unit.UnitType, "error", dispatchErr)
		w.recordFailure(ctx, log, unit, dispatchErr)

		if err := w.queue.Fail(ctx, unit.ID, w.ID, dispatchErr); err != nil && !errors.Is(err, errorsx.ErrRetriesExhausted) {
			log.Error("failed to record work unit failure", "unit_id", unit.ID, "error", err)
		}

		return
	}

	// Completion is committed by the dispatcher itself, in the same
	// transaction as its domain writes, so there is nothing further to commit here.
}

// recordFailure writes the structured failure row and increments the
// per-kind failure counter for one failed work unit. This is the single
// choke point every parse and store dispatch error passes through, so it
// is recorded here rather than separately inside internal/parse and
// internal/store, which would otherwise double-record the same failure.
func (w *Worker) recordFailure(ctx context.Context, log *slog.Logger, unit *model.WorkUnit, cause error) {
	kind := errorsx.ClassifyKind(cause)
	metrics.FailuresTotal.WithLabelValues(string(kind)).Inc()

	if w.failures == nil {
		return
	}

	workerID := w.ID
	failure := model.IngestionFailure{JobID: unit.JobID, WorkUnitID: &unit.ID, WorkerID: &workerID, Kind: string(kind), Message: cause.Error()}
	if err := w.failures.Record(ctx, failure); err != nil {
		log.Error("failed to record structured failure", "unit_id", unit.ID, "error", err)
	}
}

// heartbeatLoop renews the claim every HeartbeatInterval until ctx is
// cancelled. A stale-claim error means the reaper already reclaimed this
// unit; the loop stops rather than racing further heartbeats against the
// new owner.
func (w *Worker) heartbeatLoop(ctx context.Context, log *slog.Logger, unitID int64) error {
	ticker := time.NewTicker(w.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.queue.Heartbeat(ctx, unitID, w.ID, time.Now()); err != nil {
				if errors.Is(err, errorsx.ErrStaleClaim) {
					log.Warn("heartbeat found stale claim, reaper likely reclaimed unit", "unit_id", unitID)

					return nil
				}
				log.Error("heartbeat failed", "unit_id", unitID, "error", err)
			}
		}
	}
}
