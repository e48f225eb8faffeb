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

// Package coordinator implements the Coordinator: one process
// per Job, a state machine that creates and inspects Work Units but never
// executes their payloads, so Workers stay horizontally scalable and
// stateless.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/refdata-org/ingestcore/internal/download"
	"github.com/refdata-org/ingestcore/internal/jobstore"
	"github.com/refdata-org/ingestcore/internal/metrics"
	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/parse"
	"github.com/refdata-org/ingestcore/internal/sourceplugin"
)

const defaultPollInterval = 5 * time.Second

// Coordinator drives one Job through its state machine. It never claims or
// processes a Work Unit itself; it only bulk-creates them and reads their
// aggregate status.
type Coordinator struct {
	jobs          *jobstore.JobRepository
	workUnits     *jobstore.WorkUnitRepository
	rawFiles      *jobstore.RawFileRepository
	stagedRecords *jobstore.StagedRecordRepository
	syncStatus    *jobstore.SyncStatusRepository
	cache         *parse.Cache
	downloader    *download.Stage

	// PollInterval is the sleep between state-machine ticks.
	PollInterval time.Duration
	// FailureGrace is how long a terminally failed unit is left in place
	// for manual requeue before the job itself is failed. It is measured
	// from the Job's last status change (Job.UpdatedAt), not from the
	// moment the unit failed.
	FailureGrace time.Duration
}

// New constructs a Coordinator.
func New(
	jobs *jobstore.JobRepository, workUnits *jobstore.WorkUnitRepository, rawFiles *jobstore.RawFileRepository,
	stagedRecords *jobstore.StagedRecordRepository, syncStatus *jobstore.SyncStatusRepository,
	cache *parse.Cache, downloader *download.Stage,
) *Coordinator {
	return &Coordinator{
		jobs: jobs, workUnits: workUnits, rawFiles: rawFiles, stagedRecords: stagedRecords,
		syncStatus: syncStatus, cache: cache, downloader: downloader,
		PollInterval: defaultPollInterval, FailureGrace: 15 * time.Minute,
	}
}

// Params bundles the per-source configuration a Coordinator run needs;
// these come from the source's sourceplugin.Plugin and config.Source
// rather than being hardcoded, so one Coordinator binary drives every
// configured source.
type Params struct {
	Plugin         sourceplugin.Plugin
	OrgSlug        string
	OrganizationID int64
	BaseURL        string
	BatchSizeParse int
	BatchSizeStore int
}

// Run drives job through its state machine until it reaches a terminal
// status or ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, log *slog.Logger, jobID int64, p Params) error {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		job, err := c.jobs.GetByID(ctx, jobID)
		if err != nil {
			return fmt.Errorf("coordinator: load job %d: %w", jobID, err)
		}

		done, err := c.tick(ctx, log, job, p)
		if err != nil {
			log.Error("coordinator tick failed", "job_id", jobID, "status", job.Status, "error", err)
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tick performs at most one state transition.
func (c *Coordinator) tick(ctx context.Context, log *slog.Logger, job *model.Job, p Params) (done bool, err error) {
	switch job.Status {
	case model.JobPending:
		return false, c.runDownload(ctx, log, job, p)
	case model.JobDownloadVerified:
		return false, c.createParseUnits(ctx, log, job, p)
	case model.JobParsing:
		return false, c.checkParsing(ctx, log, job, p)
	case model.JobStoring:
		return false, c.checkStoring(ctx, log, job)
	case model.JobFinalizing:
		return false, c.finalize(ctx, log, job, p)
	case model.JobCompleted, model.JobFailed:
		return true, nil
	default:
		return false, fmt.Errorf("coordinator: job %d: unknown status %q", job.ID, job.Status)
	}
}

// runDownload executes the Download Stage inline.
func (c *Coordinator) runDownload(ctx context.Context, log *slog.Logger, job *model.Job, p Params) error {
	artifacts := p.Plugin.Artifacts(job.ExternalVersion)
	if err := c.downloader.Run(ctx, log, job, p.OrgSlug, artifacts, p.BaseURL); err != nil {
		return fmt.Errorf("coordinator: download stage: %w", err)
	}

	return c.jobs.AdvanceJobStatus(ctx, job.ID, model.JobPending, model.JobDownloadVerified)
}

// createParseUnits sizes and creates the parse Work Units, chunking the
// records artifact into BatchSizeParse-record batches.
func (c *Coordinator) createParseUnits(ctx context.Context, log *slog.Logger, job *model.Job, p Params) error {
	raw, err := c.recordsArtifact(ctx, job, p)
	if err != nil {
		return fmt.Errorf("coordinator: fetch records artifact: %w", err)
	}

	count, err := p.Plugin.RecordCount(ctx, raw)
	if err != nil {
		return fmt.Errorf("coordinator: record count: %w", err)
	}

	units := buildUnits(job.ID, model.UnitParse, count, int64(p.BatchSizeParse))
	if err := c.workUnits.CreateBatch(ctx, units); err != nil {
		return fmt.Errorf("coordinator: create parse units: %w", err)
	}
	log.Info("created parse units", "job_id", job.ID, "record_count", count, "unit_count", len(units))

	return c.jobs.AdvanceJobStatus(ctx, job.ID, model.JobDownloadVerified, model.JobParsing)
}

// checkParsing advances parsing -> storing once every parse unit has
// completed, creating store units first. While any parse unit is terminally
// failed it waits for a manual requeue, and fails the job once the grace
// period has passed.
func (c *Coordinator) checkParsing(ctx context.Context, log *slog.Logger, job *model.Job, p Params) error {
	allDone, failed, err := c.unitsSettled(ctx, job.ID, model.UnitParse)
	if err != nil {
		return err
	}
	if failed {
		if c.pastGrace(job) {
			return c.jobs.AdvanceJobStatus(ctx, job.ID, model.JobParsing, model.JobFailed)
		}

		return nil
	}
	if !allDone {
		return nil
	}

	ranges, err := c.stagedRecords.IDRangesForJob(ctx, job.ID, p.BatchSizeStore)
	if err != nil {
		return fmt.Errorf("coordinator: id ranges for store units: %w", err)
	}

	units := make([]*model.WorkUnit, 0, len(ranges))
	for i, rng := range ranges {
		units = append(units, &model.WorkUnit{
			JobID: job.ID, UnitType: model.UnitStore, BatchNumber: int64(i),
			StartOffset: rng[0], EndOffset: rng[1],
		})
	}
	if err := c.workUnits.CreateBatch(ctx, units); err != nil {
		return fmt.Errorf("coordinator: create store units: %w", err)
	}
	log.Info("created store units", "job_id", job.ID, "unit_count", len(units))

	return c.jobs.AdvanceJobStatus(ctx, job.ID, model.JobParsing, model.JobStoring)
}

// checkStoring advances storing -> finalizing once every store unit has
// completed. While any store unit is terminally failed it waits for a
// manual requeue, and fails the job once the grace period has passed.
func (c *Coordinator) checkStoring(ctx context.Context, log *slog.Logger, job *model.Job) error {
	allDone, failed, err := c.unitsSettled(ctx, job.ID, model.UnitStore)
	if err != nil {
		return err
	}
	if failed {
		if c.pastGrace(job) {
			return c.jobs.AdvanceJobStatus(ctx, job.ID, model.JobStoring, model.JobFailed)
		}

		return nil
	}
	if !allDone {
		return nil
	}

	return c.jobs.AdvanceJobStatus(ctx, job.ID, model.JobStoring, model.JobFinalizing)
}

// finalize updates Sync Status and transitions the job to completed:
// finalizing -> update Sync Status, bundle aggregates -> completed.
// Bundle aggregation is source-bundle specific and left to the bundle
// Data Source type (model.SourceBundle); a plain per-entity source has
// nothing further to aggregate here.
func (c *Coordinator) finalize(ctx context.Context, log *slog.Logger, job *model.Job, p Params) error {
	if err := c.syncStatus.Upsert(ctx, p.OrganizationID, p.Plugin.SourceType(), job.ExternalVersion); err != nil {
		return fmt.Errorf("coordinator: upsert sync status: %w", err)
	}
	log.Info("job finalized", "job_id", job.ID, "external_version", job.ExternalVersion)

	return c.jobs.AdvanceJobStatus(ctx, job.ID, model.JobFinalizing, model.JobCompleted)
}

// unitsSettled reports whether no unit of unitType remains pending/claimed,
// and whether any have reached the terminal failed status.
func (c *Coordinator) unitsSettled(ctx context.Context, jobID int64, unitType model.WorkUnitType) (allDone, anyFailed bool, err error) {
	counts, err := c.workUnits.CountByStatus(ctx, jobID, unitType)
	if err != nil {
		return false, false, fmt.Errorf("coordinator: count %s units for job %d: %w", unitType, jobID, err)
	}

	for status, count := range counts {
		metrics.WorkUnitsByStatus.WithLabelValues(string(unitType), string(status)).Set(float64(count))
	}

	inFlight := counts[model.UnitPending] + counts[model.UnitClaimed]

	return inFlight == 0, counts[model.UnitFailed] > 0, nil
}

func (c *Coordinator) pastGrace(job *model.Job) bool {
	return time.Since(job.UpdatedAt) > c.FailureGrace
}

// recordsArtifact fetches the bytes of the first "records"-typed artifact
// through the decompression cache, the same path the Parse Stage uses, so
// the Coordinator's RecordCount call sees the same bytes a parse Work Unit
// will.
func (c *Coordinator) recordsArtifact(ctx context.Context, job *model.Job, p Params) ([]byte, error) {
	for _, a := range p.Plugin.Artifacts(job.ExternalVersion) {
		if a.FileType != "records" {
			continue
		}

		raw, err := c.rawFiles.GetByJobAndType(ctx, job.ID, a.FileType)
		if err != nil {
			return nil, err
		}

		return c.cache.Get(ctx, p.OrgSlug, job.ExternalVersion, raw.ObjectKey)
	}

	return nil, fmt.Errorf("coordinator: job %d: no records artifact declared", job.ID)
}

// buildUnits splits a total record count into batchSize-sized contiguous
// offset ranges [start, end).
func buildUnits(jobID int64, unitType model.WorkUnitType, total, batchSize int64) []*model.WorkUnit {
	if total == 0 {
		return nil
	}

	var units []*model.WorkUnit
	var batchNumber int64
	for start := int64(0); start < total; start += batchSize {
		end := min(start+batchSize, total)
		units = append(units, &model.WorkUnit{
			JobID: jobID, UnitType: unitType, BatchNumber: batchNumber,
			StartOffset: start, EndOffset: end,
		})
		batchNumber++
	}

	return units
}
