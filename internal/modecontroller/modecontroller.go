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

// Package modecontroller implements the Mode Controller:
// dispatch between the Latest and Historical ingestion policies for one
// configured source.
package modecontroller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/refdata-org/ingestcore/internal/config"
	"github.com/refdata-org/ingestcore/internal/errorsx"
	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/versiondiscovery"
)

// JobCreator starts one Job for an external version, handing the Job back
// to the caller for a Coordinator to drive. It is satisfied by
// jobstore.JobRepository.CreateJob; kept as a narrow interface so tests can
// supply a fake without a database.
type JobCreator interface {
	CreateJob(ctx context.Context, organizationID int64, jobType, externalVersion string, metadata map[string]any) (*model.Job, error)
}

// Controller runs the Latest or Historical policy for one source.
type Controller struct {
	discoverer *versiondiscovery.Discoverer
	jobs       JobCreator
}

// New constructs a Controller.
func New(discoverer *versiondiscovery.Discoverer, jobs JobCreator) *Controller {
	return &Controller{discoverer: discoverer, jobs: jobs}
}

// RunLatest implements the Latest policy: it discovers the current
// external version and creates one Job for it unless that version equals
// the last completed version recorded in Sync Status or sorts below the
// optional cutoff. The check against Sync Status is equality only: a
// current version that sorts before the last completed one still gets a
// Job. Returns the created Job, or nil if no-op.
func (c *Controller) RunLatest(
	ctx context.Context, log *slog.Logger, lister versiondiscovery.Lister,
	organizationID int64, sourceType model.SourceType, jobType string, cfg config.Source,
) (*model.Job, error) {
	current, err := c.discoverer.DiscoverCurrent(ctx, lister)
	if err != nil {
		return nil, fmt.Errorf("modecontroller: discover current: %w", err)
	}

	ingested, err := c.discoverer.WasIngestedAsCurrent(ctx, organizationID, sourceType, current)
	if err != nil {
		return nil, fmt.Errorf("modecontroller: check already ingested: %w", err)
	}
	if ingested {
		log.Debug("latest mode: already ingested, no-op", "external_version", current)

		return nil, nil
	}

	if cfg.IgnoreBefore != "" && versiondiscovery.Compare(lister.Ordering(), current, cfg.IgnoreBefore) < 0 {
		log.Debug("latest mode: below cutoff, no-op", "external_version", current, "cutoff", cfg.IgnoreBefore)

		return nil, nil
	}

	job, err := c.jobs.CreateJob(ctx, organizationID, jobType, current, nil)
	if err != nil && !errors.Is(err, errorsx.ErrAlreadyExists) {
		return nil, fmt.Errorf("modecontroller: create job: %w", err)
	}

	return job, nil
}

// RunHistorical implements the Historical policy: discover the
// [start, end] range, filter out already-ingested and already-ingested-
// as-current versions, and run the rest sequentially in
// cfg.HistoricalBatchSize batches, tolerating per-version failures so one
// bad historical release doesn't block the rest of the backfill.
func (c *Controller) RunHistorical(
	ctx context.Context, log *slog.Logger, lister versiondiscovery.Lister,
	organizationID int64, sourceType model.SourceType, jobType string, cfg config.Source,
) ([]*model.Job, error) {
	versions, err := c.discoverer.DiscoverRange(ctx, lister, cfg.HistoricalStart, cfg.HistoricalEnd)
	if err != nil {
		return nil, fmt.Errorf("modecontroller: discover range: %w", err)
	}

	pending := make([]string, 0, len(versions))
	for _, v := range versions {
		if cfg.HistoricalSkipExisting {
			exists, err := c.discoverer.ExistsInStore(ctx, organizationID, v)
			if err != nil {
				return nil, fmt.Errorf("modecontroller: exists in store %q: %w", v, err)
			}
			if exists {
				continue
			}

			wasCurrent, err := c.discoverer.WasIngestedAsCurrent(ctx, organizationID, sourceType, v)
			if err != nil {
				return nil, fmt.Errorf("modecontroller: was ingested as current %q: %w", v, err)
			}
			if wasCurrent {
				continue
			}
		}

		pending = append(pending, v)
	}

	batchSize := cfg.HistoricalBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	var jobs []*model.Job
	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))
		for _, v := range pending[start:end] {
			job, err := c.jobs.CreateJob(ctx, organizationID, jobType, v, nil)
			if err != nil && !errors.Is(err, errorsx.ErrAlreadyExists) {
				log.Error("historical mode: job creation failed, continuing", "external_version", v, "error", err)

				continue
			}
			jobs = append(jobs, job)
		}
	}

	return jobs, nil
}
