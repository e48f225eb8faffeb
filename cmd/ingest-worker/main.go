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

// Command ingest-worker runs one anonymous Worker against a
// single (job, unit_type) scope, dispatching claimed units to the Parse
// or Store Stage handler for whichever plugin the job's job_type names.
// One process is started per (job, unit_type) pair; any number of them
// can run concurrently behind the same Job Store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/refdata-org/ingestcore/internal/config"
	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/jobstore"
	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/objectstore"
	"github.com/refdata-org/ingestcore/internal/parse"
	"github.com/refdata-org/ingestcore/internal/sourceplugin"
	"github.com/refdata-org/ingestcore/internal/sourceplugin/fixedwidth"
	"github.com/refdata-org/ingestcore/internal/sourceplugin/tsvxref"
	"github.com/refdata-org/ingestcore/internal/store"
	"github.com/refdata-org/ingestcore/internal/worker"
	"github.com/refdata-org/ingestcore/internal/workqueue"
	"github.com/refdata-org/ingestcore/internal/xref"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWorker()
	if err != nil {
		slog.Error("failed to load worker configuration", "error", err)
		os.Exit(1)
	}

	jobID, err := strconv.ParseInt(os.Getenv("INGEST_JOB_ID"), 10, 64)
	if err != nil {
		slog.Error("INGEST_JOB_ID must be set to a valid job id", "error", err)
		os.Exit(1)
	}

	unitType := model.WorkUnitType(os.Getenv("INGEST_UNIT_TYPE"))
	if unitType != model.UnitParse && unitType != model.UnitStore {
		slog.Error("INGEST_UNIT_TYPE must be \"parse\" or \"store\"", "got", unitType)
		os.Exit(1)
	}

	db, err := dbcore.NewClient(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to job store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	objects, err := objectstore.NewClient(ctx, cfg.ObjectStoreBucket)
	if err != nil {
		slog.Error("failed to create object store client", "error", err)
		os.Exit(1)
	}

	resolver, err := xref.NewResolver(db)
	if err != nil {
		slog.Error("failed to create cross-reference resolver", "error", err)
		os.Exit(1)
	}

	queue := workqueue.New(db, cfg.MaxRetries)
	cache := parse.NewCache(cfg.CacheDir, objects)

	disp := &jobDispatcher{
		jobs:          jobstore.NewJobRepository(db),
		orgs:          jobstore.NewOrganizationRepository(db),
		rawFiles:      jobstore.NewRawFileRepository(db),
		parseHandler:  parse.NewHandler(db, cache, queue, jobstore.NewStagedRecordRepository(db)),
		storeHandler: store.NewHandler(
			db, objects, queue, jobstore.NewStagedRecordRepository(db),
			jobstore.NewRegistryRepository(db), jobstore.NewVersionRepository(db), resolver,
		),
		log: slog.Default(),
	}

	w := worker.New(queue, disp, jobstore.NewFailureRepository(db))
	w.HeartbeatInterval = cfg.HeartbeatInterval
	disp.workerID = w.ID

	slog.Info("ingest-worker starting", "worker_id", w.ID, "hostname", w.Hostname, "job_id", jobID, "unit_type", unitType)

	if err := w.Run(ctx, slog.Default(), jobID, unitType); err != nil {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

// jobDispatcher resolves a claimed Work Unit's owning Job to a plugin
// instance and routes it to the matching stage handler. It is the only
// place that knows about both the generic internal/worker loop and the
// concrete internal/parse and internal/store handlers.
type jobDispatcher struct {
	jobs         *jobstore.JobRepository
	orgs         *jobstore.OrganizationRepository
	rawFiles     *jobstore.RawFileRepository
	parseHandler *parse.Handler
	storeHandler *store.Handler
	log          *slog.Logger

	// workerID is filled in after worker.New assigns its identity, since
	// the dispatcher is constructed before the Worker that owns it.
	workerID string
}

func (d *jobDispatcher) Dispatch(ctx context.Context, unit *model.WorkUnit) error {
	job, err := d.jobs.GetByID(ctx, unit.JobID)
	if err != nil {
		return fmt.Errorf("ingest-worker: load job %d: %w", unit.JobID, err)
	}

	org, err := d.orgs.GetByID(ctx, job.OrganizationID)
	if err != nil {
		return fmt.Errorf("ingest-worker: load organization %d: %w", job.OrganizationID, err)
	}

	plugin, err := pluginFor(job.JobType, org.Slug)
	if err != nil {
		return fmt.Errorf("ingest-worker: job %d: %w", job.ID, err)
	}

	switch unit.UnitType {
	case model.UnitParse:
		return d.dispatchParse(ctx, unit, job, org, plugin)
	case model.UnitStore:
		return d.storeHandler.Handle(ctx, d.log, unit, d.workerID, plugin, org.Slug, org.ID, job.ExternalVersion, job.JobType)
	default:
		return fmt.Errorf("ingest-worker: unit %d: unhandled unit type %q", unit.ID, unit.UnitType)
	}
}

func (d *jobDispatcher) dispatchParse(ctx context.Context, unit *model.WorkUnit, job *model.Job, org *model.Organization, plugin sourceplugin.Plugin) error {
	raw, err := d.rawFiles.GetByJobAndType(ctx, job.ID, "records")
	if err != nil {
		return fmt.Errorf("ingest-worker: load records artifact for job %d: %w", job.ID, err)
	}

	sourceFile := job.ExternalVersion
	for _, a := range plugin.Artifacts(job.ExternalVersion) {
		if a.FileType == "records" {
			sourceFile = a.RelativePath

			break
		}
	}

	return d.parseHandler.Handle(ctx, d.log, unit, d.workerID, plugin, org.Slug, job.ExternalVersion, raw.ObjectKey, sourceFile, job.JobType)
}

// pluginFor is the job_type -> plugin registry. Every source a deployment
// ingests needs an entry here; the two illustrative plugins exist to
// exercise the pipeline end to end (see internal/sourceplugin's doc comment).
func pluginFor(jobType, orgSlug string) (sourceplugin.Plugin, error) {
	switch jobType {
	case "uniprot-flatfile":
		return &fixedwidth.Plugin{OrgSlug: orgSlug}, nil
	case "pfam-mapping":
		return &tsvxref.Plugin{OrgSlug: orgSlug}, nil
	default:
		return nil, fmt.Errorf("ingest-worker: no plugin registered for job type %q", jobType)
	}
}
