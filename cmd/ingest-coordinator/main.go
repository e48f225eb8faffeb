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

// Command ingest-coordinator runs the Mode Controller poll loop, the
// Work-Unit Queue reaper, and one Coordinator per active Job for a single
// configured upstream source. A deployment runs one
// of these per source.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/refdata-org/ingestcore/internal/config"
	"github.com/refdata-org/ingestcore/internal/coordinator"
	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/download"
	"github.com/refdata-org/ingestcore/internal/jobstore"
	"github.com/refdata-org/ingestcore/internal/metrics"
	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/modecontroller"
	"github.com/refdata-org/ingestcore/internal/objectstore"
	"github.com/refdata-org/ingestcore/internal/parse"
	"github.com/refdata-org/ingestcore/internal/sourceplugin"
	"github.com/refdata-org/ingestcore/internal/sourceplugin/fixedwidth"
	"github.com/refdata-org/ingestcore/internal/sourceplugin/tsvxref"
	"github.com/refdata-org/ingestcore/internal/versiondiscovery"
	"github.com/refdata-org/ingestcore/internal/workqueue"
)

const modePollInterval = 60 * time.Second

// activeStatuses are the non-terminal Job statuses a running Coordinator
// needs to be driving.
var activeStatuses = []model.JobStatus{
	model.JobPending, model.JobDownloadVerified, model.JobParsing, model.JobStoring, model.JobFinalizing,
}

func main() {
	ctx := context.Background()

	sourceName := os.Getenv("INGEST_SOURCE_NAME")
	orgSlug := os.Getenv("INGEST_ORG_SLUG")
	if sourceName == "" || orgSlug == "" {
		slog.Error("INGEST_SOURCE_NAME and INGEST_ORG_SLUG must both be set")
		os.Exit(1)
	}

	worker, err := config.LoadWorker()
	if err != nil {
		slog.Error("failed to load worker configuration", "error", err)
		os.Exit(1)
	}

	source, err := config.LoadSource(strings.ToUpper(sourceName))
	if err != nil {
		slog.Error("failed to load source configuration", "error", err)
		os.Exit(1)
	}

	db, err := dbcore.NewClient(ctx, worker.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to job store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	objects, err := objectstore.NewClient(ctx, worker.ObjectStoreBucket)
	if err != nil {
		slog.Error("failed to create object store client", "error", err)
		os.Exit(1)
	}

	orgs := jobstore.NewOrganizationRepository(db)
	org, err := orgs.GetBySlug(ctx, orgSlug)
	if err != nil {
		slog.Error("failed to look up organization", "org_slug", orgSlug, "error", err)
		os.Exit(1)
	}

	plugin, err := pluginFor(sourceName, orgSlug)
	if err != nil {
		slog.Error("failed to resolve source plugin", "error", err)
		os.Exit(1)
	}

	jobs := jobstore.NewJobRepository(db)
	workUnits := jobstore.NewWorkUnitRepository(db)
	rawFiles := jobstore.NewRawFileRepository(db)
	stagedRecords := jobstore.NewStagedRecordRepository(db)
	syncStatus := jobstore.NewSyncStatusRepository(db)
	versions := jobstore.NewVersionRepository(db)

	cache := parse.NewCache(worker.CacheDir, objects)
	failures := jobstore.NewFailureRepository(db)
	downloader := download.NewStage(rawFiles, objects, &http.Client{Timeout: 5 * time.Minute}, failures)
	queue := workqueue.New(db, worker.MaxRetries)
	reaper := workqueue.NewReaper(db, queue)

	discoverer := versiondiscovery.NewDiscoverer(storeChecker{versions: versions, syncStatus: syncStatus})
	controller := modecontroller.New(discoverer, jobs)

	params := coordinator.Params{
		Plugin:         plugin,
		OrgSlug:        orgSlug,
		OrganizationID: org.ID,
		BaseURL:        plugin.BasePath(),
		BatchSizeParse: source.BatchSizeParse,
		BatchSizeStore: source.BatchSizeStore,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := reaper.Run(ctx, slog.Default()); err != nil {
			slog.Error("reaper exited", "error", err)
		}
	}()

	if addr := os.Getenv("INGEST_METRICS_ADDR"); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil { //nolint:gosec // operator-facing metrics endpoint, not internet-exposed
				slog.Error("metrics server exited", "error", err)
			}
		}()
	}

	d := &driver{
		jobs:      jobs,
		coord:     coordinator.New(jobs, workUnits, rawFiles, stagedRecords, syncStatus, cache, downloader),
		params:    params,
		running:   make(map[int64]bool),
		sourceType: plugin.SourceType(),
	}

	slog.Info("ingest-coordinator starting", "source", sourceName, "org_slug", orgSlug, "mode", source.Mode)

	ticker := time.NewTicker(modePollInterval)
	defer ticker.Stop()

	for {
		d.scanAndLaunch(ctx)

		switch source.Mode {
		case config.ModeLatest:
			job, err := controller.RunLatest(ctx, slog.Default(), plugin, org.ID, plugin.SourceType(), sourceName, source)
			if err != nil {
				slog.Error("latest mode tick failed", "error", err)
			} else if job != nil {
				d.launch(ctx, job.ID)
			}
		case config.ModeHistorical:
			created, err := controller.RunHistorical(ctx, slog.Default(), plugin, org.ID, plugin.SourceType(), sourceName, source)
			if err != nil {
				slog.Error("historical mode tick failed", "error", err)
			}
			for _, job := range created {
				if job != nil {
					d.launch(ctx, job.ID)
				}
			}
		}

		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-ticker.C:
		}
	}
}

// driver tracks which Jobs already have a running Coordinator goroutine so
// the poll loop never double-drives one.
type driver struct {
	jobs       *jobstore.JobRepository
	coord      *coordinator.Coordinator
	params     coordinator.Params
	sourceType model.SourceType

	mu      sync.Mutex
	running map[int64]bool
}

// scanAndLaunch picks up any Job left in a non-terminal status without a
// running Coordinator, e.g. after a process restart.
func (d *driver) scanAndLaunch(ctx context.Context) {
	for _, status := range activeStatuses {
		found, err := d.jobs.ListByStatus(ctx, status)
		if err != nil {
			slog.Error("scan active jobs failed", "status", status, "error", err)

			continue
		}
		metrics.JobsByStatus.WithLabelValues(string(status)).Set(float64(len(found)))
		for _, job := range found {
			d.launch(ctx, job.ID)
		}
	}
}

func (d *driver) launch(ctx context.Context, jobID int64) {
	d.mu.Lock()
	if d.running[jobID] {
		d.mu.Unlock()

		return
	}
	d.running[jobID] = true
	d.mu.Unlock()

	go func() {
		defer func() {
			d.mu.Lock()
			delete(d.running, jobID)
			d.mu.Unlock()
		}()

		if err := d.coord.Run(ctx, slog.Default(), jobID, d.params); err != nil {
			slog.Error("coordinator run exited", "job_id", jobID, "error", err)
		}
	}()
}

// storeChecker adapts jobstore's Version and SyncStatus repositories to
// versiondiscovery.StoreChecker.
type storeChecker struct {
	versions   *jobstore.VersionRepository
	syncStatus *jobstore.SyncStatusRepository
}

func (s storeChecker) ExistsWithExternalVersion(ctx context.Context, organizationID int64, externalVersion string) (bool, error) {
	return s.versions.ExistsWithExternalVersion(ctx, organizationID, externalVersion)
}

func (s storeChecker) Get(ctx context.Context, organizationID int64, sourceType model.SourceType) (*model.SyncStatus, error) {
	return s.syncStatus.Get(ctx, organizationID, sourceType)
}

// pluginFor is the job_type -> plugin registry, mirroring
// cmd/ingest-worker's (kept as a small duplicate rather than a shared
// package: the two binaries' registries are allowed to diverge as sources
// are added to one before the other).
func pluginFor(sourceName, orgSlug string) (sourceplugin.Plugin, error) {
	switch sourceName {
	case "uniprot-flatfile", "UNIPROT":
		return &fixedwidth.Plugin{OrgSlug: orgSlug}, nil
	case "pfam-mapping", "PFAM":
		return &tsvxref.Plugin{OrgSlug: orgSlug}, nil
	default:
		return nil, fmt.Errorf("ingest-coordinator: no plugin registered for source %q", sourceName)
	}
}
