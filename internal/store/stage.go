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

// Package store implements the Store Stage: the fan-out Work
// Unit handler that turns Staged Records into durable domain rows,
// generates derived format artifacts, and applies the internal
// MAJOR/MINOR versioning rule.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/errorsx"
	"github.com/refdata-org/ingestcore/internal/jobstore"
	"github.com/refdata-org/ingestcore/internal/metrics"
	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/objectstore"
	"github.com/refdata-org/ingestcore/internal/sourceplugin"
	"github.com/refdata-org/ingestcore/internal/workqueue"
	"github.com/refdata-org/ingestcore/internal/xref"
)

// Handler implements the Store Stage's per-claimed-unit logic.
type Handler struct {
	db            *dbcore.Client
	objects       objectstore.Store
	queue         *workqueue.Queue
	stagedRecords *jobstore.StagedRecordRepository
	registry      *jobstore.RegistryRepository
	versions      *jobstore.VersionRepository
	resolver      *xref.Resolver
}

// NewHandler constructs a Handler.
func NewHandler(
	db *dbcore.Client, objects objectstore.Store, queue *workqueue.Queue,
	stagedRecords *jobstore.StagedRecordRepository, registry *jobstore.RegistryRepository,
	versions *jobstore.VersionRepository, resolver *xref.Resolver,
) *Handler {
	return &Handler{
		db: db, objects: objects, queue: queue,
		stagedRecords: stagedRecords, registry: registry, versions: versions, resolver: resolver,
	}
}

// plan is the work computed for one Staged Record before the transaction
// opens: its resolved major/minor, the rendered+uploaded artifacts at
// their final canonical keys, and whether it actually changed.
type plan struct {
	record  *model.StagedRecord
	slug    string
	major   int
	minor   int
	noop    bool
	files   []*model.VersionFile
}

// Handle processes one claimed store Work Unit: load its Staged Records,
// classify each against its prior Version, render and upload derived
// artifacts at their final canonical keys outside the transaction, then
// open a single transaction that writes all domain rows and marks
// completion.
func (h *Handler) Handle(
	ctx context.Context, log *slog.Logger, unit *model.WorkUnit, workerID string,
	plugin sourceplugin.FormatWriter, orgSlug string, organizationID int64, externalVersion, jobType string,
) error {
	records, err := h.stagedRecords.ListForStoreUnit(ctx, unit.JobID, unit.StartOffset, unit.EndOffset)
	if err != nil {
		return fmt.Errorf("store: list staged records for unit %d: %w", unit.ID, err)
	}

	plans := make([]plan, 0, len(records))
	for _, rec := range records {
		p, err := h.buildPlan(ctx, plugin, orgSlug, organizationID, rec)
		if err != nil {
			return fmt.Errorf("store: build plan for %q: %w", rec.RecordIdentifier, err)
		}
		plans = append(plans, p)
	}

	if err := h.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, p := range plans {
			if err := h.commitOne(ctx, tx, organizationID, externalVersion, p); err != nil {
				return err
			}
		}

		return h.queue.CompleteTx(ctx, tx, unit.ID, workerID)
	}); err != nil {
		return err
	}

	metrics.RecordsStoredTotal.WithLabelValues(jobType).Add(float64(len(plans)))

	return nil
}

// buildPlan resolves the prior Version, classifies the change, and (unless
// the change is a no-op) renders and uploads every declared format to its
// final canonical key.
func (h *Handler) buildPlan(ctx context.Context, plugin sourceplugin.FormatWriter, orgSlug string, organizationID int64, rec *model.StagedRecord) (plan, error) {
	slug := rec.RecordIdentifier

	prior, err := h.latestOrNil(ctx, organizationID, slug)
	if err != nil {
		return plan{}, fmt.Errorf("lookup prior version: %w", err)
	}

	var changeClass sourceplugin.ChangeClass
	if prior != nil {
		changeClass = plugin.ClassifyChange(prior.Payload, rec.Payload)
	}
	major, minor := nextVersion(prior, changeClass)

	if prior != nil && major == prior.Major && minor == prior.Minor {
		return plan{record: rec, slug: slug, major: major, minor: minor, noop: true}, nil
	}

	var files []*model.VersionFile
	for _, format := range plugin.Formats() {
		data, err := plugin.Render(format, rec.Payload)
		if err != nil {
			return plan{}, fmt.Errorf("render format %q: %w", format, err)
		}

		key := objectstore.CanonicalKey(orgSlug, slug, major, minor, format)
		if err := h.objects.WriteBlob(ctx, key, data); err != nil {
			return plan{}, fmt.Errorf("upload format %q: %w", format, err)
		}

		files = append(files, &model.VersionFile{
			Format:    format,
			ObjectKey: key,
			Size:      int64(len(data)),
			Checksum:  objectstore.Checksum(data),
		})
	}

	return plan{record: rec, slug: slug, major: major, minor: minor, files: files}, nil
}

func (h *Handler) latestOrNil(ctx context.Context, organizationID int64, slug string) (*model.Version, error) {
	entry, err := h.registry.GetEntryBySlug(ctx, organizationID, slug)
	if err != nil {
		if errors.Is(err, errorsx.ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	v, err := h.versions.LatestVersion(ctx, entry.ID)
	if err != nil {
		if errors.Is(err, errorsx.ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return v, nil
}

// commitOne writes one plan's domain rows inside the caller's transaction.
func (h *Handler) commitOne(ctx context.Context, tx pgx.Tx, organizationID int64, externalVersion string, p plan) error {
	if p.noop {
		return h.stagedRecords.MarkStoredTx(ctx, tx, p.record.ID)
	}

	entryID, err := h.registry.UpsertEntryTx(ctx, tx, organizationID, p.slug)
	if err != nil {
		return err
	}

	versionID, err := h.versions.UpsertVersionTx(ctx, tx, entryID, p.major, p.minor, externalVersion, p.record.Payload)
	if err != nil {
		return err
	}

	for _, f := range p.files {
		f.VersionID = versionID
		if err := h.versions.InsertVersionFileTx(ctx, tx, f); err != nil {
			return err
		}
	}

	if err := h.resolveAndLinkDependencies(ctx, tx, versionID, p.record); err != nil {
		return err
	}

	return h.stagedRecords.MarkStoredTx(ctx, tx, p.record.ID)
}

// resolveAndLinkDependencies resolves a record's foreign identifiers and
// writes the resulting Dependency Edges, pinning the exact foreign version
// at resolution time.
func (h *Handler) resolveAndLinkDependencies(ctx context.Context, tx pgx.Tx, versionID int64, rec *model.StagedRecord) error {
	if h.resolver == nil {
		return nil
	}

	foreignType, ids := rec.Payload.ForeignIdentifiers()
	if foreignType == "" || len(ids) == 0 {
		return nil
	}

	resolved, err := h.resolver.ResolveBatch(ctx, foreignType, ids)
	if err != nil {
		return fmt.Errorf("resolve foreign references for %q: %w", rec.RecordIdentifier, err)
	}

	for _, id := range ids {
		target, ok := resolved[id]
		if !ok {
			continue // missing references are skipped, not hard-failed
		}

		edge := model.DependencyEdge{FromVersionID: versionID, ToVersionID: target.CurrentVersionID, Kind: model.DependencyReferences}
		if err := h.versions.InsertDependencyEdgeTx(ctx, tx, edge); err != nil {
			return err
		}
	}

	return nil
}

// nextVersion implements the internal versioning rule.
func nextVersion(prior *model.Version, class sourceplugin.ChangeClass) (major, minor int) {
	if prior == nil {
		return 1, 0
	}

	switch class {
	case sourceplugin.ChangeMajor:
		return prior.Major + 1, 0
	case sourceplugin.ChangeMinor:
		return prior.Major, prior.Minor + 1
	default:
		return prior.Major, prior.Minor
	}
}
