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

package parse

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/errorsx"
	"github.com/refdata-org/ingestcore/internal/jobstore"
	"github.com/refdata-org/ingestcore/internal/metrics"
	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/sourceplugin"
	"github.com/refdata-org/ingestcore/internal/workqueue"
)

// maxRecordErrorRatio is the record error threshold: parser-level errors
// on individual records fail the unit only once they exceed this fraction
// of the attempted range. It is a fixed constant, not read from
// configuration.
const maxRecordErrorRatio = 0.1

// Handler implements the Parse Stage's per-claimed-unit logic.
type Handler struct {
	db            *dbcore.Client
	cache         *Cache
	queue         *workqueue.Queue
	stagedRecords *jobstore.StagedRecordRepository
}

// NewHandler constructs a Handler.
func NewHandler(db *dbcore.Client, cache *Cache, queue *workqueue.Queue, stagedRecords *jobstore.StagedRecordRepository) *Handler {
	return &Handler{db: db, cache: cache, queue: queue, stagedRecords: stagedRecords}
}

// Handle processes one claimed parse Work Unit: fetch the decompressed
// artifact from cache, invoke the plugin's parseRange, compute digests, and
// write Staged Records and the unit's completion atomically.
func (h *Handler) Handle(
	ctx context.Context, log *slog.Logger, unit *model.WorkUnit, workerID string,
	plugin sourceplugin.Parser, orgSlug, externalVersion, objectKey, sourceFile, jobType string,
) error {
	raw, err := h.cache.Get(ctx, orgSlug, externalVersion, objectKey)
	if err != nil {
		return fmt.Errorf("parse: populate cache for unit %d: %w", unit.ID, err)
	}

	payloads, parseErr := plugin.ParseRange(ctx, raw, unit.StartOffset, unit.EndOffset)
	attempted := unit.EndOffset - unit.StartOffset
	if parseErr != nil {
		return fmt.Errorf("parse: systemic error on unit %d: %w", unit.ID, parseErr)
	}

	skipped := attempted - int64(len(payloads))
	if attempted > 0 && float64(skipped)/float64(attempted) > maxRecordErrorRatio {
		return fmt.Errorf("parse: unit %d exceeded record error threshold (%d/%d skipped): %w", unit.ID, skipped, attempted, errorsx.ErrRecordErrorThreshold)
	}
	if skipped > 0 {
		log.WarnContext(ctx, "parse: skipped malformed records", "unit_id", unit.ID, "skipped", skipped, "attempted", attempted)
	}

	records := make([]*model.StagedRecord, 0, len(payloads))
	for i, payload := range payloads {
		identifier, err := recordIdentifier(payload)
		if err != nil {
			log.WarnContext(ctx, "parse: record missing identifier, skipping", "unit_id", unit.ID, "index", i, "error", err)

			continue
		}

		digest, err := contentDigest(payload)
		if err != nil {
			return fmt.Errorf("parse: digest record %q: %w", identifier, err)
		}

		records = append(records, &model.StagedRecord{
			JobID:            unit.JobID,
			WorkUnitID:       unit.ID,
			RecordType:       payload.RecordType,
			RecordIdentifier: identifier,
			Payload:          payload,
			ContentDigest:    digest,
			SourceFile:       sourceFile,
			SourceOffset:     unit.StartOffset + int64(i),
			Status:           model.RecordStaged,
		})
	}

	if err := h.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := h.stagedRecords.InsertBatchTx(ctx, tx, records); err != nil {
			return err
		}

		return h.queue.CompleteTx(ctx, tx, unit.ID, workerID)
	}); err != nil {
		return err
	}

	metrics.RecordsProcessedTotal.WithLabelValues(jobType).Add(float64(len(records)))

	return nil
}

func recordIdentifier(p model.RecordPayload) (string, error) {
	switch {
	case p.Protein != nil:
		return p.Protein.PrimaryAccession, nil
	case p.Domain != nil:
		return p.Domain.DomainID, nil
	case p.Taxon != nil:
		return p.Taxon.TaxonID, nil
	default:
		return "", fmt.Errorf("parse: record type %q has no known identifier field", p.RecordType)
	}
}

func contentDigest(p model.RecordPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)

	return hex.EncodeToString(sum[:]), nil
}
