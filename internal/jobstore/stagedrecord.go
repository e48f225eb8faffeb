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
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/model"
)

// StagedRecordRepository manages Staged Records, the hand-off between the
// Parse and Store stages.
type StagedRecordRepository struct {
	db *dbcore.Client
}

// NewStagedRecordRepository constructs a StagedRecordRepository.
func NewStagedRecordRepository(db *dbcore.Client) *StagedRecordRepository {
	return &StagedRecordRepository{db: db}
}

// InsertBatchTx inserts Staged Records within an existing transaction,
// ON CONFLICT DO NOTHING on (job_id, record_identifier) so re-parsing the
// same offset range is a no-op.
// Must be called as part of the same transaction that marks the owning Work
// Unit completed.
func (r *StagedRecordRepository) InsertBatchTx(ctx context.Context, tx pgx.Tx, records []*model.StagedRecord) error {
	const query = `
		INSERT INTO ingestion_staged_records
			(job_id, work_unit_id, record_type, record_identifier, payload, content_digest,
			 sequence_digest, source_file, source_offset, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (job_id, record_identifier) DO NOTHING
	`

	for start := 0; start < len(records); start += dbcore.ChunkSize {
		end := min(start+dbcore.ChunkSize, len(records))
		batch := &pgx.Batch{}
		for _, rec := range records[start:end] {
			payload, err := json.Marshal(rec.Payload)
			if err != nil {
				return fmt.Errorf("jobstore: marshal staged record %q payload: %w", rec.RecordIdentifier, err)
			}
			batch.Queue(query,
				rec.JobID, rec.WorkUnitID, rec.RecordType, rec.RecordIdentifier, payload, rec.ContentDigest,
				rec.SequenceDigest, rec.SourceFile, rec.SourceOffset, model.RecordStaged,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for range records[start:end] {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()

				return fmt.Errorf("jobstore: insert staged record batch: %w", dbcore.ClassifyError(err))
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("jobstore: close staged record batch: %w", dbcore.ClassifyError(err))
		}
	}

	return nil
}

// ListForStoreUnit loads the batch of Staged Records a Store work unit's
// offset range refers to, restricted to status='staged'.
func (r *StagedRecordRepository) ListForStoreUnit(ctx context.Context, jobID, startID, endID int64) ([]*model.StagedRecord, error) {
	const query = `
		SELECT id, job_id, work_unit_id, record_type, record_identifier, payload, content_digest,
		       sequence_digest, source_file, source_offset, status
		FROM ingestion_staged_records
		WHERE job_id = $1 AND id >= $2 AND id <= $3 AND status = $4
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, jobID, startID, endID, model.RecordStaged)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list staged records for job %d: %w", jobID, dbcore.ClassifyError(err))
	}
	defer rows.Close()

	var out []*model.StagedRecord
	for rows.Next() {
		rec := &model.StagedRecord{}
		var payload []byte
		var seqDigest *string
		if err := rows.Scan(
			&rec.ID, &rec.JobID, &rec.WorkUnitID, &rec.RecordType, &rec.RecordIdentifier, &payload,
			&rec.ContentDigest, &seqDigest, &rec.SourceFile, &rec.SourceOffset, &rec.Status,
		); err != nil {
			return nil, fmt.Errorf("jobstore: scan staged record row: %w", err)
		}
		rec.SequenceDigest = seqDigest
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &rec.Payload); err != nil {
				return nil, fmt.Errorf("jobstore: unmarshal staged record payload: %w", err)
			}
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// IDRangesForJob returns the Staged Record id boundaries for a job,
// partitioned into contiguous chunks of at most batchSize rows each, used
// by the Coordinator to size store Work Units.
func (r *StagedRecordRepository) IDRangesForJob(ctx context.Context, jobID int64, batchSize int) ([][2]int64, error) {
	const query = `
		SELECT id FROM ingestion_staged_records
		WHERE job_id = $1 AND status = $2
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, jobID, model.RecordStaged)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list staged record ids for job %d: %w", jobID, dbcore.ClassifyError(err))
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("jobstore: scan staged record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var ranges [][2]int64
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids)) - 1
		ranges = append(ranges, [2]int64{ids[start], ids[end]})
	}

	return ranges, nil
}

// MarkStoredTx transitions a Staged Record to stored within the Store
// Stage's transaction.
func (r *StagedRecordRepository) MarkStoredTx(ctx context.Context, tx pgx.Tx, id int64) error {
	const query = `UPDATE ingestion_staged_records SET status = $1 WHERE id = $2`
	if _, err := tx.Exec(ctx, query, model.RecordStored, id); err != nil {
		return fmt.Errorf("jobstore: mark staged record %d stored: %w", id, dbcore.ClassifyError(err))
	}

	return nil
}

// MarkFailedTx transitions a Staged Record to failed within a transaction.
func (r *StagedRecordRepository) MarkFailedTx(ctx context.Context, tx pgx.Tx, id int64) error {
	const query = `UPDATE ingestion_staged_records SET status = $1 WHERE id = $2`
	if _, err := tx.Exec(ctx, query, model.RecordFailed, id); err != nil {
		return fmt.Errorf("jobstore: mark staged record %d failed: %w", id, dbcore.ClassifyError(err))
	}

	return nil
}
