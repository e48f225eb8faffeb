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

// Package errorsx collects the behavioral error kinds the ingestion
// pipeline distinguishes, following convention of package-scope sentinel
// errors (lib/gcpspanner/client.go: ErrQueryReturnedNoResults,
// ErrBadClientConfig, ErrFailedToEstablishClient, ...) checked with
// errors.Is/errors.As at call sites instead of typed exception hierarchies.
package errorsx

import "errors"

var (
	// ErrAlreadyExists is returned by CreateJob when a Job with the same
	// (organization, job_type, external_version) already exists. The
	// caller is expected to join the existing job rather than create a
	// new one.
	ErrAlreadyExists = errors.New("ingestcore: already exists")

	// ErrStaleState is returned by AdvanceJobStatus when the job's current
	// status no longer matches the expected "from" status: the
	// compare-and-swap lost the race.
	ErrStaleState = errors.New("ingestcore: stale state")

	// ErrStaleClaim is returned by CompleteTx/Heartbeat/Fail when the caller no
	// longer holds the work unit's claim, typically because the reaper
	// already requeued it.
	ErrStaleClaim = errors.New("ingestcore: stale claim")

	// ErrNoWorkAvailable is returned by Claim when there is no pending
	// work unit for the requested (job, unit_type). Not a failure; the
	// caller sleeps and retries.
	ErrNoWorkAvailable = errors.New("ingestcore: no work available")

	// ErrIntegrityMismatch signals a downloaded artifact's computed digest
	// does not match the expected digest from upstream metadata.
	ErrIntegrityMismatch = errors.New("ingestcore: integrity mismatch")

	// ErrRetriesExhausted is returned by the work-unit queue's Fail when a
	// work unit has exceeded its configured retry budget and has moved to a
	// terminal failed state.
	ErrRetriesExhausted = errors.New("ingestcore: retries exhausted")

	// ErrForeignReferenceMissing marks a foreign identifier that could not
	// be resolved. The cross-reference resolver has no fail-on-missing mode:
	// it leaves unresolved identifiers out of its result and the Store Stage
	// skips them, so nothing in this repository returns this error.
	ErrForeignReferenceMissing = errors.New("ingestcore: foreign reference missing")

	// ErrNotFound is a general not-found sentinel for single-row lookups.
	ErrNotFound = errors.New("ingestcore: not found")

	// ErrTransient marks an error as retryable at the operation level
	// (connection loss, serialization failure). Wrap underlying driver
	// errors with fmt.Errorf("...: %w", ErrTransient) when they are known
	// to be transient so callers can errors.Is(err, ErrTransient).
	ErrTransient = errors.New("ingestcore: transient error")

	// ErrRecordErrorThreshold is returned by the Parse Stage when the
	// fraction of a unit's records that failed to parse exceeds
	// maxRecordErrorRatio.
	ErrRecordErrorThreshold = errors.New("ingestcore: record error threshold exceeded")
)

// Kind is a coarse classification of an error for the structured failure
// record (job, unit, worker, error kind, and message), stored as the kind
// string in model.IngestionFailure.Kind. KindDomainConstraint is the
// catch-all used when none of the sentinels above apply.
type Kind string

const (
	KindTransientIO       Kind = "transient_io"
	KindIntegrityMismatch Kind = "integrity_mismatch"
	KindParserRecordError Kind = "parser_record_error"
	KindForeignRefMissing Kind = "foreign_reference_missing"
	KindWorkUnitStall     Kind = "work_unit_stall"
	KindDomainConstraint  Kind = "domain_constraint_violation"
	KindDuplicateIngest   Kind = "duplicate_ingest"
	KindRetriesExhausted  Kind = "retries_exhausted"
)

// ClassifyTransient reports whether err should be retried with exponential
// backoff at the operation level rather than surfaced as a terminal
// failure.
func ClassifyTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// ClassifyKind maps err to the coarse Kind recorded on its structured
// failure row, preferring the most specific sentinel errors.Is matches.
// Errors that carry none of the sentinels above fall back to
// KindDomainConstraint, the catch-all for unclassified database and
// application errors.
func ClassifyKind(err error) Kind {
	switch {
	case errors.Is(err, ErrIntegrityMismatch):
		return KindIntegrityMismatch
	case errors.Is(err, ErrRecordErrorThreshold):
		return KindParserRecordError
	case errors.Is(err, ErrForeignReferenceMissing):
		return KindForeignRefMissing
	case errors.Is(err, ErrStaleClaim):
		return KindWorkUnitStall
	case errors.Is(err, ErrAlreadyExists):
		return KindDuplicateIngest
	case errors.Is(err, ErrRetriesExhausted):
		return KindRetriesExhausted
	case errors.Is(err, ErrTransient):
		return KindTransientIO
	default:
		return KindDomainConstraint
	}
}
