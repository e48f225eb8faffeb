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

// Package sourceplugin defines the uniform contract every upstream source
// implements. Concrete format parsers (GenBank, UniProt DAT, OBO, TSV, ...)
// are out of scope for this repo; this package only fixes the interface
// they satisfy, plus two illustrative plugins (fixedwidth, tsvxref) that
// exist to exercise the Download/Parse/Store pipeline end to end.
package sourceplugin

import (
	"context"
	"time"

	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/versiondiscovery"
)

// ArtifactDescriptor names one file the Download Stage fetches for a Job.
type ArtifactDescriptor struct {
	RelativePath       string
	FileType           string
	ExpectedDigestFrom string // relative path of the sha256sum-style checksum artifact, or "" if unverified
}

// Plugin is the full per-source contract. internal/versiondiscovery only
// needs the narrower Lister interface; internal/parse and internal/store
// need Parser and FormatWriter respectively. Keeping Plugin as the
// union lets the Mode Controller and Coordinator wire one plugin value
// wherever a source is configured, the way a single client gets wired one
// per-source workflow client into its consumer services.
type Plugin interface {
	versiondiscovery.Lister
	Parser
	FormatWriter

	// Name is the source's registry slug, e.g. "uniprot", "pfam".
	Name() string
	// SourceType reports the Data Source discriminator this plugin produces.
	SourceType() model.SourceType
	// Artifacts lists the files the Download Stage must fetch for a given
	// external version.
	Artifacts(externalVersion string) []ArtifactDescriptor
	// BasePath is the upstream root this source is fetched relative to.
	BasePath() string
}

// Parser is the source-specific record extraction capability.
type Parser interface {
	// ParseRange decodes records [start, end) from the raw artifact's
	// decompressed bytes.
	ParseRange(ctx context.Context, raw []byte, start, end int64) ([]model.RecordPayload, error)
	// RecordCount reports how many records the decompressed artifact
	// contains, used by the Coordinator to size parse Work Units.
	RecordCount(ctx context.Context, raw []byte) (int64, error)
}

// FormatWriter is the Store Stage's per-record artifact generation and
// versioning-rule capability.
type FormatWriter interface {
	// Formats lists the derived artifact formats generated per record,
	// e.g. {"dat", "fasta", "json"}.
	Formats() []string
	// Render produces the bytes for one format variant of a record.
	Render(format string, payload model.RecordPayload) ([]byte, error)
	// ClassifyChange compares a newly parsed record's payload against the
	// prior Version's payload and returns the internal versioning rule's
	// verdict.
	ClassifyChange(prior, next model.RecordPayload) ChangeClass
}

// ChangeClass is the Store Stage's bump decision for one record transition.
type ChangeClass int

const (
	// ChangeNone means the new record is byte-for-byte equivalent; no
	// Version row is created.
	ChangeNone ChangeClass = iota
	// ChangeMinor is an additive/compatible change: metadata added, new
	// dependents, or under the dependent-loss threshold.
	ChangeMinor
	// ChangeMajor is a breaking change: obsoleted, reclassified, or over
	// the dependent-loss threshold.
	ChangeMajor
)

// ReleaseNotes is the small, cheap artifact discoverCurrent and
// discoverRange parse to extract concrete version labels without a full
// download.
type ReleaseNotes struct {
	FetchedAt       time.Time
	ExternalVersion string
	RawBody         []byte
}
