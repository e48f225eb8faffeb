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

// Package model holds the relational entities shared by every component of
// the ingestion coordination layer. It has no behavior of its own; the
// repositories in internal/jobstore read and write these shapes.
package model

import "time"

// JobStatus is the status enum for Job.Status. The string values are a
// stable wire contract and must not change.
type JobStatus string

const (
	JobPending          JobStatus = "pending"
	JobDownloading      JobStatus = "downloading"
	JobDownloadVerified JobStatus = "download_verified"
	JobParsing          JobStatus = "parsing"
	JobStoring          JobStatus = "storing"
	JobFinalizing       JobStatus = "finalizing"
	JobCompleted        JobStatus = "completed"
	JobFailed           JobStatus = "failed"
)

// RawFileStatus is the status enum for RawFile.Status.
type RawFileStatus string

const (
	RawFileDownloading RawFileStatus = "downloading"
	RawFileDownloaded  RawFileStatus = "downloaded"
	RawFileVerified    RawFileStatus = "verified"
	RawFileFailed      RawFileStatus = "failed"
)

// WorkUnitType distinguishes the two fan-out stages.
type WorkUnitType string

const (
	UnitParse WorkUnitType = "parse"
	UnitStore WorkUnitType = "store"
)

// WorkUnitStatus is the status enum for WorkUnit.Status.
type WorkUnitStatus string

const (
	UnitPending   WorkUnitStatus = "pending"
	UnitClaimed   WorkUnitStatus = "claimed"
	UnitCompleted WorkUnitStatus = "completed"
	UnitFailed    WorkUnitStatus = "failed"
)

// StagedRecordStatus is the status enum for StagedRecord.Status.
type StagedRecordStatus string

const (
	RecordStaged        StagedRecordStatus = "staged"
	RecordFilesUploaded StagedRecordStatus = "files_uploaded"
	RecordStored        StagedRecordStatus = "stored"
	RecordFailed        StagedRecordStatus = "failed"
)

// DependencyKind distinguishes a hard (required) dependency from an
// informational cross-reference.
type DependencyKind string

const (
	DependencyRequired   DependencyKind = "required"
	DependencyReferences DependencyKind = "references"
)

// SourceType is the Data Source type discriminator.
type SourceType string

const (
	SourceProtein  SourceType = "protein"
	SourceTaxonomy SourceType = "taxonomy"
	SourceGenome   SourceType = "genome"
	SourceDomain   SourceType = "domain"
	SourceBundle   SourceType = "bundle"
)

// Organization is the namespace for one upstream source.
type Organization struct {
	ID        int64
	Slug      string
	Name      string
	License   string
	Citation  string
	CreatedAt time.Time
}

// RegistryEntry is the logical identity of one user-addressable artifact.
type RegistryEntry struct {
	ID             int64
	OrganizationID int64
	Slug           string
	CreatedAt      time.Time
}

// DataSource is the concrete typed instantiation of a RegistryEntry.
type DataSource struct {
	EntryID  int64
	Type     SourceType
	Metadata map[string]any
}

// Version is one immutable release of a RegistryEntry. Payload retains the
// record summary this Version was derived from, so a later ingestion can
// classify its own change against it.
type Version struct {
	ID              int64
	EntryID         int64
	Major           int
	Minor           int
	ExternalVersion string
	Payload         RecordPayload
	CreatedAt       time.Time
}

// VersionFile is one format variant of a Version.
type VersionFile struct {
	ID        int64
	VersionID int64
	Format    string
	ObjectKey string
	Size      int64
	Checksum  string
}

// DependencyEdge is a version-pinned directed reference between two Versions.
type DependencyEdge struct {
	FromVersionID int64
	ToVersionID   int64
	Kind          DependencyKind
}

// Job is one run of the pipeline for one (organization, job_type, external_version).
type Job struct {
	ID               int64
	OrganizationID   int64
	JobType          string
	ExternalVersion  string
	Status           JobStatus
	SourceMetadata   map[string]any
	RecordsProcessed int64
	RecordsStored    int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RawFile is one downloaded artifact belonging to a Job.
type RawFile struct {
	ID               int64
	JobID            int64
	FileType         string
	ObjectKey        string
	ExpectedDigest   string
	ComputedDigest   string
	Verified         bool
	Status           RawFileStatus
	UpdatedAt        time.Time
}

// WorkUnit is one claimable batch of a Job.
type WorkUnit struct {
	ID              int64
	JobID           int64
	UnitType        WorkUnitType
	BatchNumber     int64
	StartOffset     int64
	EndOffset       int64
	Status          WorkUnitStatus
	WorkerID        *string
	WorkerHostname  *string
	ClaimedAt       *time.Time
	HeartbeatAt     *time.Time
	RetryCount      int
	LastError       *string
	UpdatedAt       time.Time
}

// StagedRecord is a parse-stage output row, the hand-off between Parse and Store.
type StagedRecord struct {
	ID               int64
	JobID            int64
	WorkUnitID       int64
	RecordType       string
	RecordIdentifier string
	Payload          RecordPayload
	ContentDigest    string
	SequenceDigest   *string
	SourceFile       string
	SourceOffset     int64
	Status           StagedRecordStatus
}

// SyncStatus tracks the latest successfully completed external version per
// (organization, source_type).
type SyncStatus struct {
	OrganizationID  int64
	SourceType      SourceType
	ExternalVersion string
	CompletedAt     time.Time
}

// IngestionFailure is the structured failure record written on every
// failure, giving the "log table (or structured log stream)" option a
// concrete shape.
type IngestionFailure struct {
	ID         int64
	JobID      int64
	WorkUnitID *int64
	WorkerID   *string
	Kind       string
	Message    string
	OccurredAt time.Time
}
