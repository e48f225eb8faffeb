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

package xref

import (
	"context"
	"fmt"

	"github.com/refdata-org/ingestcore/internal/jobstore"
	"github.com/refdata-org/ingestcore/internal/model"
)

// CascadeJobType is the synthetic Job's job_type, distinguishing it in
// ingestion_jobs from a normal source-triggered ingestion.
const CascadeJobType = "cascade-bump"

// Cascade finds local Versions that depend on a foreign Version and
// schedules a follow-up job for each affected organization: a separate
// cascade pass computes which local Versions need minor bumps, but that
// cascade pass itself is just another ingestion job against the same
// machinery.
type Cascade struct {
	versions *jobstore.VersionRepository
	entries  *jobstore.RegistryRepository
	jobs     *jobstore.JobRepository
}

// NewCascade constructs a Cascade.
func NewCascade(versions *jobstore.VersionRepository, entries *jobstore.RegistryRepository, jobs *jobstore.JobRepository) *Cascade {
	return &Cascade{versions: versions, entries: entries, jobs: jobs}
}

// RunForVersion finds every Version with a Dependency Edge pointing at
// changedVersionID and enqueues a cascade-bump Job for its owning
// organization. Because a Job's natural key is (organization, job_type,
// external_version), dependent entries in the same organization share one
// Job: the first CreateJob creates it with that entry's slug in its
// metadata, later ones join it, and the returned slice holds the shared Job
// once per dependent Version. For the same reason rerunning against the
// same changed version and external version joins the existing jobs rather
// than duplicating them.
func (c *Cascade) RunForVersion(ctx context.Context, changedVersionID int64, externalVersion string) ([]*model.Job, error) {
	dependentVersionIDs, err := c.versions.DependentsOf(ctx, changedVersionID)
	if err != nil {
		return nil, fmt.Errorf("xref: cascade: dependents of version %d: %w", changedVersionID, err)
	}

	var jobs []*model.Job
	for _, versionID := range dependentVersionIDs {
		entry, err := c.entries.GetEntryByVersionID(ctx, versionID)
		if err != nil {
			return nil, fmt.Errorf("xref: cascade: entry for version %d: %w", versionID, err)
		}

		job, err := c.jobs.CreateJob(ctx, entry.OrganizationID, CascadeJobType, externalVersion, map[string]any{
			"triggering_version_id": changedVersionID,
			"registry_entry_slug":   entry.Slug,
		})
		if err != nil && job == nil {
			return nil, fmt.Errorf("xref: cascade: create job for entry %q: %w", entry.Slug, err)
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}
