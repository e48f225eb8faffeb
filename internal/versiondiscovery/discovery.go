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

package versiondiscovery

import (
	"context"
	"fmt"

	"github.com/refdata-org/ingestcore/internal/model"
)

// Lister is the narrow surface a source plugin exposes for version
// discovery, satisfied by internal/sourceplugin.Plugin. Kept as its own
// small interface here (rather than importing sourceplugin) so this
// package stays a leaf the way lib/gcpspanner keeps its
// Client free of workflow-level imports.
type Lister interface {
	// CurrentVersion returns the newest external version label the
	// upstream source currently publishes.
	CurrentVersion(ctx context.Context) (string, error)
	// ListVersions returns every external version label the upstream
	// source has ever published, oldest first, for Historical mode.
	ListVersions(ctx context.Context) ([]string, error)
	// Ordering reports how this source's labels should be compared.
	Ordering() Ordering
}

// StoreChecker is the subset of internal/jobstore.VersionRepository and
// internal/jobstore.SyncStatusRepository version discovery needs.
type StoreChecker interface {
	ExistsWithExternalVersion(ctx context.Context, organizationID int64, externalVersion string) (bool, error)
	Get(ctx context.Context, organizationID int64, sourceType model.SourceType) (*model.SyncStatus, error)
}

// Discoverer implements the four operations against a source plugin
// and the Job Store.
type Discoverer struct {
	store StoreChecker
}

// NewDiscoverer constructs a Discoverer.
func NewDiscoverer(store StoreChecker) *Discoverer {
	return &Discoverer{store: store}
}

// DiscoverCurrent returns the upstream's current external version label,
// for Latest mode's poll loop.
func (d *Discoverer) DiscoverCurrent(ctx context.Context, lister Lister) (string, error) {
	v, err := lister.CurrentVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("versiondiscovery: discover current: %w", err)
	}

	return v, nil
}

// DiscoverRange returns every external version label between start and end
// inclusive, ordered per the source's Ordering, for Historical mode's
// backfill sweep.
func (d *Discoverer) DiscoverRange(ctx context.Context, lister Lister, start, end string) ([]string, error) {
	all, err := lister.ListVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("versiondiscovery: discover range: %w", err)
	}

	ordering := lister.Ordering()
	var inRange []string
	for _, v := range all {
		if Compare(ordering, v, start) >= 0 && Compare(ordering, v, end) <= 0 {
			inRange = append(inRange, v)
		}
	}

	return inRange, nil
}

// ExistsInStore reports whether a Version row already exists for this
// organization under this external label, the idempotence check required
// before enqueuing a new Job.
func (d *Discoverer) ExistsInStore(ctx context.Context, organizationID int64, externalVersion string) (bool, error) {
	exists, err := d.store.ExistsWithExternalVersion(ctx, organizationID, externalVersion)
	if err != nil {
		return false, fmt.Errorf("versiondiscovery: exists in store: %w", err)
	}

	return exists, nil
}

// WasIngestedAsCurrent reports whether externalVersion is the Sync Status's
// recorded latest completion for (organization, sourceType), distinguishing
// "already have this version at all" (ExistsInStore) from "this is already
// the Latest-mode head".
//
// This is a deliberately narrower stand-in for a literal per-Job
// "is_current" flag: Sync Status holds only the single most-recently
// completed external version per (organization, source_type), so once a
// newer version finishes, an older version that genuinely was ingested as
// current will report false here. See DESIGN.md's Open Question decisions
// for why this substitution is in place and where it would need to change.
func (d *Discoverer) WasIngestedAsCurrent(ctx context.Context, organizationID int64, sourceType model.SourceType, externalVersion string) (bool, error) {
	status, err := d.store.Get(ctx, organizationID, sourceType)
	if err != nil {
		return false, nil //nolint:nilerr // first-ever ingestion: no Sync Status row yet is not an error here.
	}

	return status.ExternalVersion == externalVersion, nil
}
