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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refdata-org/ingestcore/internal/model"
)

type fakeLister struct {
	current  string
	versions []string
	ordering Ordering
	err      error
}

func (f *fakeLister) CurrentVersion(ctx context.Context) (string, error) {
	return f.current, f.err
}

func (f *fakeLister) ListVersions(ctx context.Context) ([]string, error) {
	return f.versions, f.err
}

func (f *fakeLister) Ordering() Ordering { return f.ordering }

type fakeStoreChecker struct {
	existing map[string]bool
	status   *model.SyncStatus
	getErr   error
}

func (f *fakeStoreChecker) ExistsWithExternalVersion(ctx context.Context, organizationID int64, externalVersion string) (bool, error) {
	return f.existing[externalVersion], nil
}

func (f *fakeStoreChecker) Get(ctx context.Context, organizationID int64, sourceType model.SourceType) (*model.SyncStatus, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	return f.status, nil
}

func TestDiscoverCurrent(t *testing.T) {
	d := NewDiscoverer(&fakeStoreChecker{})
	v, err := d.DiscoverCurrent(context.Background(), &fakeLister{current: "2024_03"})
	require.NoError(t, err)
	assert.Equal(t, "2024_03", v)
}

func TestDiscoverCurrentPropagatesListerError(t *testing.T) {
	d := NewDiscoverer(&fakeStoreChecker{})
	_, err := d.DiscoverCurrent(context.Background(), &fakeLister{err: errors.New("boom")})
	assert.Error(t, err)
}

func TestDiscoverRangeFiltersToBounds(t *testing.T) {
	d := NewDiscoverer(&fakeStoreChecker{})
	lister := &fakeLister{
		versions: []string{"1.0", "1.5", "2.0", "2.5", "3.0"},
		ordering: OrderingSemver,
	}

	got, err := d.DiscoverRange(context.Background(), lister, "1.5", "2.5")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.5", "2.0", "2.5"}, got)
}

func TestExistsInStore(t *testing.T) {
	d := NewDiscoverer(&fakeStoreChecker{existing: map[string]bool{"2024_03": true}})

	exists, err := d.ExistsInStore(context.Background(), 1, "2024_03")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = d.ExistsInStore(context.Background(), 1, "2024_04")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWasIngestedAsCurrent(t *testing.T) {
	d := NewDiscoverer(&fakeStoreChecker{status: &model.SyncStatus{ExternalVersion: "2024_03"}})

	was, err := d.WasIngestedAsCurrent(context.Background(), 1, model.SourceProtein, "2024_03")
	require.NoError(t, err)
	assert.True(t, was)

	was, err = d.WasIngestedAsCurrent(context.Background(), 1, model.SourceProtein, "2024_04")
	require.NoError(t, err)
	assert.False(t, was)
}

func TestWasIngestedAsCurrentNoSyncStatusRowIsNotAnError(t *testing.T) {
	d := NewDiscoverer(&fakeStoreChecker{getErr: errors.New("no rows")})

	was, err := d.WasIngestedAsCurrent(context.Background(), 1, model.SourceProtein, "2024_03")
	require.NoError(t, err)
	assert.False(t, was)
}
