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

package modecontroller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refdata-org/ingestcore/internal/config"
	"github.com/refdata-org/ingestcore/internal/errorsx"
	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/versiondiscovery"
)

type fakeLister struct {
	current  string
	versions []string
}

func (f *fakeLister) CurrentVersion(ctx context.Context) (string, error) { return f.current, nil }
func (f *fakeLister) ListVersions(ctx context.Context) ([]string, error) { return f.versions, nil }
func (f *fakeLister) Ordering() versiondiscovery.Ordering                { return versiondiscovery.OrderingSemver }

type fakeStoreChecker struct {
	existing map[string]bool
	status   *model.SyncStatus
}

func (f *fakeStoreChecker) ExistsWithExternalVersion(ctx context.Context, organizationID int64, externalVersion string) (bool, error) {
	return f.existing[externalVersion], nil
}

func (f *fakeStoreChecker) Get(ctx context.Context, organizationID int64, sourceType model.SourceType) (*model.SyncStatus, error) {
	if f.status == nil {
		return nil, errors.New("no rows")
	}

	return f.status, nil
}

type fakeJobCreator struct {
	created []string
	failAt  map[string]bool
}

func (f *fakeJobCreator) CreateJob(ctx context.Context, organizationID int64, jobType, externalVersion string, metadata map[string]any) (*model.Job, error) {
	if f.failAt[externalVersion] {
		return nil, errors.New("insert failed")
	}

	f.created = append(f.created, externalVersion)

	return &model.Job{ExternalVersion: externalVersion}, nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunLatestCreatesJobWhenNewerThanSyncStatus(t *testing.T) {
	jobs := &fakeJobCreator{}
	c := New(versiondiscovery.NewDiscoverer(&fakeStoreChecker{status: &model.SyncStatus{ExternalVersion: "1.0.0"}}), jobs)

	job, err := c.RunLatest(context.Background(), silentLogger(), &fakeLister{current: "1.1.0"}, 1, model.SourceProtein, "ingest", config.Source{})
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, []string{"1.1.0"}, jobs.created)
}

func TestRunLatestNoOpWhenAlreadyCurrent(t *testing.T) {
	jobs := &fakeJobCreator{}
	c := New(versiondiscovery.NewDiscoverer(&fakeStoreChecker{status: &model.SyncStatus{ExternalVersion: "1.1.0"}}), jobs)

	job, err := c.RunLatest(context.Background(), silentLogger(), &fakeLister{current: "1.1.0"}, 1, model.SourceProtein, "ingest", config.Source{})
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.Empty(t, jobs.created)
}

func TestRunLatestNoOpBelowCutoff(t *testing.T) {
	jobs := &fakeJobCreator{}
	c := New(versiondiscovery.NewDiscoverer(&fakeStoreChecker{}), jobs)

	job, err := c.RunLatest(context.Background(), silentLogger(), &fakeLister{current: "1.0.0"}, 1, model.SourceProtein, "ingest", config.Source{IgnoreBefore: "2.0.0"})
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.Empty(t, jobs.created)
}

func TestRunLatestToleratesAlreadyExistsFromCreate(t *testing.T) {
	c := New(versiondiscovery.NewDiscoverer(&fakeStoreChecker{}), raceJobCreator{})

	job, err := c.RunLatest(context.Background(), silentLogger(), &fakeLister{current: "1.0.0"}, 1, model.SourceProtein, "ingest", config.Source{})
	require.NoError(t, err)
	assert.Nil(t, job)
}

type raceJobCreator struct{}

func (raceJobCreator) CreateJob(ctx context.Context, organizationID int64, jobType, externalVersion string, metadata map[string]any) (*model.Job, error) {
	return nil, errorsx.ErrAlreadyExists
}

func TestRunHistoricalSkipsExistingAndAlreadyCurrent(t *testing.T) {
	jobs := &fakeJobCreator{}
	discoverer := versiondiscovery.NewDiscoverer(&fakeStoreChecker{
		existing: map[string]bool{"1.0.0": true},
		status:   &model.SyncStatus{ExternalVersion: "2.0.0"},
	})
	c := New(discoverer, jobs)

	lister := &fakeLister{versions: []string{"1.0.0", "2.0.0", "3.0.0"}}
	cfg := config.Source{HistoricalStart: "1.0.0", HistoricalEnd: "3.0.0", HistoricalSkipExisting: true, HistoricalBatchSize: 1}

	created, err := c.RunHistorical(context.Background(), silentLogger(), lister, 1, model.SourceProtein, "ingest", cfg)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "3.0.0", created[0].ExternalVersion)
}

func TestRunHistoricalContinuesPastPerVersionFailure(t *testing.T) {
	jobs := &fakeJobCreator{failAt: map[string]bool{"2.0.0": true}}
	discoverer := versiondiscovery.NewDiscoverer(&fakeStoreChecker{})
	c := New(discoverer, jobs)

	lister := &fakeLister{versions: []string{"1.0.0", "2.0.0", "3.0.0"}}
	cfg := config.Source{HistoricalStart: "1.0.0", HistoricalEnd: "3.0.0"}

	created, err := c.RunHistorical(context.Background(), silentLogger(), lister, 1, model.SourceProtein, "ingest", cfg)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, []string{"1.0.0", "3.0.0"}, jobs.created)
}
