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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("INGEST_DATABASE_URL", "postgres://localhost/ingest")
	t.Setenv("INGEST_OBJECT_STORE_BUCKET", "my-bucket")

	w, err := LoadWorker()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/ingest", w.DatabaseURL)
	assert.Equal(t, "my-bucket", w.ObjectStoreBucket)
	assert.Equal(t, defaultThreads, w.Threads)
	assert.Equal(t, time.Duration(defaultHeartbeatSecs)*time.Second, w.HeartbeatInterval)
	assert.Equal(t, time.Duration(defaultWorkerTimeout)*time.Second, w.WorkerTimeout)
	assert.Equal(t, defaultMaxRetries, w.MaxRetries)
	assert.Equal(t, "/var/cache/ingestcore", w.CacheDir)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("INGEST_HEARTBEAT_INTERVAL_SECS", "10")
	t.Setenv("INGEST_WORKER_TIMEOUT_SECS", "45")
	t.Setenv("INGEST_MAX_RETRIES", "3")
	t.Setenv("INGEST_WORKER_THREADS", "8")
	t.Setenv("INGEST_CACHE_DIR", "/tmp/ingest-cache")

	w, err := LoadWorker()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, w.HeartbeatInterval)
	assert.Equal(t, 45*time.Second, w.WorkerTimeout)
	assert.Equal(t, 3, w.MaxRetries)
	assert.Equal(t, 8, w.Threads)
	assert.Equal(t, "/tmp/ingest-cache", w.CacheDir)
}

func TestLoadWorkerRejectsBadInt(t *testing.T) {
	t.Setenv("INGEST_MAX_RETRIES", "not-a-number")

	_, err := LoadWorker()
	assert.Error(t, err)
}

func TestLoadSourceDefaultsToLatestMode(t *testing.T) {
	s, err := LoadSource("UNIPROT")
	require.NoError(t, err)

	assert.Equal(t, "UNIPROT", s.Name)
	assert.Equal(t, ModeLatest, s.Mode)
	assert.Equal(t, defaultBatchSizeParse, s.BatchSizeParse)
	assert.Equal(t, defaultBatchSizeStore, s.BatchSizeStore)
	assert.True(t, s.HistoricalSkipExisting)
}

func TestLoadSourceHistoricalMode(t *testing.T) {
	t.Setenv("INGEST_PFAM_MODE", "historical")
	t.Setenv("INGEST_PFAM_HISTORICAL_START", "2020_01")
	t.Setenv("INGEST_PFAM_HISTORICAL_END", "2020_12")
	t.Setenv("INGEST_PFAM_HISTORICAL_SKIP_EXISTING", "false")

	s, err := LoadSource("PFAM")
	require.NoError(t, err)

	assert.Equal(t, ModeHistorical, s.Mode)
	assert.Equal(t, "2020_01", s.HistoricalStart)
	assert.Equal(t, "2020_12", s.HistoricalEnd)
	assert.False(t, s.HistoricalSkipExisting)
}

func TestLoadSourceRejectsInvalidMode(t *testing.T) {
	t.Setenv("INGEST_UNIPROT_MODE", "sideways")

	_, err := LoadSource("UNIPROT")
	assert.Error(t, err)
}
