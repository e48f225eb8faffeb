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

// Package config reads the operator-surface environment variables,
// following the configuration idiom of
// workflows/steps/services/web_feature_consumer/cmd/job/main.go: plain
// os.Getenv reads combined with cmp.Or for defaults, no config framework.
package config

import (
	"cmp"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Mode is the Mode Controller policy selector.
type Mode string

const (
	ModeLatest     Mode = "latest"
	ModeHistorical Mode = "historical"
)

// Worker holds the environment-derived configuration for a worker process.
type Worker struct {
	DatabaseURL      string
	ObjectStoreBucket string
	Threads          int
	HeartbeatInterval time.Duration
	WorkerTimeout     time.Duration
	MaxRetries        int
	CacheDir          string
}

// Source holds the per-source-type configuration env vars, e.g.
// INGEST_UNIPROT_BATCH_SIZE, INGEST_UNIPROT_MODE.
type Source struct {
	Name               string
	BatchSizeParse     int
	BatchSizeStore     int
	Mode               Mode
	IgnoreBefore       string
	HistoricalStart    string
	HistoricalEnd      string
	HistoricalBatchSize int
	HistoricalSkipExisting bool
}

const (
	defaultBatchSizeParse  = 2000
	defaultBatchSizeStore  = 100
	defaultHeartbeatSecs   = 30
	defaultWorkerTimeout   = 120
	defaultMaxRetries      = 5
	defaultThreads         = 4
)

// LoadWorker reads the ambient worker configuration from the environment.
func LoadWorker() (Worker, error) {
	heartbeat, err := envDurationSeconds("INGEST_HEARTBEAT_INTERVAL_SECS", defaultHeartbeatSecs)
	if err != nil {
		return Worker{}, err
	}

	timeout, err := envDurationSeconds("INGEST_WORKER_TIMEOUT_SECS", defaultWorkerTimeout)
	if err != nil {
		return Worker{}, err
	}

	maxRetries, err := envInt("INGEST_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		return Worker{}, err
	}

	threads, err := envInt("INGEST_WORKER_THREADS", defaultThreads)
	if err != nil {
		return Worker{}, err
	}

	return Worker{
		DatabaseURL:       os.Getenv("INGEST_DATABASE_URL"),
		ObjectStoreBucket: os.Getenv("INGEST_OBJECT_STORE_BUCKET"),
		Threads:           threads,
		HeartbeatInterval: heartbeat,
		WorkerTimeout:     timeout,
		MaxRetries:        maxRetries,
		CacheDir:          cmp.Or(os.Getenv("INGEST_CACHE_DIR"), "/var/cache/ingestcore"),
	}, nil
}

// LoadSource reads the per-source env vars for sourceName (upper-cased by
// the caller to match INGEST_<SOURCE>_* convention, e.g. "UNIPROT").
func LoadSource(sourceName string) (Source, error) {
	prefix := "INGEST_" + sourceName + "_"

	batchParse, err := envInt(prefix+"BATCH_SIZE", defaultBatchSizeParse)
	if err != nil {
		return Source{}, err
	}

	batchStore, err := envInt(prefix+"STORE_BATCH_SIZE", defaultBatchSizeStore)
	if err != nil {
		return Source{}, err
	}

	histBatch, err := envInt(prefix+"HISTORICAL_BATCH_SIZE", 1)
	if err != nil {
		return Source{}, err
	}

	skipExisting, err := envBool(prefix+"HISTORICAL_SKIP_EXISTING", true)
	if err != nil {
		return Source{}, err
	}

	mode := Mode(cmp.Or(os.Getenv(prefix+"MODE"), string(ModeLatest)))
	if mode != ModeLatest && mode != ModeHistorical {
		return Source{}, fmt.Errorf("config: invalid %sMODE %q", prefix, mode)
	}

	return Source{
		Name:                   sourceName,
		BatchSizeParse:         batchParse,
		BatchSizeStore:         batchStore,
		Mode:                   mode,
		IgnoreBefore:           os.Getenv(prefix + "IGNORE_BEFORE"),
		HistoricalStart:        os.Getenv(prefix + "HISTORICAL_START"),
		HistoricalEnd:          os.Getenv(prefix + "HISTORICAL_END"),
		HistoricalBatchSize:    histBatch,
		HistoricalSkipExisting: skipExisting,
	}, nil
}

func envInt(key string, def int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid int for %s: %w", key, err)
	}

	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: invalid bool for %s: %w", key, err)
	}

	return v, nil
}

func envDurationSeconds(key string, defSeconds int) (time.Duration, error) {
	v, err := envInt(key, defSeconds)
	if err != nil {
		return 0, err
	}

	return time.Duration(v) * time.Second, nil
}
