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

// Package objectstore wraps the blob storage used for transient downloads
// and canonical version artifacts, adapting lib/gcpgcs.Client
// and lib/blobtypes's read/write option shapes to the ingestion layer's key
// conventions.
package objectstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/refdata-org/ingestcore/lib/blobtypes"
	"github.com/refdata-org/ingestcore/lib/gcpgcs"
)

// Store is the object storage surface the Download, Parse, and Store stage
// handlers use. It is satisfied by *Client; handlers depend on this
// interface so tests can substitute an in-memory fake.
type Store interface {
	WriteBlob(ctx context.Context, path string, data []byte, opts ...blobtypes.WriteOption) error
	ReadBlob(ctx context.Context, path string, opts ...blobtypes.ReadOption) (*blobtypes.Blob, error)
	Delete(ctx context.Context, path string) error
}

// Client adapts lib/gcpgcs.Client with the ingestion layer's path
// conventions.
type Client struct {
	*gcpgcs.Client
}

// NewClient dials the backing GCS bucket. It automatically respects
// STORAGE_EMULATOR_HOST when set, inherited from lib/gcpgcs.NewClient, which
// is how integration tests point this at a local fake-gcs-server.
func NewClient(ctx context.Context, bucket string) (*Client, error) {
	inner, err := gcpgcs.NewClient(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("objectstore: new client: %w", err)
	}

	return &Client{Client: inner}, nil
}

// TransientKey builds the scratch path for a freshly downloaded raw file,
// "ingest/<org>/<external_version>/<filename>". Nothing in this repository
// deletes these objects once their Job reaches a terminal status.
func TransientKey(orgSlug, externalVersion, filename string) string {
	return fmt.Sprintf("ingest/%s/%s/%s", orgSlug, externalVersion, filename)
}

// CanonicalKey builds the durable path for a published Version File:
// "<org>/<slug>/<major>.<minor>/<slug>.<format>".
func CanonicalKey(orgSlug, entrySlug string, major, minor int, format string) string {
	return fmt.Sprintf("%s/%s/%d.%d/%s.%s", orgSlug, entrySlug, major, minor, entrySlug, format)
}

// Checksum computes the sha256 hex digest used to verify downloads and to
// detect whether a newly parsed artifact's bytes actually changed from the
// previous Version (the no-op-bump check).
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}
