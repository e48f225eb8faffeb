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

// Package parse implements the Parse Stage: a fan-out Work Unit
// handler over ranges of a decompressed raw artifact, fronted by an
// on-disk decompression cache keyed by (org, external_version), mutated by
// at most one populator at a time while other readers wait on the
// sentinel.
package parse

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/refdata-org/ingestcore/internal/objectstore"
)

// Cache decompresses a raw artifact from the object store at most once per
// key, serving concurrent callers from the same in-flight population. This
// mirrors the localcache pattern (lib/localcache) of a
// process-local cache fronting a remote fetch, generalized with a
// singleflight-style gate so concurrent handlers for the same job don't
// each pay for their own decompression.
type Cache struct {
	dir     string
	objects objectstore.Store

	mu      sync.Mutex
	inFlight map[string]*populateResult
}

type populateResult struct {
	done chan struct{}
	key  string
	path string
	err  error
}

// NewCache constructs a Cache rooted at dir.
func NewCache(dir string, objects objectstore.Store) *Cache {
	return &Cache{dir: dir, objects: objects, inFlight: make(map[string]*populateResult)}
}

// Get returns the decompressed bytes for (orgSlug, externalVersion),
// populating the on-disk cache from objectKey on first access. Concurrent
// callers for the same key block on the same population rather than each
// decompressing independently.
func (c *Cache) Get(ctx context.Context, orgSlug, externalVersion, objectKey string) ([]byte, error) {
	key := orgSlug + "/" + externalVersion
	path := filepath.Join(c.dir, orgSlug, externalVersion+".raw")

	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	c.mu.Lock()
	result, populating := c.inFlight[key]
	if !populating {
		result = &populateResult{done: make(chan struct{}), key: key, path: path}
		c.inFlight[key] = result
		c.mu.Unlock()

		go c.populate(context.WithoutCancel(ctx), result, objectKey)
	} else {
		c.mu.Unlock()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-result.done:
	}

	if result.err != nil {
		return nil, result.err
	}

	return os.ReadFile(result.path)
}

func (c *Cache) populate(ctx context.Context, result *populateResult, objectKey string) {
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, result.key)
		c.mu.Unlock()
		close(result.done)
	}()

	blob, err := c.objects.ReadBlob(ctx, objectKey)
	if err != nil {
		result.err = fmt.Errorf("parse: read blob %q: %w", objectKey, err)

		return
	}

	decompressed, err := decompress(blob.Data)
	if err != nil {
		result.err = fmt.Errorf("parse: decompress %q: %w", objectKey, err)

		return
	}

	if err := os.MkdirAll(filepath.Dir(result.path), 0o755); err != nil {
		result.err = fmt.Errorf("parse: make cache dir: %w", err)

		return
	}

	tmp := result.path + ".tmp"
	if err := os.WriteFile(tmp, decompressed, 0o644); err != nil {
		result.err = fmt.Errorf("parse: write cache file: %w", err)

		return
	}
	if err := os.Rename(tmp, result.path); err != nil {
		result.err = fmt.Errorf("parse: rename cache file: %w", err)
	}
}

// decompress gunzips data if it looks gzip-encoded; otherwise it is
// returned verbatim, since not every source artifact is compressed.
func decompress(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}

	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
