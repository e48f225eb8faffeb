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

// Package download implements the Download Stage: the
// Coordinator's single-worker, no-fan-out stage that fetches a Job's
// declared artifacts, verifies their digest, and uploads them to the
// transient object store namespace. Built on lib/httputils.HTTPFetcher,
// the same fetch-with-expected-status-codes wrapper a GitHub
// release downloader (lib/gh/download_file_from_release.go) uses.
package download

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/refdata-org/ingestcore/internal/errorsx"
	"github.com/refdata-org/ingestcore/internal/jobstore"
	"github.com/refdata-org/ingestcore/internal/metrics"
	"github.com/refdata-org/ingestcore/internal/model"
	"github.com/refdata-org/ingestcore/internal/objectstore"
	"github.com/refdata-org/ingestcore/internal/sourceplugin"
	"github.com/refdata-org/ingestcore/lib/fetchtypes"
	"github.com/refdata-org/ingestcore/lib/httputils"
)

// errDigestMismatch wraps errorsx.ErrIntegrityMismatch so callers can
// classify it with errorsx.ClassifyKind.
var errDigestMismatch = fmt.Errorf("download: computed digest does not match expected digest: %w", errorsx.ErrIntegrityMismatch)

// errDigestNotListed means the checksum artifact was fetched but named no
// entry for this artifact's filename.
var errDigestNotListed = errors.New("download: artifact not listed in checksum artifact")

// backoffSchedule is the retry policy: after the first attempt, up to three
// retries, waiting 5, 10 and 20 s before them.
var backoffSchedule = []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}

// Stage implements the Download Stage for one Job.
type Stage struct {
	rawFiles *jobstore.RawFileRepository
	objects  objectstore.Store
	client   *http.Client
	failures *jobstore.FailureRepository
}

// NewStage constructs a Stage.
func NewStage(rawFiles *jobstore.RawFileRepository, objects objectstore.Store, client *http.Client, failures *jobstore.FailureRepository) *Stage {
	if client == nil {
		client = http.DefaultClient
	}

	return &Stage{rawFiles: rawFiles, objects: objects, client: client, failures: failures}
}

// Run downloads every declared artifact of job, verifying digests and
// uploading verbatim bytes to the transient namespace. It short-circuits
// artifacts whose Raw File is already `verified`.
func (s *Stage) Run(ctx context.Context, log *slog.Logger, job *model.Job, orgSlug string, artifacts []sourceplugin.ArtifactDescriptor, baseURL string) error {
	for _, artifact := range artifacts {
		if err := s.runOne(ctx, log, job, orgSlug, artifact, baseURL); err != nil {
			return err
		}
	}

	return nil
}

func (s *Stage) runOne(ctx context.Context, log *slog.Logger, job *model.Job, orgSlug string, artifact sourceplugin.ArtifactDescriptor, baseURL string) error {
	existing, err := s.rawFiles.GetByJobAndType(ctx, job.ID, artifact.FileType)
	if err == nil && existing.Status == model.RawFileVerified {
		log.InfoContext(ctx, "download: raw file already verified, skipping", "job_id", job.ID, "file_type", artifact.FileType)

		return nil
	}

	expectedDigest, err := s.fetchExpectedDigest(ctx, log, baseURL, artifact)
	if err != nil {
		return fmt.Errorf("download: fetch expected digest for %q: %w", artifact.RelativePath, err)
	}

	raw := &model.RawFile{JobID: job.ID, FileType: artifact.FileType, Status: model.RawFileDownloading, ExpectedDigest: expectedDigest}
	if err := s.rawFiles.Create(ctx, raw); err != nil && !errors.Is(err, errorsx.ErrAlreadyExists) {
		return fmt.Errorf("download: create raw file: %w", err)
	}

	fullURL, err := url.JoinPath(baseURL, artifact.RelativePath)
	if err != nil {
		return fmt.Errorf("download: build url for %q: %w", artifact.RelativePath, err)
	}

	data, err := s.fetchWithRetry(ctx, log, fullURL)
	if err != nil {
		fetchErr := fmt.Errorf("download: fetch %q: %w", artifact.RelativePath, err)
		_ = s.rawFiles.MarkFailed(ctx, raw.ID, "")
		s.recordFailure(ctx, log, job.ID, fetchErr)

		return fetchErr
	}

	computed := checksum(data)
	if raw.ExpectedDigest != "" && computed != raw.ExpectedDigest {
		mismatchErr := fmt.Errorf("download: artifact %q: %w", artifact.RelativePath, errDigestMismatch)
		_ = s.rawFiles.MarkFailed(ctx, raw.ID, computed)
		s.recordFailure(ctx, log, job.ID, mismatchErr)

		return mismatchErr
	}

	key := objectstore.TransientKey(orgSlug, job.ExternalVersion, path.Base(artifact.RelativePath))
	if err := s.objects.WriteBlob(ctx, key, data); err != nil {
		uploadErr := fmt.Errorf("download: upload %q: %w", key, err)
		_ = s.rawFiles.MarkFailed(ctx, raw.ID, computed)
		s.recordFailure(ctx, log, job.ID, uploadErr)

		return uploadErr
	}

	if err := s.rawFiles.SetObjectKey(ctx, raw.ID, key); err != nil {
		return fmt.Errorf("download: set object key: %w", err)
	}
	if err := s.rawFiles.MarkVerified(ctx, raw.ID, computed); err != nil {
		return fmt.Errorf("download: mark verified: %w", err)
	}

	return nil
}

// recordFailure writes the structured failure row for one failed artifact.
// The Download Stage runs inline in the Coordinator rather than as a
// dispatched work unit, so its failures carry no WorkUnitID or WorkerID.
func (s *Stage) recordFailure(ctx context.Context, log *slog.Logger, jobID int64, cause error) {
	kind := errorsx.ClassifyKind(cause)
	metrics.FailuresTotal.WithLabelValues(string(kind)).Inc()

	if s.failures == nil {
		return
	}

	failure := model.IngestionFailure{JobID: jobID, Kind: string(kind), Message: cause.Error()}
	if err := s.failures.Record(ctx, failure); err != nil {
		log.ErrorContext(ctx, "download: failed to record structured failure", "job_id", jobID, "error", err)
	}
}

// fetchExpectedDigest fetches and parses the checksum artifact named by
// artifact.ExpectedDigestFrom, returning the hex digest listed for
// artifact's own filename. Only sha256sum-style listings are parsed (see
// parseExpectedDigest); metalink XML is not read. Returns "" if the artifact declares no checksum
// source, so the caller's mismatch check becomes a no-op for sources that
// don't publish one.
func (s *Stage) fetchExpectedDigest(ctx context.Context, log *slog.Logger, baseURL string, artifact sourceplugin.ArtifactDescriptor) (string, error) {
	if artifact.ExpectedDigestFrom == "" {
		return "", nil
	}

	digestURL, err := url.JoinPath(baseURL, artifact.ExpectedDigestFrom)
	if err != nil {
		return "", fmt.Errorf("download: build checksum url for %q: %w", artifact.ExpectedDigestFrom, err)
	}

	data, err := s.fetchWithRetry(ctx, log, digestURL)
	if err != nil {
		return "", fmt.Errorf("download: fetch checksum artifact %q: %w", artifact.ExpectedDigestFrom, err)
	}

	digest, ok := parseExpectedDigest(data, path.Base(artifact.RelativePath))
	if !ok {
		return "", fmt.Errorf("download: checksum artifact %q: %w", artifact.ExpectedDigestFrom, errDigestNotListed)
	}

	return digest, nil
}

// parseExpectedDigest reads sha256sum-style lines ("<hex digest>  <filename>",
// optionally with a leading "*" marking binary mode) and returns the digest
// for filename.
func parseExpectedDigest(data []byte, filename string) (string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}

		if strings.TrimPrefix(fields[1], "*") == filename {
			return strings.ToLower(fields[0]), true
		}
	}

	return "", false
}

// fetchWithRetry retries transient fetch failures on backoffSchedule: one
// initial attempt plus up to three retries after 5, 10 and 20 s.
func (s *Stage) fetchWithRetry(ctx context.Context, log *slog.Logger, fullURL string) ([]byte, error) {
	fetcher, err := httputils.NewHTTPFetcher(fullURL, s.client)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= len(backoffSchedule); attempt++ {
		body, err := fetcher.Fetch(ctx)
		if err == nil {
			defer body.Close()

			return io.ReadAll(body)
		}

		lastErr = err
		if !errors.Is(err, fetchtypes.ErrFailedToFetch) {
			return nil, err
		}
		if attempt == len(backoffSchedule) {
			break
		}

		log.WarnContext(ctx, "download: transient fetch failure, retrying", "url", fullURL, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoffSchedule[attempt]):
		}
	}

	return nil, lastErr
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}
