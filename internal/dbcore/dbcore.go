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

// Package dbcore wraps the pgx connection pool the Job Store is built on.
// The wrapper shape (a struct embedding the driver client, a constructor
// validating required config up front) follows lib/gcpspanner/client.go's
// NewSpannerClient, adapted to pgx because the Work-Unit Queue's claim path
// needs row-level "FOR UPDATE SKIP LOCKED" semantics that Spanner does not
// expose the way Postgres does.
package dbcore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/refdata-org/ingestcore/internal/errorsx"
)

// ErrBadClientConfig indicates the pool configuration is invalid.
var ErrBadClientConfig = errors.New("dbcore: database URL must not be empty")

// Client wraps a pgx pool and is shared process-wide: the database
// connection pool is a process-wide singleton, initialized at startup and
// never reconfigured.
type Client struct {
	*pgxpool.Pool
}

// NewClient creates a pool-backed Client for databaseURL.
func NewClient(ctx context.Context, databaseURL string) (*Client, error) {
	if databaseURL == "" {
		return nil, ErrBadClientConfig
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("dbcore: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dbcore: establish pool: %w", err)
	}

	return &Client{pool}, nil
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on any error or panic. Every Store-Stage batch commit and
// every Work-Unit completion goes through this helper so the
// one-transaction-per-batch discipline holds in exactly one place.
func (c *Client) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := c.Pool.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(err)
	}

	return nil
}

// RetryTransient retries fn up to attempts times with exponential backoff
// when it fails with a transient error. Non-transient errors return
// immediately.
func RetryTransient(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errorsx.ClassifyTransient(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}
		delay := base * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// classify wraps driver-level errors that are known to be retriable with
// errorsx.ErrTransient so callers can use errors.Is uniformly, ensuring Job
// Store failures are never silently swallowed. Serialization failures,
// deadlocks and errors that carry no PostgreSQL error code (connection
// loss and other driver-level failures) count as transient; any other
// server-reported error, such as a foreign-key or check violation, is
// wrapped without ErrTransient.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("dbcore: %w: %w", errorsx.ErrTransient, err)
		case "23505": // unique_violation
			return fmt.Errorf("dbcore: %w: %w", errorsx.ErrAlreadyExists, err)
		default:
			return fmt.Errorf("dbcore: %w", err)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("dbcore: %w", errorsx.ErrNotFound)
	}

	return fmt.Errorf("dbcore: %w: %w", errorsx.ErrTransient, err)
}

// ClassifyError exposes classify to sibling packages (internal/jobstore,
// internal/workqueue) that issue queries directly against a pgx.Tx rather
// than through WithTx.
func ClassifyError(err error) error {
	return classify(err)
}

// ChunkSize is the bind-parameter-safe row count for bulk insert helpers,
// chunked to stay under the database's bind-parameter ceiling (nominally
// 500 rows per statement).
const ChunkSize = 500

// OpenSQL opens a database/sql handle over the same driver as Client, for
// tools that need the standard library interface instead of pgx's native
// one (internal/migrations' goose runner).
func OpenSQL(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("dbcore: open sql handle: %w", err)
	}

	return db, nil
}
