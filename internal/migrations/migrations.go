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

// Package migrations embeds and applies the goose SQL migrations that
// create the Job Store schema, following the embed.FS-plus-goose.SetBaseFS
// convention the pack's integration suite drives migrations with
// (jordigilh-kubernaut's datastorage suite_test.go
// applies these same "-- +goose Up"/"-- +goose Down" files by hand; here
// we drive them with goose's own runner instead of re-parsing the files).
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// Up applies every not-yet-applied migration to db.
func Up(db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, sqlFiles, goose.WithDisableVersioning(false))
	if err != nil {
		return fmt.Errorf("migrations: create provider: %w", err)
	}

	if _, err := provider.Up(); err != nil {
		return fmt.Errorf("migrations: apply: %w", err)
	}

	return nil
}

// Down rolls back the most recently applied migration.
func Down(db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, sqlFiles, goose.WithDisableVersioning(false))
	if err != nil {
		return fmt.Errorf("migrations: create provider: %w", err)
	}

	if _, err := provider.Down(); err != nil {
		return fmt.Errorf("migrations: rollback: %w", err)
	}

	return nil
}
