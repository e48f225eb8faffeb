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

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/errorsx"
	"github.com/refdata-org/ingestcore/internal/jobstore"
)

func newTriggerCmd(databaseURL *string) *cobra.Command {
	var orgSlug, jobType, externalVersion string

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Manually create a Job for an organization and external version",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			db, err := dbcore.NewClient(ctx, *databaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			orgs := jobstore.NewOrganizationRepository(db)
			jobs := jobstore.NewJobRepository(db)

			org, err := orgs.GetBySlug(ctx, orgSlug)
			if err != nil {
				return fmt.Errorf("lookup organization %q: %w", orgSlug, err)
			}

			job, err := jobs.CreateJob(ctx, org.ID, jobType, externalVersion, nil)
			if err != nil && !errors.Is(err, errorsx.ErrAlreadyExists) {
				return fmt.Errorf("create job: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "job %d: %s/%s@%s (%s)\n", job.ID, orgSlug, jobType, externalVersion, job.Status)

			return nil
		},
	}

	cmd.Flags().StringVar(&orgSlug, "org", "", "organization slug (required)")
	cmd.Flags().StringVar(&jobType, "job-type", "", "job type, e.g. source name (required)")
	cmd.Flags().StringVar(&externalVersion, "external-version", "", "upstream external version label (required)")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("job-type")
	_ = cmd.MarkFlagRequired("external-version")

	return cmd
}
