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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/jobstore"
	"github.com/refdata-org/ingestcore/internal/model"
)

func newListCmd(databaseURL *string) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			db, err := dbcore.NewClient(ctx, *databaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			jobs, err := jobstore.NewJobRepository(db).ListByStatus(ctx, model.JobStatus(status))
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			for _, j := range jobs {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\t%s\t%s\t%s\t%d/%d processed/stored\n",
					j.ID, j.OrganizationID, j.JobType, j.ExternalVersion, j.Status, j.RecordsProcessed, j.RecordsStored)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", string(model.JobPending), "job status to filter by")

	return cmd
}
