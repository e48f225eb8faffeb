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
	"github.com/refdata-org/ingestcore/internal/workqueue"
)

func newRequeueCmd(databaseURL *string) *cobra.Command {
	var jobID int64

	cmd := &cobra.Command{
		Use:   "fail-requeue",
		Short: "Requeue every terminally failed work unit of a job",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			db, err := dbcore.NewClient(ctx, *databaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			workUnits := jobstore.NewWorkUnitRepository(db)
			queue := workqueue.New(db, 0) // maxRetries unused by RequeueFailed

			failed, err := workUnits.ListFailed(ctx, jobID)
			if err != nil {
				return fmt.Errorf("list failed units: %w", err)
			}

			var requeued int
			for _, u := range failed {
				if u.UnitType != model.UnitParse && u.UnitType != model.UnitStore {
					continue
				}
				if err := queue.RequeueFailed(ctx, u.ID); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "unit %d: %v\n", u.ID, err)

					continue
				}
				requeued++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "requeued %d/%d failed units for job %d\n", requeued, len(failed), jobID)

			return nil
		},
	}

	cmd.Flags().Int64Var(&jobID, "job-id", 0, "job id to requeue failed units for (required)")
	_ = cmd.MarkFlagRequired("job-id")

	return cmd
}
