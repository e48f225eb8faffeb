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
	"sort"

	"github.com/spf13/cobra"

	"github.com/refdata-org/ingestcore/internal/dbcore"
	"github.com/refdata-org/ingestcore/internal/jobstore"
)

func newFailuresCmd(databaseURL *string) *cobra.Command {
	var jobID int64

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "Show structured failure counts by kind for a job",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			db, err := dbcore.NewClient(ctx, *databaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			counts, err := jobstore.NewFailureRepository(db).CountsByKind(ctx, jobID)
			if err != nil {
				return fmt.Errorf("failure counts: %w", err)
			}

			kinds := make([]string, 0, len(counts))
			for kind := range counts {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)

			for _, kind := range kinds {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", kind, counts[kind])
			}

			return nil
		},
	}

	cmd.Flags().Int64Var(&jobID, "job-id", 0, "job id to show failure counts for (required)")
	_ = cmd.MarkFlagRequired("job-id")

	return cmd
}
