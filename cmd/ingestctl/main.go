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

// Command ingestctl is the operator CLI matching this wire contract:
// trigger, list, fail-requeue, and failures against the Job Store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var databaseURL string

	root := &cobra.Command{
		Use:           "ingestctl",
		Short:         "Operate the ingestcore Job Store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("INGEST_DATABASE_URL"), "Job Store database URL")

	root.AddCommand(newTriggerCmd(&databaseURL))
	root.AddCommand(newListCmd(&databaseURL))
	root.AddCommand(newRequeueCmd(&databaseURL))
	root.AddCommand(newFailuresCmd(&databaseURL))

	return root
}
