// Copyright © 2023 Mike Bland <mbland@acm.org>.
// See LICENSE.txt for details.

package cmd

import (
	"time"

	"github.com/mbland/emailcheck/db"
	"github.com/spf13/cobra"
)

const createMxCacheTableDescription = `` +
	`Creates a new DynamoDB table for sharing MX lookup results.

Entries expire via the DynamoDB Time To Live feature once their MX_CACHE_TTL
elapses, so stale DNS results don't persist.

The command takes one argument, which is the name of the table to create. This
name will become the value of the MX_CACHE_TABLE_NAME environment variable
used to configure and deploy the application.`

func init() {
	rootCmd.AddCommand(newCreateMxCacheTableCmd(NewDynamoDb))
}

func newCreateMxCacheTableCmd(newDynDb DynamoDbFactoryFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "create-mx-cache-table",
		Short: "Create a DynamoDB table for cached MX lookups",
		Long:  createMxCacheTableDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			dyndb, err := newDynDb(args[0])
			if err != nil {
				return err
			}
			return createMxCacheTable(cmd, dyndb, time.Minute)
		},
	}
}

func createMxCacheTable(
	cmd *cobra.Command, dyndb *db.DynamoDb, maxWaitDuration time.Duration,
) (err error) {
	if err = dyndb.CreateMxCacheTable(
		cmd.Context(), maxWaitDuration,
	); err == nil {
		cmd.Printf("Successfully created DynamoDB table: %s\n", dyndb.TableName)
	}
	return
}
