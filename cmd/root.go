// Copyright © 2023 Mike Bland <mbland@acm.org>.
// See LICENSE.txt for details.

package cmd

import (
	"github.com/spf13/cobra"
)

const emailcheckDesc = "Bulk email address validation service"
const emailcheckDescLong = emailcheckDesc + "\n\n" +
	`Validates lists of email addresses for format, length, and disposable
domains, optionally checking SES suppression and DNS MX records as well.

To run the HTTP API locally:
  emailcheck serve --addr :8080

To validate a file of addresses without a server:
  emailcheck check addresses.csv

To validate a file using a deployed emailcheck Lambda function:
  emailcheck check -s <STACK_NAME> addresses.csv

To create a shared MX record cache table:
  emailcheck create-mx-cache-table <TABLE_NAME>
`

var rootCmd = &cobra.Command{
	Use:     "emailcheck",
	Version: "v0.1.0",
	Short:   emailcheckDesc,
	Long:    emailcheckDescLong,
}

func Execute() error {
	return rootCmd.Execute()
}
