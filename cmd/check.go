// Copyright © 2023 Mike Bland <mbland@acm.org>.
// See LICENSE.txt for details.

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mbland/emailcheck/events"
	"github.com/mbland/emailcheck/handler"
	"github.com/mbland/emailcheck/ops"
	"github.com/spf13/cobra"
)

const checkDescription = `` +
	`Validates a list of email addresses and prints a JSON summary

Reads addresses from FILE, or from standard input if FILE is omitted. Addresses
may be separated by newlines or commas, as with the /api/validate-emails
endpoint.

Without --stack-name, validates the addresses locally using the same
environment variables as "serve". With --stack-name, sends the addresses to the
Lambda function deployed by that CloudFormation stack instead.`

// ValidatorFactoryFunc builds the validator used by "check" when no stack name
// is given.
type ValidatorFactoryFunc func(
	ctx context.Context, logger *log.Logger,
) (*ops.BatchValidator, error)

func NewLocalValidator(
	ctx context.Context, logger *log.Logger,
) (*ops.BatchValidator, error) {
	opts, err := handler.GetOptions(os.Getenv)
	if err != nil {
		return nil, err
	}
	return handler.NewBatchValidator(
		ctx, opts, nil, handler.LoadDefaultAwsConfig, logger,
	)
}

func init() {
	rootCmd.AddCommand(newCheckCmd(NewLocalValidator, NewEmailCheckLambda))
}

func newCheckCmd(
	newValidator ValidatorFactoryFunc, newFunc EmailCheckFactoryFunc,
) (cmd *cobra.Command) {
	cmd = &cobra.Command{
		Use:   "check [FILE]",
		Short: "Validate a list of email addresses",
		Long:  checkDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			content, err := readCheckInput(cmd, args)
			if err != nil {
				return err
			}

			var summary *ops.ValidationSummary
			if stackName := getStackName(cmd); stackName != "" {
				summary, err = checkRemote(cmd, newFunc, stackName, content)
			} else {
				summary, err = checkLocal(cmd, newValidator, content)
			}
			if err != nil {
				return err
			}
			return printSummary(cmd, summary)
		},
	}
	registerStackName(cmd)
	return
}

func readCheckInput(cmd *cobra.Command, args []string) (string, error) {
	input := cmd.InOrStdin()
	source := "stdin"

	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		input = f
		source = args[0]
	}

	content, err := ops.ReadLimited(input, ops.MaxUploadBytes)

	if errors.Is(err, ops.ErrFileTooLarge) {
		return "", fmt.Errorf("%s: %w", source, err)
	} else if err != nil {
		const errFmt = "failed to read addresses from %s: %w"
		return "", fmt.Errorf(errFmt, source, err)
	}
	return string(content), nil
}

func checkLocal(
	cmd *cobra.Command, newValidator ValidatorFactoryFunc, content string,
) (summary *ops.ValidationSummary, err error) {
	ctx := cmd.Context()
	logger := log.New(cmd.ErrOrStderr(), "", 0)
	var candidates []string
	var bv *ops.BatchValidator

	if candidates, err = ops.ParseCandidates(content); err != nil {
		return
	} else if bv, err = newValidator(ctx, logger); err != nil {
		return
	}
	return bv.Validate(ctx, candidates)
}

func checkRemote(
	cmd *cobra.Command,
	newFunc EmailCheckFactoryFunc,
	stackName string,
	content string,
) (summary *ops.ValidationSummary, err error) {
	var checkFunc EmailCheckFunc

	if checkFunc, err = newFunc(stackName); err != nil {
		return
	}

	evt := &events.CommandLineEvent{
		EmailCheckCommand: events.CommandLineCheckEvent,
		Check:             &events.CheckEvent{Content: content},
	}
	var response events.CheckResponse

	if err = checkFunc.Invoke(cmd.Context(), evt, &response); err != nil {
		err = fmt.Errorf("check failed: %w", err)
	} else if !response.Success {
		err = fmt.Errorf("check failed: %s", response.Details)
	} else if response.Summary == nil {
		err = errors.New("check failed: response contained no summary")
	} else {
		summary = response.Summary
	}
	return
}

func printSummary(cmd *cobra.Command, summary *ops.ValidationSummary) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
