//go:build small_tests || all_tests

package cmd

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

type CommandTestFixture struct {
	Cmd    *cobra.Command
	Stdout *strings.Builder
	Stderr *strings.Builder
}

func NewCommandTestFixture(cmd *cobra.Command) (f *CommandTestFixture) {
	f = &CommandTestFixture{
		Cmd:    cmd,
		Stdout: &strings.Builder{},
		Stderr: &strings.Builder{},
	}
	cmd.SetOut(f.Stdout)
	cmd.SetErr(f.Stderr)
	cmd.SetArgs([]string{})
	return
}

func (f *CommandTestFixture) ExecuteAndAssertStdoutContains(
	t *testing.T, expectedOutput string,
) {
	t.Helper()

	err := f.Cmd.Execute()

	assert.NilError(t, err)
	assert.Assert(t, is.Contains(f.Stdout.String(), expectedOutput))
}

func (f *CommandTestFixture) ExecuteAndAssertErrorContains(
	t *testing.T, expectedErrMsg string,
) (err error) {
	t.Helper()

	err = f.Cmd.Execute()

	assert.ErrorContains(t, err, expectedErrMsg)
	assert.Assert(t, is.Contains(f.Stderr.String(), expectedErrMsg))
	return
}
