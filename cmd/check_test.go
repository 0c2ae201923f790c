//go:build small_tests || all_tests

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mbland/emailcheck/email"
	"github.com/mbland/emailcheck/events"
	"github.com/mbland/emailcheck/ops"
	"github.com/mbland/emailcheck/testutils"
	"gotest.tools/assert"
)

type errReader struct {
}

func (er *errReader) Read(_ []byte) (int, error) {
	return 0, errors.New("test read error")
}

const testAddresses = "foo@test.com,not-an-address\nbar@mailinator.com\n"

func newTestValidator(
	_ context.Context, logger *log.Logger,
) (*ops.BatchValidator, error) {
	v := &email.Validator{
		Disposable: email.DefaultDisposableDomains(), Log: logger,
	}
	return &ops.BatchValidator{Verifier: v, Workers: 2, Log: logger}, nil
}

func parseSummary(t *testing.T, output string) (s *ops.ValidationSummary) {
	t.Helper()
	assert.NilError(t, json.Unmarshal([]byte(output), &s))
	return
}

func TestCheckLocal(t *testing.T) {
	setup := func() (f *CommandTestFixture, lambda *TestEmailCheckFunc) {
		lambda = NewTestEmailCheckFunc()
		f = NewCommandTestFixture(
			newCheckCmd(newTestValidator, lambda.GetFactoryFunc()),
		)
		f.Cmd.SetIn(strings.NewReader(testAddresses))
		return
	}

	t.Run("SucceedsReadingStdin", func(t *testing.T) {
		f, lambda := setup()

		err := f.Cmd.Execute()

		assert.NilError(t, err)
		assert.Assert(t, f.Cmd.SilenceUsage == true)
		s := parseSummary(t, f.Stdout.String())
		assert.Equal(t, 3, s.Total)
		assert.Equal(t, 1, s.Valid)
		assert.Equal(t, 2, s.Invalid)
		assert.DeepEqual(t, []ops.EmailOnly{{Email: "foo@test.com"}},
			s.ValidEmailsList)
		assert.Equal(t, ops.ReasonInvalidFormat, *s.Results[1].Reason)
		assert.Equal(t, ops.ReasonDisposable, *s.Results[2].Reason)
		assert.Equal(t, "", lambda.StackName)
		assert.Assert(t, lambda.InvokeReq == nil)
	})

	t.Run("SucceedsReadingFile", func(t *testing.T) {
		f, _ := setup()
		path := filepath.Join(t.TempDir(), "addresses.txt")
		assert.NilError(t, os.WriteFile(path, []byte("foo@test.com"), 0600))
		f.Cmd.SetArgs([]string{path})

		err := f.Cmd.Execute()

		assert.NilError(t, err)
		s := parseSummary(t, f.Stdout.String())
		assert.Equal(t, 1, s.Total)
		assert.Equal(t, 1, s.Valid)
	})

	t.Run("FailsIfFileDoesNotExist", func(t *testing.T) {
		f, _ := setup()
		f.Cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nonexistent")})

		f.ExecuteAndAssertErrorContains(t, "failed to open input file: ")
	})

	t.Run("FailsIfCannotReadInput", func(t *testing.T) {
		f, _ := setup()
		f.Cmd.SetIn(&errReader{})

		const expectedErr = "failed to read addresses from stdin: " +
			"test read error"
		f.ExecuteAndAssertErrorContains(t, expectedErr)
	})

	t.Run("FailsIfInputTooLarge", func(t *testing.T) {
		f, _ := setup()
		input := strings.Repeat("x", int(ops.MaxUploadBytes)+1)
		f.Cmd.SetIn(strings.NewReader(input))

		const expectedErr = "stdin: File size exceeds upload limit: "
		err := f.ExecuteAndAssertErrorContains(t, expectedErr)

		assert.Assert(t, testutils.ErrorIs(err, ops.ErrFileTooLarge))
	})

	t.Run("FailsIfNoCandidates", func(t *testing.T) {
		f, _ := setup()
		f.Cmd.SetIn(strings.NewReader(" ,\n , "))

		err := f.ExecuteAndAssertErrorContains(t, string(ops.ErrNoCandidates))

		assert.Assert(t, testutils.ErrorIs(err, ops.ErrNoCandidates))
	})

	t.Run("FailsIfValidatorCannotBeCreated", func(t *testing.T) {
		f := NewCommandTestFixture(newCheckCmd(
			func(context.Context, *log.Logger) (*ops.BatchValidator, error) {
				return nil, errors.New("bad configuration")
			},
			NewTestEmailCheckFunc().GetFactoryFunc(),
		))
		f.Cmd.SetIn(strings.NewReader(testAddresses))

		f.ExecuteAndAssertErrorContains(t, "bad configuration")
	})
}

func TestCheckRemote(t *testing.T) {
	setup := func() (f *CommandTestFixture, lambda *TestEmailCheckFunc) {
		lambda = NewTestEmailCheckFunc()
		lambda.InvokeResJson = []byte(`{
			"success": true,
			"summary": {
				"total": 2,
				"valid": 1,
				"invalid": 1,
				"validEmails": [
					{"email": "foo@test.com", "valid": true, "reason": null}
				],
				"invalidEmails": [{
					"email": "bar@mailinator.com",
					"valid": false,
					"reason": "Disposable email detected"
				}],
				"validEmailsList": [{"email": "foo@test.com"}],
				"results": [
					{"email": "foo@test.com", "valid": true, "reason": null},
					{
						"email": "bar@mailinator.com",
						"valid": false,
						"reason": "Disposable email detected"
					}
				]
			}
		}`)
		newValidator := func(
			context.Context, *log.Logger,
		) (*ops.BatchValidator, error) {
			return nil, errors.New("local validator shouldn't be created")
		}
		f = NewCommandTestFixture(
			newCheckCmd(newValidator, lambda.GetFactoryFunc()),
		)
		f.Cmd.SetIn(strings.NewReader(testAddresses))
		f.Cmd.SetArgs([]string{"-s", TestStackName})
		return
	}

	t.Run("Succeeds", func(t *testing.T) {
		f, lambda := setup()

		err := f.Cmd.Execute()

		assert.NilError(t, err)
		assert.Equal(t, TestStackName, lambda.StackName)
		expectedReq := &events.CommandLineEvent{
			EmailCheckCommand: events.CommandLineCheckEvent,
			Check:             &events.CheckEvent{Content: testAddresses},
		}
		assert.DeepEqual(t, expectedReq, lambda.InvokeReq)
		s := parseSummary(t, f.Stdout.String())
		assert.Equal(t, 2, s.Total)
		assert.Equal(t, 1, s.Valid)
		assert.Equal(t, "bar@mailinator.com", s.InvalidEmails[0].Email)
	})

	t.Run("FailsIfCreatingLambdaFails", func(t *testing.T) {
		f, lambda := setup()
		const errFmt = "%w: creating lambda failed"
		lambda.CreateFuncError = fmt.Errorf(errFmt, ops.ErrExternal)

		err := f.ExecuteAndAssertErrorContains(t, "creating lambda failed")

		assert.Assert(t, testutils.ErrorIs(err, ops.ErrExternal))
	})

	t.Run("FailsIfInvokingLambdaFails", func(t *testing.T) {
		f, lambda := setup()
		lambda.InvokeError = fmt.Errorf("%w: invoke failed", ops.ErrExternal)

		err := f.ExecuteAndAssertErrorContains(t, "check failed: ")

		assert.ErrorContains(t, err, "invoke failed")
		assert.Assert(t, testutils.ErrorIs(err, ops.ErrExternal))
	})

	t.Run("FailsIfCheckFailed", func(t *testing.T) {
		f, lambda := setup()
		lambda.InvokeResJson = []byte(
			`{"success": false, "details": "No valid emails found in file"}`,
		)

		const expectedErr = "check failed: No valid emails found in file"
		f.ExecuteAndAssertErrorContains(t, expectedErr)
	})

	t.Run("FailsIfResponseHasNoSummary", func(t *testing.T) {
		f, lambda := setup()
		lambda.InvokeResJson = []byte(`{"success": true}`)

		const expectedErr = "check failed: response contained no summary"
		f.ExecuteAndAssertErrorContains(t, expectedErr)
	})
}
