//go:build small_tests || all_tests

package ops

import (
	"errors"
	"fmt"
	"testing"

	"gotest.tools/assert"
)

func TestSentinelError(t *testing.T) {
	t.Run("ReturnsItselfFromErrorMethod", func(t *testing.T) {
		assert.Equal(t, string(ErrExternal), ErrExternal.Error())
	})

	t.Run("MatchesWhenWrapped", func(t *testing.T) {
		err := fmt.Errorf("%w: 5242880 bytes", ErrFileTooLarge)

		assert.Assert(t, errors.Is(err, ErrFileTooLarge))
		assert.Assert(t, !errors.Is(err, ErrNoCandidates))
	})
}
