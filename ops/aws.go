package ops

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// AwsError wraps server side AWS failures with ErrExternal.
//
// Inspired by:
// https://aws.github.io/aws-sdk-go-v2/docs/handling-errors/#api-error-responses
func AwsError(prefix string, err error) error {
	var apiErr smithy.APIError

	if errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultServer {
		return fmt.Errorf("%w: %s: %w", ErrExternal, prefix, err)
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
