package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/mbland/emailcheck/ops"
)

// Suppressor wraps the IsSuppressed method.
//
// IsSuppressed checks whether an email address is on a suppression list, such
// as the [SES account-level suppression list].
//
// [SES account-level suppression list]: https://docs.aws.amazon.com/ses/latest/dg/sending-email-suppression-list.html
type Suppressor interface {
	IsSuppressed(ctx context.Context, email string) (bool, error)
}

type SesV2Api interface {
	GetSuppressedDestination(
		context.Context,
		*sesv2.GetSuppressedDestinationInput,
		...func(*sesv2.Options),
	) (*sesv2.GetSuppressedDestinationOutput, error)
}

// SesSuppressor checks the SES account-level suppression list.
//
// Throttle may be nil, in which case requests aren't paced.
type SesSuppressor struct {
	Client   SesV2Api
	Throttle Throttle
}

func (s *SesSuppressor) IsSuppressed(
	ctx context.Context, email string,
) (verdict bool, err error) {
	if s.Throttle != nil {
		if err = s.Throttle.Wait(ctx); err != nil {
			err = fmt.Errorf("suppression check throttled: %w", err)
			return
		}
	}

	input := &sesv2.GetSuppressedDestinationInput{EmailAddress: &email}
	var notFoundErr *types.NotFoundException

	if _, err = s.Client.GetSuppressedDestination(ctx, input); err == nil {
		verdict = true
	} else if errors.As(err, &notFoundErr) {
		err = nil
	} else {
		const errFmt = "unexpected error while checking if %s suppressed"
		err = ops.AwsError(fmt.Sprintf(errFmt, email), err)
	}
	return
}
