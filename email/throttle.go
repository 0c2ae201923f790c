package email

import (
	"context"

	"golang.org/x/time/rate"
)

// DefaultSuppressionCheckRate is the default number of SES suppression list
// requests allowed per second across all concurrent verifications.
const DefaultSuppressionCheckRate = 10

// Throttle paces requests to a rate limited upstream API.
//
// Wait blocks until the next request may proceed, or returns an error if ctx
// ends first. *rate.Limiter satisfies this interface.
type Throttle interface {
	Wait(ctx context.Context) error
}

// NewSesThrottle returns a Throttle allowing perSecond requests per second,
// with bursts of the same size.
//
// SES throttles its API requests per account, so a single Throttle should be
// shared by every SesSuppressor in the process.
func NewSesThrottle(perSecond int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}
