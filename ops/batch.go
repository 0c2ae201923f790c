package ops

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the default number of concurrent verifications per batch.
const DefaultWorkers = 16

// AddressVerifier wraps the Verify method.
//
// Verify must return exactly one result per address and must not return an
// error for a bad address; failures are reported through the result itself.
type AddressVerifier interface {
	Verify(ctx context.Context, address string) ValidationResult
}

// BatchValidator verifies every candidate in a batch on a bounded pool of
// goroutines and summarizes the results.
type BatchValidator struct {
	Verifier AddressVerifier
	Workers  int
	Log      *log.Logger
}

// Validate returns the summary for candidates, preserving their order.
//
// The only error it returns comes from ctx being canceled before all
// candidates were verified, in which case no partial summary is returned.
func (b *BatchValidator) Validate(
	ctx context.Context, candidates []string,
) (*ValidationSummary, error) {
	results := make([]ValidationResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())

	for i, candidate := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = b.Verifier.Verify(gctx, candidate)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	} else if err = ctx.Err(); err != nil {
		return nil, err
	}

	summary := Summarize(results)
	b.Log.Printf(
		"validated %d addresses: %d valid, %d invalid",
		summary.Total, summary.Valid, summary.Invalid,
	)
	return summary, nil
}

func (b *BatchValidator) workers() int {
	if b.Workers <= 0 {
		return DefaultWorkers
	}
	return b.Workers
}
