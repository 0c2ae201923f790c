package handler

import (
	"context"
	"fmt"
	"log"

	"github.com/mbland/emailcheck/events"
	"github.com/mbland/emailcheck/ops"
)

type cliHandler struct {
	Validator *ops.BatchValidator
	Log       *log.Logger
}

func (h *cliHandler) HandleEvent(
	ctx context.Context, e *events.CommandLineEvent,
) (res any, err error) {
	switch e.EmailCheckCommand {
	case events.CommandLineCheckEvent:
		res = h.HandleCheckEvent(ctx, e.Check)
	default:
		err = fmt.Errorf("unknown emailcheck command: %s", e.EmailCheckCommand)
	}
	return
}

func (h *cliHandler) HandleCheckEvent(
	ctx context.Context, e *events.CheckEvent,
) (res *events.CheckResponse) {
	res = &events.CheckResponse{}
	var candidates []string
	var err error

	if e == nil {
		err = ops.ErrNoCandidates
	} else if candidates, err = ops.ParseCandidates(e.Content); err == nil {
		res.Summary, err = h.Validator.Validate(ctx, candidates)
	}

	if err != nil {
		res.Details = err.Error()
	} else {
		res.Success = true
	}

	const logFmt = "check: success: %t; num candidates: %d"
	h.Log.Printf(logFmt, res.Success, len(candidates))
	return
}
