package handler

import (
	"context"
	"fmt"
	"log"

	"github.com/mbland/emailcheck/ops"
)

// Handler dispatches every type of event the Lambda function receives.
type Handler struct {
	api *ApiHandler
	cli *cliHandler
}

func NewHandler(
	api *ApiHandler, bv *ops.BatchValidator, logger *log.Logger,
) *Handler {
	return &Handler{api, &cliHandler{bv, logger}}
}

func (h *Handler) HandleEvent(ctx context.Context, event *Event) (any, error) {
	switch event.Type {
	case ApiRequest:
		return h.api.HandleApiEvent(ctx, event.ApiRequest), nil
	case CommandLineEvent:
		return h.cli.HandleEvent(ctx, event.CommandLineEvent)
	}
	return nil, fmt.Errorf("can't handle event type: %s", event.Type)
}
