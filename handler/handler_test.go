//go:build small_tests || all_tests

package handler

import (
	"context"
	"net/http"
	"testing"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/mbland/emailcheck/events"
	"gotest.tools/assert"
)

func newTestHandler() (*Handler, *apiFixture) {
	f := newApiFixture()
	return NewHandler(f.handler, f.handler.Validator, f.handler.Log), f
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("ApiRequest", func(t *testing.T) {
		h, _ := newTestHandler()
		event := &Event{
			Type:       ApiRequest,
			ApiRequest: newApiGatewayRequest(http.MethodGet, HealthPath),
		}

		res, err := h.HandleEvent(ctx, event)

		assert.NilError(t, err)
		apiRes, ok := res.(*awsevents.APIGatewayV2HTTPResponse)
		assert.Assert(t, ok, "unexpected response type: %T", res)
		assert.Equal(t, http.StatusOK, apiRes.StatusCode)
	})

	t.Run("CommandLineEvent", func(t *testing.T) {
		h, _ := newTestHandler()
		event := &Event{
			Type: CommandLineEvent,
			CommandLineEvent: &events.CommandLineEvent{
				EmailCheckCommand: events.CommandLineCheckEvent,
				Check:             &events.CheckEvent{Content: testUpload},
			},
		}

		res, err := h.HandleEvent(ctx, event)

		assert.NilError(t, err)
		checkRes, ok := res.(*events.CheckResponse)
		assert.Assert(t, ok, "unexpected response type: %T", res)
		assert.Equal(t, 3, checkRes.Summary.Total)
	})

	t.Run("FailsOnNullEvent", func(t *testing.T) {
		h, _ := newTestHandler()

		res, err := h.HandleEvent(ctx, &Event{})

		assert.Assert(t, res == nil)
		assert.Error(t, err, "can't handle event type: Null event")
	})
}
