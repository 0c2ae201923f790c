//go:build small_tests || all_tests

package handler

import (
	"testing"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/mbland/emailcheck/events"
	"gotest.tools/assert"
)

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "Unknown event", (NullEvent - 2).String())
	assert.Equal(t, "Unexpected event", UnexpectedEvent.String())
	assert.Equal(t, "Null event", NullEvent.String())
	assert.Equal(t, "API Request event", ApiRequest.String())
	assert.Equal(t, "Command line event", CommandLineEvent.String())
}

func TestUnmarshalNullEventIsNop(t *testing.T) {
	e := Event{}

	err := e.UnmarshalJSON([]byte("null"))

	assert.NilError(t, err)
	assert.DeepEqual(t, Event{}, e)
}

func TestUnmarshalUnexpectedEventFails(t *testing.T) {
	e := Event{}

	err := e.UnmarshalJSON([]byte(`{ "foo": "bar" }`))

	assert.Error(t, err, `failed to parse unexpected event: { "foo": "bar" }`)
	assert.Equal(t, UnexpectedEvent, e.Type)
}

const apiRequestJson = `{
	"version": "2.0",
	"routeKey": "POST /api/validate-emails",
	"rawPath": "/api/validate-emails"
}`

func TestUnmarshalApiRequest(t *testing.T) {
	e := Event{}

	err := e.UnmarshalJSON([]byte(apiRequestJson))

	assert.NilError(t, err)
	assert.DeepEqual(t, Event{
		Type: ApiRequest,
		ApiRequest: &awsevents.APIGatewayV2HTTPRequest{
			Version:  "2.0",
			RouteKey: "POST /api/validate-emails",
			RawPath:  "/api/validate-emails",
		},
	}, e)
}

const commandLineEventJson = `{
	"emailcheckCommand": "Check",
	"check": {
		"content": "mbland@acm.org,bad-email"
	}
}`

func TestUnmarshalCommandLineEvent(t *testing.T) {
	e := Event{}

	err := e.UnmarshalJSON([]byte(commandLineEventJson))

	assert.NilError(t, err)
	assert.DeepEqual(t, Event{
		Type: CommandLineEvent,
		CommandLineEvent: &events.CommandLineEvent{
			EmailCheckCommand: events.CommandLineCheckEvent,
			Check: &events.CheckEvent{
				Content: "mbland@acm.org,bad-email",
			},
		},
	}, e)
}
