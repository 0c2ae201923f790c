package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	ltypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/mbland/emailcheck/ops"
)

// EmailCheckFunc invokes a deployed emailcheck Lambda function with a
// command line event and decodes its response.
type EmailCheckFunc interface {
	Invoke(ctx context.Context, request, response any) error
}

type EmailCheckFactoryFunc func(stackName string) (EmailCheckFunc, error)

type EmailCheckLambda struct {
	Client LambdaClient
	Arn    string
}

func NewEmailCheckLambda(stackName string) (EmailCheckFunc, error) {
	return newEmailCheckLambdaFactory(
		NewCloudFormationClient, NewLambdaClient,
	)(stackName)
}

func newEmailCheckLambdaFactory(
	newCfClient CloudFormationClientFactoryFunc,
	newLambdaClient LambdaClientFactoryFunc,
) EmailCheckFactoryFunc {
	return func(stackName string) (f EmailCheckFunc, err error) {
		var cfc CloudFormationClient
		var lc LambdaClient
		var arn string

		if cfc, err = newCfClient(); err != nil {
			return
		} else if arn, err = GetLambdaArn(
			context.Background(), cfc, stackName,
		); err != nil {
			return
		} else if lc, err = newLambdaClient(); err != nil {
			return
		}
		return &EmailCheckLambda{Client: lc, Arn: arn}, nil
	}
}

// Invoke marshals request into the Lambda payload and unmarshals the result
// into response.
//
// See:
// - https://docs.aws.amazon.com/lambda/latest/dg/invocation-sync.html
// - https://pkg.go.dev/github.com/aws/aws-sdk-go-v2/service/lambda#Client.Invoke
func (l *EmailCheckLambda) Invoke(
	ctx context.Context, request, response any,
) (err error) {
	var payload []byte
	var output *lambda.InvokeOutput

	if payload, err = json.Marshal(request); err != nil {
		return fmt.Errorf("error creating Lambda payload: %w", err)
	}

	input := &lambda.InvokeInput{
		FunctionName: aws.String(l.Arn),
		LogType:      ltypes.LogTypeTail,
		Payload:      payload,
	}

	if output, err = l.Client.Invoke(ctx, input); err != nil {
		err = ops.AwsError("error invoking Lambda function", err)
	} else if output.StatusCode != http.StatusOK {
		const errFmt = "received non-200 response from Lambda invocation: %s"
		err = fmt.Errorf(errFmt, http.StatusText(int(output.StatusCode)))
	} else if output.FunctionError != nil {
		const errFmt = "%w: error executing Lambda function: %s: %s"
		funcErr := aws.ToString(output.FunctionError)
		err = fmt.Errorf(errFmt, ops.ErrExternal, funcErr, output.Payload)
	} else if err = json.Unmarshal(output.Payload, response); err != nil {
		const errFmt = "failed to unmarshal Lambda response payload: %w: %s"
		err = fmt.Errorf(errFmt, err, output.Payload)
	}
	return
}
