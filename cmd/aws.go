package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/mbland/emailcheck/db"
	"github.com/mbland/emailcheck/ops"
)

// FunctionArnKey is the CloudFormation stack output naming the Lambda ARN.
const FunctionArnKey = "FunctionArn"

// loadAwsConfig defers loading the AWS configuration until a command actually
// needs it, so that commands like "serve" and local "check" work without one.
var loadAwsConfig = sync.OnceValues(func() (cfg aws.Config, err error) {
	if cfg, err = config.LoadDefaultConfig(context.Background()); err != nil {
		err = fmt.Errorf("failed to load AWS config: %w", err)
	}
	return
})

type DynamoDbFactoryFunc func(tableName string) (*db.DynamoDb, error)

func NewDynamoDb(tableName string) (*db.DynamoDb, error) {
	cfg, err := loadAwsConfig()
	if err != nil {
		return nil, err
	}
	return db.NewDynamoDb(cfg, tableName), nil
}

type LambdaClient interface {
	Invoke(
		context.Context,
		*lambda.InvokeInput,
		...func(*lambda.Options),
	) (*lambda.InvokeOutput, error)
}

type LambdaClientFactoryFunc func() (LambdaClient, error)

func NewLambdaClient() (LambdaClient, error) {
	cfg, err := loadAwsConfig()
	if err != nil {
		return nil, err
	}
	return lambda.NewFromConfig(cfg), nil
}

type CloudFormationClient interface {
	DescribeStacks(
		context.Context,
		*cloudformation.DescribeStacksInput,
		...func(*cloudformation.Options),
	) (*cloudformation.DescribeStacksOutput, error)
}

type CloudFormationClientFactoryFunc func() (CloudFormationClient, error)

func NewCloudFormationClient() (CloudFormationClient, error) {
	cfg, err := loadAwsConfig()
	if err != nil {
		return nil, err
	}
	return cloudformation.NewFromConfig(cfg), nil
}

func GetLambdaArn(
	ctx context.Context, client CloudFormationClient, stackName string,
) (arn string, err error) {
	input := &cloudformation.DescribeStacksInput{StackName: &stackName}
	var output *cloudformation.DescribeStacksOutput

	if output, err = client.DescribeStacks(ctx, input); err != nil {
		err = ops.AwsError("failed to get Lambda ARN for "+stackName, err)
		return
	} else if len(output.Stacks) == 0 {
		err = errors.New("stack not found: " + stackName)
		return
	}

	for _, out := range output.Stacks[0].Outputs {
		if aws.ToString(out.OutputKey) == FunctionArnKey {
			return aws.ToString(out.OutputValue), nil
		}
	}
	const errFmt = `stack "%s" doesn't contain output key "%s"`
	err = fmt.Errorf(errFmt, stackName, FunctionArnKey)
	return
}
