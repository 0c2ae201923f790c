//go:build small_tests || all_tests

package db

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/mbland/emailcheck/testutils"
)

// TestDynamoDbClient stores items in memory, keyed by DynamoDbPrimaryKey.
//
// dynamodb_contract_test.go validates the real table operations. This double
// lets the code that relies on them, such as CreateMxCacheTable and the
// cmd package, be tested more quickly and reliably.
type TestDynamoDbClient struct {
	ServerErr         error
	CreateTableInput  *dynamodb.CreateTableInput
	CreateTableOutput *dynamodb.CreateTableOutput
	CreateTableErr    error
	DescTableInput    *dynamodb.DescribeTableInput
	DescTableOutput   *dynamodb.DescribeTableOutput
	DescTableErr      error
	UpdateTtlInput    *dynamodb.UpdateTimeToLiveInput
	UpdateTtlOutput   *dynamodb.UpdateTimeToLiveOutput
	UpdateTtlErr      error
	GetItemErr        error
	PutItemErr        error
	Items             map[string]dbAttributes
}

// NewTestDynamoDbClient returns an initialized TestDynamoDbClient.
//
// Specifically, all of its *Output members are initialized to default non-nil
// values.
func NewTestDynamoDbClient() *TestDynamoDbClient {
	tableDesc := &types.TableDescription{
		TableName:   aws.String(""),
		TableStatus: types.TableStatusActive,
	}

	return &TestDynamoDbClient{
		CreateTableOutput: &dynamodb.CreateTableOutput{
			TableDescription: tableDesc,
		},
		DescTableOutput: &dynamodb.DescribeTableOutput{Table: tableDesc},
		UpdateTtlOutput: &dynamodb.UpdateTimeToLiveOutput{
			TimeToLiveSpecification: &types.TimeToLiveSpecification{},
		},
		Items: map[string]dbAttributes{},
	}
}

func (client *TestDynamoDbClient) SetAllErrors(msg string) {
	err := testutils.AwsServerError(msg)
	client.ServerErr = err
	client.CreateTableErr = err
	client.DescTableErr = err
	client.UpdateTtlErr = err
	client.GetItemErr = err
	client.PutItemErr = err
}

func (client *TestDynamoDbClient) SetCreateTableError(msg string) {
	client.CreateTableErr = testutils.AwsServerError(msg)
}

func (client *TestDynamoDbClient) SetDescribeTableError(msg string) {
	client.DescTableErr = testutils.AwsServerError(msg)
}

func (client *TestDynamoDbClient) SetUpdateTimeToLiveError(msg string) {
	client.UpdateTtlErr = testutils.AwsServerError(msg)
}

func (client *TestDynamoDbClient) CreateTable(
	_ context.Context,
	input *dynamodb.CreateTableInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.CreateTableOutput, error) {
	client.CreateTableInput = input
	return client.CreateTableOutput, client.CreateTableErr
}

func (client *TestDynamoDbClient) DescribeTable(
	_ context.Context,
	input *dynamodb.DescribeTableInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.DescribeTableOutput, error) {
	client.DescTableInput = input
	return client.DescTableOutput, client.DescTableErr
}

func (client *TestDynamoDbClient) UpdateTimeToLive(
	_ context.Context,
	input *dynamodb.UpdateTimeToLiveInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.UpdateTimeToLiveOutput, error) {
	client.UpdateTtlInput = input
	return client.UpdateTtlOutput, client.UpdateTtlErr
}

func (client *TestDynamoDbClient) DeleteTable(
	context.Context, *dynamodb.DeleteTableInput, ...func(*dynamodb.Options),
) (*dynamodb.DeleteTableOutput, error) {
	return nil, client.ServerErr
}

func (client *TestDynamoDbClient) GetItem(
	_ context.Context,
	input *dynamodb.GetItemInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.GetItemOutput, error) {
	if client.GetItemErr != nil {
		return nil, client.GetItemErr
	}
	key := itemKey(input.Key)
	return &dynamodb.GetItemOutput{Item: client.Items[key]}, nil
}

func (client *TestDynamoDbClient) PutItem(
	_ context.Context,
	input *dynamodb.PutItemInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.PutItemOutput, error) {
	if client.PutItemErr != nil {
		return nil, client.PutItemErr
	}
	client.Items[itemKey(input.Item)] = input.Item
	return &dynamodb.PutItemOutput{}, nil
}

func itemKey(attrs dbAttributes) (domain string) {
	domain, _ = (&dbParser{attrs}).GetString(DynamoDbPrimaryKey)
	return
}
