package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/mbland/emailcheck/email"
	"github.com/mbland/emailcheck/ops"
)

type DynamoDbClient interface {
	CreateTable(
		context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options),
	) (*dynamodb.CreateTableOutput, error)

	DescribeTable(
		context.Context,
		*dynamodb.DescribeTableInput,
		...func(*dynamodb.Options),
	) (*dynamodb.DescribeTableOutput, error)

	UpdateTimeToLive(
		context.Context,
		*dynamodb.UpdateTimeToLiveInput,
		...func(*dynamodb.Options),
	) (*dynamodb.UpdateTimeToLiveOutput, error)

	DeleteTable(
		context.Context, *dynamodb.DeleteTableInput, ...func(*dynamodb.Options),
	) (*dynamodb.DeleteTableOutput, error)

	GetItem(
		context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options),
	) (*dynamodb.GetItemOutput, error)

	PutItem(
		context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options),
	) (*dynamodb.PutItemOutput, error)
}

// DynamoDb is an email.MxCache shared by every process with access to the
// table, such as concurrent Lambda instances.
//
// https://docs.aws.amazon.com/amazondynamodb/latest/developerguide/WorkingWithItems.html
type DynamoDb struct {
	Client    DynamoDbClient
	TableName string
}

func NewDynamoDb(
	cfg aws.Config, tableName string, optFns ...func(*dynamodb.Options),
) *DynamoDb {
	return &DynamoDb{dynamodb.NewFromConfig(cfg, optFns...), tableName}
}

var DynamoDbPrimaryKey string = "domain"

// DynamoDbTtlAttribute holds the Unix time at which an entry expires. The
// DynamoDB Time To Live feature eventually removes expired entries; until it
// does, email.MxChecker ignores them.
var DynamoDbTtlAttribute string = "expires"

var DynamoDbCreateTableInput = &dynamodb.CreateTableInput{
	AttributeDefinitions: []types.AttributeDefinition{
		{
			AttributeName: &DynamoDbPrimaryKey,
			AttributeType: types.ScalarAttributeTypeS,
		},
	},
	KeySchema: []types.KeySchemaElement{
		{AttributeName: &DynamoDbPrimaryKey, KeyType: types.KeyTypeHash},
	},
	BillingMode: types.BillingModePayPerRequest,
}

// CreateMxCacheTable creates the table, waits up to maxWaitDuration for it to
// become active, then enables Time To Live on DynamoDbTtlAttribute.
func (db *DynamoDb) CreateMxCacheTable(
	ctx context.Context, maxWaitDuration time.Duration,
) (err error) {
	const sleepDuration = 5 * time.Second
	maxAttempts := max(int(maxWaitDuration/sleepDuration), 1)
	sleep := func() { time.Sleep(sleepDuration) }

	if err = db.CreateTable(ctx); err != nil {
		return
	} else if err = db.WaitForTable(ctx, maxAttempts, sleep); err != nil {
		return
	}
	_, err = db.UpdateTimeToLive(ctx)
	return
}

func (db *DynamoDb) CreateTable(ctx context.Context) (err error) {
	var input dynamodb.CreateTableInput = *DynamoDbCreateTableInput
	input.TableName = &db.TableName

	if _, err = db.Client.CreateTable(ctx, &input); err != nil {
		err = fmt.Errorf("failed to create db table %s: %w", db.TableName, err)
	}
	return
}

func (db *DynamoDb) WaitForTable(
	ctx context.Context, maxAttempts int, sleep func(),
) error {
	if maxAttempts <= 0 {
		const errFmt = "maxAttempts to wait for DB table must be >= 0, got: %d"
		return fmt.Errorf(errFmt, maxAttempts)
	}

	for current := 0; ; {
		td, err := db.DescribeTable(ctx)

		if err == nil && td.TableStatus == types.TableStatusActive {
			return nil
		} else if current++; current == maxAttempts {
			const errFmt = "db table %s not active after " +
				"%d attempts to check; last error: %v"
			return fmt.Errorf(errFmt, db.TableName, maxAttempts, err)
		}
		sleep()
	}
}

func (db *DynamoDb) DescribeTable(
	ctx context.Context,
) (td *types.TableDescription, err error) {
	input := &dynamodb.DescribeTableInput{TableName: &db.TableName}
	output, descErr := db.Client.DescribeTable(ctx, input)

	if descErr != nil {
		const errFmt = "failed to describe db table %s: %w"
		err = fmt.Errorf(errFmt, db.TableName, descErr)
	} else {
		td = output.Table
	}
	return
}

func (db *DynamoDb) UpdateTimeToLive(
	ctx context.Context,
) (ttlSpec *types.TimeToLiveSpecification, err error) {
	spec := &types.TimeToLiveSpecification{
		AttributeName: &DynamoDbTtlAttribute, Enabled: aws.Bool(true),
	}
	input := &dynamodb.UpdateTimeToLiveInput{
		TableName: &db.TableName, TimeToLiveSpecification: spec,
	}

	var output *dynamodb.UpdateTimeToLiveOutput
	if output, err = db.Client.UpdateTimeToLive(ctx, input); err != nil {
		err = fmt.Errorf("failed to update Time To Live: %w", err)
	} else {
		ttlSpec = output.TimeToLiveSpecification
	}
	return
}

func (db *DynamoDb) DeleteTable(ctx context.Context) error {
	input := &dynamodb.DeleteTableInput{TableName: &db.TableName}
	if _, err := db.Client.DeleteTable(ctx, input); err != nil {
		return fmt.Errorf("failed to delete db table %s: %w", db.TableName, err)
	}
	return nil
}

type (
	dbString     = types.AttributeValueMemberS
	dbNumber     = types.AttributeValueMemberN
	dbBool       = types.AttributeValueMemberBOOL
	dbList       = types.AttributeValueMemberL
	dbMap        = types.AttributeValueMemberM
	dbAttributes = map[string]types.AttributeValue
)

func domainKey(domain string) dbAttributes {
	return dbAttributes{DynamoDbPrimaryKey: &dbString{Value: domain}}
}

// Get returns the entry for domain, or nil if there isn't one.
//
// The entry may have expired but not yet been removed by Time To Live.
func (db *DynamoDb) Get(
	ctx context.Context, domain string,
) (entry *email.MxCacheEntry, err error) {
	input := &dynamodb.GetItemInput{
		Key: domainKey(domain), TableName: &db.TableName,
	}
	var output *dynamodb.GetItemOutput

	if output, err = db.Client.GetItem(ctx, input); err != nil {
		err = ops.AwsError("failed to get MX records for "+domain, err)
	} else if len(output.Item) != 0 {
		entry, err = parseMxCacheEntry(output.Item)
	}
	return
}

func (db *DynamoDb) Put(
	ctx context.Context, domain string, entry *email.MxCacheEntry,
) (err error) {
	input := &dynamodb.PutItemInput{
		Item: newMxCacheRecord(domain, entry), TableName: &db.TableName,
	}
	if _, err = db.Client.PutItem(ctx, input); err != nil {
		err = ops.AwsError("failed to put MX records for "+domain, err)
	}
	return
}

func newMxCacheRecord(domain string, entry *email.MxCacheEntry) dbAttributes {
	records := make([]types.AttributeValue, len(entry.Records))
	for i, r := range entry.Records {
		records[i] = &dbMap{Value: dbAttributes{
			"host": &dbString{Value: r.Host},
			"pref": &dbNumber{Value: strconv.FormatUint(uint64(r.Pref), 10)},
		}}
	}
	return dbAttributes{
		DynamoDbPrimaryKey:   &dbString{Value: domain},
		"records":            &dbList{Value: records},
		"unresolvable":       &dbBool{Value: entry.Unresolvable},
		DynamoDbTtlAttribute: toDynamoDbTimestamp(entry.Expires),
	}
}

type dbParser struct {
	attrs dbAttributes
}

func parseMxCacheEntry(
	attrs dbAttributes,
) (entry *email.MxCacheEntry, err error) {
	p := dbParser{attrs}
	e := &email.MxCacheEntry{}
	errs := make([]error, 0, 3)
	addErr := func(e error) {
		errs = append(errs, e)
	}

	if e.Records, err = p.GetMxRecords("records"); err != nil {
		addErr(err)
	}
	if e.Unresolvable, err = p.GetBool("unresolvable"); err != nil {
		addErr(err)
	}
	if e.Expires, err = p.GetTime(DynamoDbTtlAttribute); err != nil {
		addErr(err)
	}

	if err = errors.Join(errs...); err != nil {
		err = errors.New("failed to parse MX cache entry: " + err.Error())
	} else {
		entry = e
	}
	return
}

func (p *dbParser) GetString(name string) (value string, err error) {
	return getAttribute(name, p.attrs, func(attr *dbString) (string, error) {
		return attr.Value, nil
	})
}

func (p *dbParser) GetBool(name string) (value bool, err error) {
	return getAttribute(name, p.attrs, func(attr *dbBool) (bool, error) {
		return attr.Value, nil
	})
}

func toDynamoDbTimestamp(t time.Time) *dbNumber {
	return &dbNumber{Value: strconv.FormatInt(t.Unix(), 10)}
}

func (p *dbParser) GetTime(name string) (value time.Time, err error) {
	return getAttribute(name, p.attrs, func(attr *dbNumber) (time.Time, error) {
		if ts, err := strconv.ParseInt(attr.Value, 10, 0); err != nil {
			return time.Time{}, err
		} else {
			return time.Unix(ts, 0), nil
		}
	})
}

func (p *dbParser) GetMxRecords(
	name string,
) (value []email.MxRecord, err error) {
	return getAttribute(name, p.attrs, parseMxRecords)
}

func parseMxRecords(attr *dbList) ([]email.MxRecord, error) {
	records := make([]email.MxRecord, len(attr.Value))
	errs := make([]error, 0)

	for i, item := range attr.Value {
		if m, ok := item.(*dbMap); !ok {
			errs = append(errs, fmt.Errorf("record %d is of type %T", i, item))
		} else if r, err := parseMxRecord(m.Value); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
		} else {
			records[i] = r
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return records, nil
}

func parseMxRecord(attrs dbAttributes) (record email.MxRecord, err error) {
	p := dbParser{attrs}
	var hostErr, prefErr error

	record.Host, hostErr = p.GetString("host")
	record.Pref, prefErr = getAttribute(
		"pref", attrs, func(attr *dbNumber) (uint16, error) {
			pref, err := strconv.ParseUint(attr.Value, 10, 16)
			return uint16(pref), err
		},
	)
	err = errors.Join(hostErr, prefErr)
	return
}

func getAttribute[T any, V any](
	name string, attrs dbAttributes, parse func(T) (V, error),
) (value V, err error) {
	if attr, ok := attrs[name]; !ok {
		err = fmt.Errorf("attribute '%s' not in: %+v", name, attrs)
	} else if dbAttr, ok := attr.(T); !ok {
		// Inspired by: https://stackoverflow.com/a/72626548
		const errFmt = "attribute '%s' is of type %T, not %T: %+v"
		err = fmt.Errorf(errFmt, name, attr, new(T), attr)
	} else if value, err = parse(dbAttr); err != nil {
		value = *new(V)
		const errFmt = "failed to parse '%s' from: %+v: %s"
		err = fmt.Errorf(errFmt, name, dbAttr, err)
	}
	return
}
