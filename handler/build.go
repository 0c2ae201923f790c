package handler

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/mbland/emailcheck/db"
	"github.com/mbland/emailcheck/email"
	"github.com/mbland/emailcheck/ops"
)

// AwsConfigLoader returns the AWS configuration for the SES and DynamoDB
// clients. It's only called if Options enable a feature that needs AWS.
type AwsConfigLoader func(context.Context) (aws.Config, error)

func LoadDefaultAwsConfig(ctx context.Context) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx)
}

// NewBatchValidator assembles the email.Validator pipeline described by opts.
//
// metrics may be nil.
func NewBatchValidator(
	ctx context.Context,
	opts *Options,
	metrics *Metrics,
	loadAwsConfig AwsConfigLoader,
	logger *log.Logger,
) (bv *ops.BatchValidator, err error) {
	v := &email.Validator{Log: logger}
	awsConfig := sync.OnceValues(func() (cfg aws.Config, err error) {
		if cfg, err = loadAwsConfig(ctx); err != nil {
			err = fmt.Errorf("failed to load AWS config: %w", err)
		}
		return
	})

	if opts.DisposableDomainsFile == "" {
		v.Disposable = email.DefaultDisposableDomains()
	} else if v.Disposable, err = email.LoadDisposableDomainsFile(
		opts.DisposableDomainsFile,
	); err != nil {
		return
	}

	if opts.SuppressionCheckEnabled {
		var cfg aws.Config
		if cfg, err = awsConfig(); err != nil {
			return
		}
		v.Suppressor = &email.SesSuppressor{
			Client:   sesv2.NewFromConfig(cfg),
			Throttle: email.NewSesThrottle(opts.SuppressionCheckRate),
		}
	}

	if opts.MxCheckEnabled {
		if v.MxChecker, err = newMxChecker(
			opts, metrics, awsConfig, logger,
		); err != nil {
			return
		}
	}

	logger.Printf(
		"validator: %d disposable domains; suppression check: %t; "+
			"MX check: %t; shared MX cache: %q",
		v.Disposable.Len(),
		v.Suppressor != nil,
		v.MxChecker != nil,
		opts.MxCacheTableName,
	)
	bv = &ops.BatchValidator{
		Verifier: v, Workers: opts.ValidationWorkers, Log: logger,
	}
	return
}

func newMxChecker(
	opts *Options,
	metrics *Metrics,
	awsConfig func() (aws.Config, error),
	logger *log.Logger,
) (*email.MxChecker, error) {
	var cache email.MxCache = email.NewMemoryMxCache(
		opts.MxCacheSize, opts.MxCacheTtl,
	)

	if opts.MxCacheTableName != "" {
		cfg, err := awsConfig()
		if err != nil {
			return nil, err
		}
		cache = &email.TieredMxCache{
			Local: cache,
			Shared: &db.DynamoDb{
				Client:    dynamodb.NewFromConfig(cfg),
				TableName: opts.MxCacheTableName,
			},
			Log: logger,
		}
	}

	return &email.MxChecker{
		Resolver: net.DefaultResolver,
		Cache:    cache,
		Ttl:      opts.MxCacheTtl,
		Timeout:  opts.MxLookupTimeout,
		Log:      logger,
		Lookups:  metrics.mxLookups(),
	}, nil
}
