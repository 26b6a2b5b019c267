// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/xmidt-org/panoptes/model"
	"github.com/xmidt-org/panoptes/store"
	"github.com/xmidt-org/panoptes/store/metric"
	"go.uber.org/zap"
)

const (
	defaultTable       = "panoptes"
	defaultMaxAttempts = 3
)

type Config struct {
	// Table is the name of the DynamoDB table. All record buckets share it.
	Table string

	// Endpoint is an optional override, e.g. a local dynamodb instance.
	Endpoint string

	Region string

	// MaxAttempts bounds the SDK's own retries; the job scheduler layers
	// its backoff policy on top of this.
	MaxAttempts int

	// AccessKey/SecretKey are optional static credentials. When empty, the
	// default credential chain is used.
	AccessKey string
	SecretKey string
}

// DynamoClient implements store.Records over a single DynamoDB table with a
// bucket+id key schema and an absolute expires attribute. It also exposes
// AcquireLease for deployments that want mutually exclusive jobs instead of
// the scheduler's advisory dedup.
type DynamoClient struct {
	client   service
	config   Config
	measures metric.Measures
}

func NewDynamoDB(config Config, measures metric.Measures, logger *zap.Logger) (*DynamoClient, error) {
	validateConfig(&config)

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
		awsconfig.WithRetryMaxAttempts(config.MaxAttempts),
	}
	if config.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, ""),
		))
	}
	awsConfig, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	c := dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})

	client := &DynamoClient{
		config:   config,
		measures: measures,
	}
	client.client = &executor{
		c:          c,
		tableName:  config.Table,
		logger:     logger,
		now:        time.Now,
		onCapacity: client.updateCapacity,
	}
	return client, nil
}

func (s *DynamoClient) updateCapacity(cc *types.ConsumedCapacity, action string) {
	if cc == nil {
		return
	}
	if cc.ReadCapacityUnits != nil {
		s.measures.ReadCapacityConsumedCount.With(typeLabel(action)).Add(*cc.ReadCapacityUnits)
	}
	if cc.WriteCapacityUnits != nil {
		s.measures.WriteCapacityConsumedCount.With(typeLabel(action)).Add(*cc.WriteCapacityUnits)
	}
}

func (s *DynamoClient) Push(ctx context.Context, key model.Key, record model.Record) error {
	err := s.client.Push(ctx, key, record)
	s.updateQueryMetrics(err, store.InsertType)
	return err
}

func (s *DynamoClient) Get(ctx context.Context, key model.Key) (model.Record, error) {
	record, err := s.client.Get(ctx, key)
	s.updateQueryMetrics(err, store.ReadType)
	return record, err
}

func (s *DynamoClient) Delete(ctx context.Context, key model.Key) (model.Record, error) {
	record, err := s.client.Delete(ctx, key)
	s.updateQueryMetrics(err, store.DeleteType)
	return record, err
}

func (s *DynamoClient) GetAll(ctx context.Context, bucket string) (map[string]model.Record, error) {
	records, err := s.client.GetAll(ctx, bucket)
	s.updateQueryMetrics(err, store.ReadType)
	return records, err
}

func (s *DynamoClient) DeleteExpired(ctx context.Context, bucket string) (int, error) {
	removed, err := s.client.DeleteExpired(ctx, bucket)
	s.updateQueryMetrics(err, store.SweepType)
	return removed, err
}

func (s *DynamoClient) AcquireLease(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	acquired, err := s.client.AcquireLease(ctx, name, ttl)
	s.updateQueryMetrics(err, store.InsertType)
	return acquired, err
}

func (s *DynamoClient) updateQueryMetrics(err error, queryType string) {
	if err != nil {
		s.measures.QueryFailureCount.With(typeLabel(queryType)).Add(1.0)
		return
	}
	s.measures.QuerySuccessCount.With(typeLabel(queryType)).Add(1.0)
}

func typeLabel(queryType string) map[string]string {
	return map[string]string{store.TypeLabel: queryType}
}

func validateConfig(config *Config) {
	if config.Table == "" {
		config.Table = defaultTable
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
}
