// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package dynamodb

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/xmidt-org/panoptes/model"
	"github.com/xmidt-org/panoptes/store"
	"go.uber.org/zap"
)

// client captures the methods of interest from the DynamoDB API. This
// should help mock API calls as well.
type client interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// service defines the DynamoDB-specific DAO interface. It helps keep
// middleware such as logging and instrumentation orthogonal to business
// logic.
type service interface {
	Push(ctx context.Context, key model.Key, record model.Record) error
	Get(ctx context.Context, key model.Key) (model.Record, error)
	Delete(ctx context.Context, key model.Key) (model.Record, error)
	GetAll(ctx context.Context, bucket string) (map[string]model.Record, error)
	DeleteExpired(ctx context.Context, bucket string) (int, error)
	AcquireLease(ctx context.Context, name string, ttl time.Duration) (bool, error)
}

// DynamoDB attribute keys
const (
	bucketAttributeKey     = "bucket"
	idAttributeKey         = "id"
	expirationAttributeKey = "expires"

	// leaseBucket holds short-lived lock records written by AcquireLease.
	leaseBucket = "job-leases"
)

// executor satisfies the service interface so the instrumented client can
// adapt the outputs to the abstract record DAO.
type executor struct {
	c         client
	tableName string
	logger    *zap.Logger
	now       func() time.Time

	// onCapacity is invoked with the consumed capacity of every API
	// response that reports one.
	onCapacity func(cc *types.ConsumedCapacity, action string)
}

type storableRecord struct {
	model.Record
	model.Key
	Expires *int64 `dynamodbav:"expires,omitempty"`
}

func translateError(err error, key model.Key) error {
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
		notFound   *types.ResourceNotFoundException
	)
	switch {
	case errors.As(err, &throughput):
		return store.InternalError{Reason: err, Retryable: true}
	case errors.As(err, &internal):
		return store.InternalError{Reason: err, Retryable: true}
	case errors.As(err, &limit):
		return store.InternalError{Reason: err, Retryable: false}
	case errors.As(err, &notFound):
		return store.KeyNotFoundError{Key: key}
	default:
		return store.InternalError{Reason: err, Retryable: false}
	}
}

func (d *executor) keyAttributes(key model.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		bucketAttributeKey: &types.AttributeValueMemberS{Value: key.Bucket},
		idAttributeKey:     &types.AttributeValueMemberS{Value: key.ID},
	}
}

func (d *executor) Push(ctx context.Context, key model.Key, record model.Record) error {
	storing := storableRecord{Record: record, Key: key}
	if !record.ExpiresAt.IsZero() {
		expires := record.ExpiresAt.Unix()
		storing.Expires = &expires
	}
	item, err := attributevalue.MarshalMap(storing)
	if err != nil {
		return err
	}
	result, err := d.c.PutItem(ctx, &dynamodb.PutItemInput{
		Item:                   item,
		TableName:              aws.String(d.tableName),
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if result != nil {
		d.onCapacity(result.ConsumedCapacity, store.InsertType)
	}
	if err != nil {
		return translateError(err, key)
	}
	return nil
}

func (d *executor) Get(ctx context.Context, key model.Key) (model.Record, error) {
	result, err := d.c.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:              aws.String(d.tableName),
		Key:                    d.keyAttributes(key),
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if result != nil {
		d.onCapacity(result.ConsumedCapacity, store.ReadType)
	}
	if err != nil {
		return model.Record{}, translateError(err, key)
	}
	return d.unmarshalRecord(result.Item, key)
}

func (d *executor) Delete(ctx context.Context, key model.Key) (model.Record, error) {
	result, err := d.c.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:              aws.String(d.tableName),
		Key:                    d.keyAttributes(key),
		ReturnValues:           types.ReturnValueAllOld,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if result != nil {
		d.onCapacity(result.ConsumedCapacity, store.DeleteType)
	}
	if err != nil {
		return model.Record{}, translateError(err, key)
	}
	return d.unmarshalRecord(result.Attributes, key)
}

// unmarshalRecord converts raw attributes into a record, translating the
// absolute expires attribute and treating expired records as absent.
func (d *executor) unmarshalRecord(attributes map[string]types.AttributeValue, key model.Key) (model.Record, error) {
	stored := storableRecord{}
	if err := attributevalue.UnmarshalMap(attributes, &stored); err != nil {
		return model.Record{}, err
	}
	if stored.Key.Bucket == "" || stored.Key.ID == "" {
		return model.Record{}, store.KeyNotFoundError{Key: key}
	}
	if stored.Expires != nil {
		stored.Record.ExpiresAt = time.Unix(*stored.Expires, 0)
		if !stored.Record.ExpiresAt.After(d.now()) {
			return model.Record{}, store.KeyNotFoundError{Key: key}
		}
	}
	stored.Record.ID = stored.Key.ID
	return stored.Record, nil
}

func (d *executor) queryBucket(ctx context.Context, bucket string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("#bucket = :bucket"),
		ExpressionAttributeNames: map[string]string{
			"#bucket": bucketAttributeKey,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":bucket": &types.AttributeValueMemberS{Value: bucket},
		},
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	}

	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(d.c, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if page != nil {
			d.onCapacity(page.ConsumedCapacity, store.ReadType)
		}
		if err != nil {
			return nil, translateError(err, model.Key{Bucket: bucket})
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (d *executor) GetAll(ctx context.Context, bucket string) (map[string]model.Record, error) {
	items, err := d.queryBucket(ctx, bucket)
	if err != nil {
		return map[string]model.Record{}, err
	}

	result := map[string]model.Record{}
	for _, item := range items {
		stored := storableRecord{}
		if err := attributevalue.UnmarshalMap(item, &stored); err != nil {
			d.logger.Error("failed to unmarshal record", zap.String("bucket", bucket), zap.Error(err))
			continue
		}
		if stored.Expires != nil {
			stored.Record.ExpiresAt = time.Unix(*stored.Expires, 0)
			if !stored.Record.ExpiresAt.After(d.now()) {
				continue
			}
		}
		stored.Record.ID = stored.Key.ID
		result[stored.Key.ID] = stored.Record
	}
	return result, nil
}

func (d *executor) DeleteExpired(ctx context.Context, bucket string) (int, error) {
	items, err := d.queryBucket(ctx, bucket)
	if err != nil {
		return 0, err
	}

	now := d.now().Unix()
	removed := 0
	for _, item := range items {
		stored := struct {
			model.Key
			Expires *int64 `dynamodbav:"expires,omitempty"`
		}{}
		if err := attributevalue.UnmarshalMap(item, &stored); err != nil || stored.Expires == nil || *stored.Expires > now {
			continue
		}
		// The condition re-checks expiry at delete time: a refresh may have
		// written a fresh expires between the query and this delete, and
		// that record must survive the sweep.
		result, err := d.c.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:           aws.String(d.tableName),
			Key:                 d.keyAttributes(stored.Key),
			ConditionExpression: aws.String("#expires < :now"),
			ExpressionAttributeNames: map[string]string{
				"#expires": expirationAttributeKey,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": &types.AttributeValueMemberN{Value: formatInt(now)},
			},
			ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
		})
		if result != nil {
			d.onCapacity(result.ConsumedCapacity, store.SweepType)
		}
		if err != nil {
			var conditionFailed *types.ConditionalCheckFailedException
			if errors.As(err, &conditionFailed) {
				continue
			}
			return removed, translateError(err, stored.Key)
		}
		removed++
	}
	return removed, nil
}

// AcquireLease does a conditional put keyed by name: it succeeds when no
// live lease record exists. The returned bool reports whether this caller
// now holds the lease until ttl elapses. Leases are never renewed.
func (d *executor) AcquireLease(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	now := d.now()
	expires := now.Add(ttl).Unix()
	result, err := d.c.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item: map[string]types.AttributeValue{
			bucketAttributeKey:     &types.AttributeValueMemberS{Value: leaseBucket},
			idAttributeKey:         &types.AttributeValueMemberS{Value: name},
			expirationAttributeKey: &types.AttributeValueMemberN{Value: formatInt(expires)},
		},
		ConditionExpression: aws.String("attribute_not_exists(#id) OR #expires < :now"),
		ExpressionAttributeNames: map[string]string{
			"#id":      idAttributeKey,
			"#expires": expirationAttributeKey,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: formatInt(now.Unix())},
		},
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if result != nil {
		d.onCapacity(result.ConsumedCapacity, store.InsertType)
	}
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return false, nil
		}
		return false, translateError(err, model.Key{Bucket: leaseBucket, ID: name})
	}
	return true, nil
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
