// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package blob persists resource snapshots as gzip-compressed JSON objects
// in S3. Snapshots are the durable tier behind the hot cache: the full
// contents of one tenant/resource-type namespace, written after a refresh
// and read back to restore a region that lost its cache.
package blob

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/xmidt-org/panoptes/model"
	"github.com/xmidt-org/panoptes/store"
	"go.uber.org/zap"
)

const defaultKeyTemplate = "snapshots/{tenant}/{resource_type}.json.gz"

type Config struct {
	// Bucket is the S3 bucket holding snapshot objects.
	Bucket string

	// KeyTemplate names snapshot objects. The placeholders {tenant} and
	// {resource_type} are substituted per snapshot.
	KeyTemplate string

	// Endpoint is an optional override, e.g. a local minio instance.
	Endpoint string

	Region string

	// AccessKey/SecretKey are optional static credentials. When empty, the
	// default credential chain is used.
	AccessKey string
	SecretKey string
}

// client captures the methods of interest from the S3 API. This should
// help mock API calls as well.
type client interface {
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store implements store.Snapshots over S3.
type Store struct {
	c      client
	config Config
	logger *zap.Logger
	now    func() time.Time
}

func New(config Config, logger *zap.Logger) (*Store, error) {
	validateConfig(&config)
	if config.Bucket == "" {
		return nil, errors.New("a snapshot bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
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

	c := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{c: c, config: config, logger: logger, now: time.Now}, nil
}

func (s *Store) key(tenant, resourceType string) string {
	replacer := strings.NewReplacer(
		"{tenant}", tenant,
		"{resource_type}", strings.ToLower(resourceType),
	)
	return replacer.Replace(s.config.KeyTemplate)
}

func (s *Store) Write(ctx context.Context, snapshot model.Snapshot) error {
	if snapshot.TakenAt.IsZero() {
		snapshot.TakenAt = s.now()
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(snapshot); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	key := s.key(snapshot.Tenant, snapshot.ResourceType)
	_, err := s.c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.config.Bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}
	s.logger.Debug("wrote snapshot",
		zap.String("key", key),
		zap.Int("records", len(snapshot.Records)),
		zap.Int("compressed_bytes", buf.Len()))
	return nil
}

func (s *Store) Read(ctx context.Context, tenant, resourceType string) (model.Snapshot, error) {
	key := s.key(tenant, resourceType)
	result, err := s.c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return model.Snapshot{}, store.ErrSnapshotNotFound
		}
		return model.Snapshot{}, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	defer result.Body.Close()

	gz, err := gzip.NewReader(result.Body)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot %s is not gzip encoded: %w", key, err)
	}
	defer gz.Close()

	var snapshot model.Snapshot
	if err := json.NewDecoder(gz).Decode(&snapshot); err != nil && !errors.Is(err, io.EOF) {
		return model.Snapshot{}, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return snapshot, nil
}

func validateConfig(config *Config) {
	if config.KeyTemplate == "" {
		config.KeyTemplate = defaultKeyTemplate
	}
}
