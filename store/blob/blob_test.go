// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/xmidt-org/panoptes/model"
	"github.com/xmidt-org/panoptes/store"
	"go.uber.org/zap"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) GetObject(ctx context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

type SnapshotStoreTestSuite struct {
	suite.Suite
	Snapshot model.Snapshot
}

func (s *SnapshotStoreTestSuite) SetupTest() {
	s.Snapshot = model.Snapshot{
		Tenant:       "acme",
		ResourceType: "IAM_ROLES",
		TakenAt:      time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC),
		Records: map[string]model.Record{
			"arn:aws:iam::111111111111:role/admin": {
				ID:        "arn:aws:iam::111111111111:role/admin",
				Tenant:    "acme",
				AccountID: "111111111111",
				Data:      map[string]interface{}{"path": "/"},
			},
		},
	}
}

func (s *SnapshotStoreTestSuite) newStore(c client) *Store {
	return &Store{
		c:      c,
		config: Config{Bucket: "panoptes-snapshots", KeyTemplate: defaultKeyTemplate},
		logger: zap.NewNop(),
		now:    time.Now,
	}
}

func (s *SnapshotStoreTestSuite) TestWriteReadRoundTrip() {
	var body []byte
	m := new(mockS3)
	m.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Key == "snapshots/acme/iam_roles.json.gz"
	})).Run(func(args mock.Arguments) {
		input := args.Get(1).(*s3.PutObjectInput)
		var err error
		body, err = io.ReadAll(input.Body)
		s.Require().NoError(err)
	}).Return(&s3.PutObjectOutput{}, nil)

	blobStore := s.newStore(m)
	s.Require().NoError(blobStore.Write(context.Background(), s.Snapshot))
	m.AssertExpectations(s.T())

	m.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Key == "snapshots/acme/iam_roles.json.gz"
	})).Return(&s3.GetObjectOutput{
		Body:            io.NopCloser(bytes.NewReader(body)),
		ContentEncoding: aws.String("gzip"),
	}, nil)

	got, err := blobStore.Read(context.Background(), "acme", "IAM_ROLES")
	s.Require().NoError(err)
	s.Equal(s.Snapshot.Tenant, got.Tenant)
	s.Equal(s.Snapshot.TakenAt.Unix(), got.TakenAt.Unix())
	s.Require().Len(got.Records, 1)
	s.Equal(s.Snapshot.Records, got.Records)
}

func (s *SnapshotStoreTestSuite) TestReadMissing() {
	m := new(mockS3)
	m.On("GetObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{})

	_, err := s.newStore(m).Read(context.Background(), "acme", "IAM_ROLES")
	s.ErrorIs(err, store.ErrSnapshotNotFound)
}

func (s *SnapshotStoreTestSuite) TestKeyTemplate() {
	blobStore := s.newStore(nil)
	blobStore.config.KeyTemplate = "inventory/{tenant}/cache/{resource_type}"
	s.Equal("inventory/acme/cache/ec2_instances", blobStore.key("acme", "EC2_INSTANCES"))
}

func TestSnapshotStore(t *testing.T) {
	suite.Run(t, new(SnapshotStoreTestSuite))
}
