// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"github.com/xmidt-org/panoptes/store"
	"github.com/xmidt-org/panoptes/store/blob"
	"github.com/xmidt-org/panoptes/store/dynamodb"
	"github.com/xmidt-org/panoptes/store/hot"
	"github.com/xmidt-org/panoptes/store/inmem"
	"github.com/xmidt-org/panoptes/store/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Configs struct {
	Dynamo    *dynamodb.Config
	Snapshots *blob.Config
}

type SetupIn struct {
	fx.In
	Configs  Configs
	Measures metric.Measures
	Logger   *zap.Logger
}

func Provide() fx.Option {
	return fx.Options(
		fx.Provide(
			SetupRecords,
			SetupSnapshots,
			hot.New,
		),
	)
}

// SetupRecords builds the authoritative record store. Without a dynamo
// config the in-memory store is used, which only makes sense for a single
// region.
func SetupRecords(in SetupIn) (store.Records, error) {
	if in.Configs.Dynamo != nil {
		in.Logger.Info("using dynamodb record store implementation")
		return dynamodb.NewDynamoDB(*in.Configs.Dynamo, in.Measures, in.Logger)
	}
	in.Logger.Info("using in memory record store implementation")
	return inmem.NewInMem(), nil
}

// SetupSnapshots builds the durable snapshot store. Without a blob config
// snapshots are disabled and a nop store is returned.
func SetupSnapshots(in SetupIn) (store.Snapshots, error) {
	if in.Configs.Snapshots != nil {
		in.Logger.Info("using s3 snapshot store implementation",
			zap.String("bucket", in.Configs.Snapshots.Bucket))
		return blob.New(*in.Configs.Snapshots, in.Logger)
	}
	in.Logger.Info("snapshots disabled")
	return store.NopSnapshots{}, nil
}
