// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/panoptes/store"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Metric names
const (
	QuerySuccessCounter          = "store_query_success_count"
	QueryFailureCounter          = "store_query_failure_count"
	ReadCapacityConsumedCounter  = "dynamodb_read_capacity_consumed_count"
	WriteCapacityConsumedCounter = "dynamodb_write_capacity_consumed_count"
)

// ProvideMetrics returns the metrics relevant to the store backends.
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: QuerySuccessCounter,
				Help: "The total number of successful store queries",
			},
			store.TypeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: QueryFailureCounter,
				Help: "The total number of failed store queries",
			},
			store.TypeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: ReadCapacityConsumedCounter,
				Help: "The number of read capacity units consumed by DynamoDB operations",
			},
			store.TypeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: WriteCapacityConsumedCounter,
				Help: "The number of write capacity units consumed by DynamoDB operations",
			},
			store.TypeLabel,
		),
	)
}

type Measures struct {
	fx.In
	QuerySuccessCount          *prometheus.CounterVec `name:"store_query_success_count"`
	QueryFailureCount          *prometheus.CounterVec `name:"store_query_failure_count"`
	ReadCapacityConsumedCount  *prometheus.CounterVec `name:"dynamodb_read_capacity_consumed_count"`
	WriteCapacityConsumedCount *prometheus.CounterVec `name:"dynamodb_write_capacity_consumed_count"`
}

// NewTestMeasures builds Measures backed by a throwaway registry, for tests
// that exercise instrumented stores outside the fx app.
func NewTestMeasures() Measures {
	counter := func(name string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, []string{store.TypeLabel})
	}
	return Measures{
		QuerySuccessCount:          counter(QuerySuccessCounter),
		QueryFailureCount:          counter(QueryFailureCounter),
		ReadCapacityConsumedCount:  counter(ReadCapacityConsumedCounter),
		WriteCapacityConsumedCount: counter(WriteCapacityConsumedCounter),
	}
}
