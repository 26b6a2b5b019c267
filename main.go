// SPDX-FileCopyrightText: 2026 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/panoptes/inventory"
	"github.com/xmidt-org/panoptes/region"
	"github.com/xmidt-org/panoptes/sched"
	"github.com/xmidt-org/panoptes/store"
	"github.com/xmidt-org/panoptes/store/db"
	"github.com/xmidt-org/panoptes/store/metric"
	"github.com/xmidt-org/panoptes/sweep"
	"github.com/xmidt-org/panoptes/tenantconf"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const applicationName = "panoptes"

var (
	GitCommit = "undefined"
	Version   = "undefined"
	BuildTime = "undefined"
)

func main() {
	v, logger, err := setup(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	app := fx.New(
		arrange.LoggerFunc(logger.Sugar().Infof),
		arrange.ForViper(v),
		fx.Supply(logger, v),
		touchstone.Provide(),
		metric.ProvideMetrics(),
		sched.ProvideMetrics(),
		db.Provide(),
		fx.Provide(
			unmarshalKey[touchstone.Config]("prometheus"),
			unmarshalKey[db.Configs]("store"),
			unmarshalKey[region.Config]("region"),
			unmarshalKey[sched.Config]("scheduler"),
			unmarshalKey[inventory.Config]("inventory"),
			unmarshalKey[JobsConfig]("jobs"),
			tenantconf.New,
			region.New,
			sched.NewRegistry,
			newScheduler,
			func(s *sched.Scheduler) sched.Dispatcher { return s },
			func() inventory.Source { return inventory.NopSource{} },
			newRefresher,
			newSweeper,
		),
		fx.Invoke(
			registerJobs,
			runScheduler,
			runMetricsServer,
		),
	)

	switch err := app.Err(); {
	case errors.Is(err, pflag.ErrHelp):
		return
	case err == nil:
		app.Run()
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

// unmarshalKey builds a provider for one configuration section. Duration
// fields accept strings like "30m".
func unmarshalKey[T any](key string) func(v *viper.Viper) (T, error) {
	return func(v *viper.Viper) (T, error) {
		var section T
		err := v.UnmarshalKey(key, &section, viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			)))
		return section, err
	}
}

func newScheduler(registry *sched.Registry, config sched.Config, measures sched.Measures, logger *zap.Logger) *sched.Scheduler {
	return sched.New(registry, config, measures,
		sched.NopObserver{}, sched.LogReporter{Logger: logger}, logger)
}

func newRefresher(
	hot store.Hot,
	records store.Records,
	snapshots store.Snapshots,
	gate *region.Gate,
	conf *tenantconf.Adapter,
	source inventory.Source,
	dispatcher sched.Dispatcher,
	config inventory.Config,
	logger *zap.Logger,
) *inventory.Refresher {
	return inventory.New(hot, records, snapshots, gate, conf, source, dispatcher, config, logger)
}

func newSweeper(
	hot store.Hot,
	records store.Records,
	conf *tenantconf.Adapter,
	refresher *inventory.Refresher,
	logger *zap.Logger,
) *sweep.Sweeper {
	return sweep.New(hot, records, conf, refresher.ResourceTypes(), logger)
}

func runScheduler(lc fx.Lifecycle, scheduler *sched.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: scheduler.Start,
		OnStop:  scheduler.Stop,
	})
}

type MetricsServerIn struct {
	fx.In
	LC       fx.Lifecycle
	Gatherer prometheus.Gatherer
	Viper    *viper.Viper
	Logger   *zap.Logger
}

// runMetricsServer exposes /metrics when servers.metrics.address is set.
func runMetricsServer(in MetricsServerIn) {
	address := in.Viper.GetString("servers.metrics.address")
	if address == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(in.Gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: address, Handler: mux}

	in.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					in.Logger.Error("metrics server failed", zap.Error(err))
				}
			}()
			in.Logger.Info("metrics server listening", zap.String("address", address))
			return nil
		},
		OnStop: server.Shutdown,
	})
}
