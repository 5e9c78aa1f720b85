// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/gorse-io/decomp/backend"
	"github.com/gorse-io/decomp/cmd/version"
	"github.com/gorse-io/decomp/common/log"
	"github.com/gorse-io/decomp/common/progress"
	"github.com/gorse-io/decomp/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "decomp",
	Short: "Sparse dictionary learning for real and complex signals.",
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show build information.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.BuildInfo())
	},
}

var fitCommand = &cobra.Command{
	Use:   "fit",
	Short: "Learn a dictionary and sparse codes for a set of observations.",
	Run: func(cmd *cobra.Command, args []string) {
		// setup logger
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
		defer log.CloseLogger()

		// load config
		configPath, _ := cmd.Flags().GetString("config")
		v := config.New()
		bindFlags(v, cmd.Flags())
		if configPath != "" {
			log.Logger().Info("load config", zap.String("config", configPath))
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				log.Logger().Fatal("failed to read config", zap.Error(err))
			}
		}
		conf, err := config.Unmarshal(v)
		if err != nil {
			log.Logger().Fatal("invalid config", zap.Error(err))
		}
		if conf.Backend.Jobs > 0 {
			backend.SetParallelJobs(conf.Backend.Jobs)
		}

		// serve metrics
		if conf.Backend.MetricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				log.Logger().Info("start metrics server", zap.String("address", conf.Backend.MetricsAddr))
				if err := http.ListenAndServe(conf.Backend.MetricsAddr, mux); err != nil {
					log.Logger().Error("failed to serve metrics", zap.Error(err))
				}
			}()
		}

		// stop at the next iteration on SIGINT
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if conf.Fit.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, conf.Fit.Timeout)
			defer cancel()
		}

		showProgress, _ := cmd.Flags().GetBool("progress")
		tracer := progress.NewTracer("decomp")
		if conf.Data.Complex {
			err = runFit[complex128](ctx, conf, tracer, os.Stdout, showProgress)
		} else {
			err = runFit[float64](ctx, conf, tracer, os.Stdout, showProgress)
		}
		if err != nil {
			log.Logger().Fatal("failed to fit dictionary", zap.Error(err))
		}
	},
}

func init() {
	flags := fitCommand.Flags()
	log.AddFlags(flags)
	flags.Bool("debug", false, "use debug log mode")
	flags.StringP("config", "c", "", "configuration file path")
	flags.Bool("progress", true, "show a progress bar")
	// [fit]
	flags.Float64("alpha", 1, "sparsity penalty")
	flags.Float64("tol", 1e-3, "convergence tolerance")
	flags.Int("minibatch-size", 1, "samples per iteration")
	flags.Int("max-iterations", 1000, "iteration budget")
	flags.String("solver", "ista", "sparse-code solver (ista, fista)")
	flags.Int("solver-iterations", 10, "solver iterations per minibatch")
	flags.Int64("seed", 0, "random seed (0 for time-based)")
	flags.Int("verbose", 100, "log every n iterations")
	flags.Duration("timeout", 0, "stop the fit after this duration")
	// [data]
	flags.String("data", "", "CSV file of observations")
	flags.String("mask", "", "CSV file of mask weights")
	flags.String("dictionary", "", "CSV file of the initial dictionary")
	flags.Int("atoms", 0, "number of random atoms when no dictionary is given")
	flags.Bool("complex", false, "parse cells as complex numbers")
	flags.String("sqlite", "", "SQLite database of observations")
	flags.String("table", "", "SQLite table of observations")
	flags.StringSlice("columns", nil, "SQLite columns of observations")
	flags.String("mask-table", "", "SQLite table of mask weights")
	flags.StringP("output", "o", "", "CSV file of the learned dictionary")
	flags.String("codes", "", "CSV file of the learned codes")
	// [backend]
	flags.String("backend", string(backend.CPU), "array backend (cpu, parallel)")
	flags.Int("jobs", 0, "workers of the parallel backend (0 for all CPUs)")
	flags.String("metrics-addr", "", "serve prometheus metrics on this address")

	rootCommand.AddCommand(fitCommand, versionCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
