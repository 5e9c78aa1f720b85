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
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gorse-io/decomp/backend"
	"github.com/gorse-io/decomp/common/log"
	"github.com/gorse-io/decomp/common/progress"
	"github.com/gorse-io/decomp/config"
	"github.com/gorse-io/decomp/dataset"
	"github.com/gorse-io/decomp/dictlearn"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var flagKeys = map[string]string{
	"alpha":             "fit.alpha",
	"tol":               "fit.tol",
	"minibatch-size":    "fit.minibatch_size",
	"max-iterations":    "fit.max_iterations",
	"solver":            "fit.solver",
	"solver-iterations": "fit.solver_iterations",
	"seed":              "fit.seed",
	"verbose":           "fit.verbose",
	"timeout":           "fit.timeout",
	"data":              "data.observations",
	"mask":              "data.mask",
	"dictionary":        "data.dictionary",
	"atoms":             "data.atoms",
	"complex":           "data.complex",
	"sqlite":            "data.sqlite",
	"table":             "data.table",
	"columns":           "data.columns",
	"mask-table":        "data.mask_table",
	"output":            "data.output",
	"codes":             "data.codes",
	"backend":           "backend.device",
	"jobs":              "backend.jobs",
	"metrics-addr":      "backend.metrics_addr",
}

// bindFlags lets explicitly set flags override the config file and the
// environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for name, key := range flagKeys {
		if flag := flags.Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				log.Logger().Fatal("failed to bind flag", zap.String("flag", name), zap.Error(err))
			}
		}
	}
}

// fitStages counts the steps of the root span: load, fit and save.
const fitStages = 3

// runFit loads the inputs, learns the dictionary, writes the outputs and
// prints a summary to w. The run is traced as a root span of tracer with the
// dictionary learning span below it.
func runFit[T backend.Scalar](ctx context.Context, conf *config.Config, tracer *progress.Tracer, w io.Writer, showProgress bool) (err error) {
	ctx, span := tracer.Start(ctx, "fit", fitStages)
	defer func() {
		if err != nil {
			span.Fail(err)
		}
	}()
	device := backend.Device(conf.Backend.Device)
	var db *sql.DB
	if conf.Data.SQLite != "" {
		if db, err = dataset.OpenSQLite(conf.Data.SQLite); err != nil {
			return errors.Trace(err)
		}
		defer db.Close()
	}

	// load observations
	y, mask, err := loadObservations[T](ctx, conf, db, device)
	if err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("load observations",
		zap.Ints("shape", y.Shape),
		zap.Bool("masked", mask != nil),
		zap.String("device", string(device)))

	// load or draw dictionary
	fitConfig := conf.FitConfig()
	var d *backend.Array[T]
	if conf.Data.Dictionary != "" {
		if d, _, err = dataset.LoadCSV[T](conf.Data.Dictionary, device); err != nil {
			return errors.Trace(err)
		}
	} else if d, err = dictlearn.RandomDictionary[T](device, conf.Data.Atoms, y.Cols(), fitConfig.Seed); err != nil {
		return errors.Trace(err)
	}
	span.Add(1)

	// fit
	if showProgress {
		bar := progressbar.NewOptions(fitConfig.MaxIterations,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Learning dictionary"),
			progressbar.OptionShowCount())
		fitConfig.SetOnIteration(func(_ int, delta float64) {
			bar.Describe(fmt.Sprintf("Learning dictionary (delta %.3g)", delta))
		})
		stop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			trackProgress(tracer, bar, stop)
		}()
		defer func() {
			close(stop)
			<-done
			if p, ok := fitProgress(tracer); ok {
				_ = bar.Set(p.Count)
			}
			_ = bar.Finish()
		}()
	}
	start := time.Now()
	result, err := dictlearn.Solve(ctx, y, d, nil, mask, conf.Fit.Alpha, fitConfig)
	if err != nil {
		return errors.Trace(err)
	}
	elapsed := time.Since(start)
	objective, err := dictlearn.Objective(y, result.Dictionary, result.Codes, mask, conf.Fit.Alpha)
	if err != nil {
		return errors.Trace(err)
	}
	span.Add(1)

	// save
	if conf.Data.Output != "" {
		if err = dataset.SaveCSV(conf.Data.Output, result.Dictionary); err != nil {
			return errors.Trace(err)
		}
	}
	if conf.Data.Codes != "" {
		if err = dataset.SaveCSV(conf.Data.Codes, result.Codes); err != nil {
			return errors.Trace(err)
		}
	}
	if db != nil {
		if err = dataset.SaveSQLite(ctx, db, conf.Data.Table+"_dictionary", result.Dictionary); err != nil {
			return errors.Trace(err)
		}
		if err = dataset.SaveSQLite(ctx, db, conf.Data.Table+"_codes", result.Codes); err != nil {
			return errors.Trace(err)
		}
	}
	span.Add(1)
	if result.Interrupted {
		span.Interrupt()
	} else {
		span.End()
	}

	// render table
	status := span.Progress().Status
	if p, ok := fitProgress(tracer); ok {
		status = p.Status
	}
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	if err = table.Bulk([][]string{
		{"Backend", string(device)},
		{"Solver", fitConfig.Solver},
		{"Samples", fmt.Sprint(y.Rows())},
		{"Atoms", fmt.Sprint(d.Rows())},
		{"Status", string(status)},
		{"Iterations", fmt.Sprint(result.Iterations)},
		{"Converged", fmt.Sprint(result.Converged)},
		{"Interrupted", fmt.Sprint(result.Interrupted)},
		{"Delta", fmt.Sprintf("%.6g", result.Delta)},
		{"Touched", fmt.Sprint(result.Touched)},
		{"Objective", fmt.Sprintf("%.6g", objective)},
		{"Elapsed", elapsed.String()},
	}); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(table.Render())
}

// fitProgress returns the latest dictionary learning span recorded by tracer.
func fitProgress(tracer *progress.Tracer) (progress.Progress, bool) {
	var (
		found progress.Progress
		ok    bool
	)
	for _, root := range tracer.List() {
		for _, child := range root.Children {
			if child.Name == dictlearn.SpanName {
				found, ok = child, true
			}
		}
	}
	return found, ok
}

// trackProgress mirrors the dictionary learning span onto bar until stop is
// closed.
func trackProgress(tracer *progress.Tracer, bar *progressbar.ProgressBar, stop <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if p, ok := fitProgress(tracer); ok {
				_ = bar.Set(p.Count)
			}
		}
	}
}

func loadObservations[T backend.Scalar](ctx context.Context, conf *config.Config, db *sql.DB, device backend.Device) (*backend.Array[T], *backend.Array[float64], error) {
	var (
		y    *backend.Array[T]
		mask *backend.Array[float64]
		err  error
	)
	if db != nil {
		if y, mask, err = dataset.LoadSQLite[T](ctx, db, conf.Data.Table, conf.Data.Columns, device); err != nil {
			return nil, nil, errors.Trace(err)
		}
		if conf.Data.MaskTable != "" {
			weights, _, err := dataset.LoadSQLite[float64](ctx, db, conf.Data.MaskTable, nil, device)
			if err != nil {
				return nil, nil, errors.Trace(err)
			}
			if mask, err = dataset.MergeMasks(mask, weights); err != nil {
				return nil, nil, errors.Trace(err)
			}
		}
	} else if y, mask, err = dataset.LoadCSV[T](conf.Data.Observations, device); err != nil {
		return nil, nil, errors.Trace(err)
	}
	if conf.Data.Mask != "" {
		weights, _, err := dataset.LoadCSV[float64](conf.Data.Mask, device)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		if mask, err = dataset.MergeMasks(mask, weights); err != nil {
			return nil, nil, errors.Trace(err)
		}
	}
	return y, mask, nil
}
