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

package dictlearn

import (
	"context"
	"math"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/decomp/backend"
	"github.com/gorse-io/decomp/common/log"
	"github.com/gorse-io/decomp/common/progress"
	"github.com/gorse-io/decomp/common/random"
	"github.com/gorse-io/decomp/lasso"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Result of a dictionary learning run. Dictionary and Codes are the arrays
// passed to Solve, updated in place.
type Result[T backend.Scalar] struct {
	Iterations  int
	Dictionary  *backend.Array[T]
	Codes       *backend.Array[T]
	Converged   bool
	Interrupted bool
	// Delta is the last measured max-abs dictionary change.
	Delta float64
	// Touched counts the samples whose codes were refreshed at least once.
	Touched int
	// Progress is the final state of the run's progress span.
	Progress progress.Progress
}

// SpanName names the progress span opened by Solve under the span in its
// context.
const SpanName = "dictionary learning"

// Solve learns a dictionary d (F × C) and sparse codes x (... × F) for the
// observations y (... × C) by online dictionary learning. x may be nil, in
// which case zero codes are allocated. mask, when given, has the shape of y
// and weights every observation entry; zero marks a missing entry.
//
// Cancelling ctx stops the run at the next iteration boundary. The last
// committed state is returned with Interrupted set and a nil error.
func Solve[T backend.Scalar](ctx context.Context, y, d, x *backend.Array[T], mask *backend.Array[float64], alpha float64, config *FitConfig) (*Result[T], error) {
	if config == nil {
		config = NewFitConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if alpha <= 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, errors.NotValidf("alpha %v", alpha)
	}
	if y == nil || d == nil {
		return nil, errors.Annotatef(ErrShapeMismatch, "observations and dictionary are required")
	}
	ops, err := backend.Select(y, d, x)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if _, err = backend.Same(y, mask); err != nil {
		return nil, errors.Trace(err)
	}
	if x == nil {
		x = backend.NewArray[T](ops.Device(), append(append([]int{}, y.Leading()...), d.Rows())...)
	}
	if err = checkShapes(y, d, x, mask); err != nil {
		return nil, errors.Trace(err)
	}
	solver, err := lasso.NewSolver(ops, config.Solver, alpha, config.Tol, config.SolverIterations)
	if err != nil {
		return nil, errors.Trace(err)
	}

	mode := "unmasked"
	if mask != nil {
		mode = "masked"
	}
	start := time.Now()
	ctx, span := progress.Start(ctx, SpanName, config.MaxIterations)
	result := newRun(ops, solver, y, d, x, mask, config).loop(ctx, span)
	FitSeconds.Observe(time.Since(start).Seconds())

	status := "exhausted"
	switch {
	case result.Converged:
		status = "converged"
		span.End()
	case result.Interrupted:
		status = "interrupted"
		span.Interrupt()
	default:
		span.End()
	}
	result.Progress = span.Progress()
	FitsTotal.WithLabelValues(solver.Method(), mode, status).Inc()
	log.Logger().Info("dictionary learning finished",
		zap.String("status", status),
		zap.String("solver", solver.Method()),
		zap.String("mode", mode),
		zap.String("device", string(ops.Device())),
		zap.Int("iterations", result.Iterations),
		zap.Float64("delta", result.Delta),
		zap.Int("touched", result.Touched),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func checkShapes[T backend.Scalar](y, d, x *backend.Array[T], mask *backend.Array[float64]) error {
	if len(y.Shape) < 2 {
		return errors.Annotatef(ErrShapeMismatch, "observations need at least two dimensions, got %v", y.Shape)
	}
	if len(d.Shape) != 2 {
		return errors.Annotatef(ErrShapeMismatch, "dictionary must be two-dimensional, got %v", d.Shape)
	}
	if d.Cols() != y.Cols() {
		return errors.Annotatef(ErrShapeMismatch, "dictionary has %d channels, observations have %d", d.Cols(), y.Cols())
	}
	if d.Rows() < 1 {
		return errors.Annotatef(ErrShapeMismatch, "dictionary has no atoms")
	}
	if y.Rows() < 1 {
		return errors.Annotatef(ErrShapeMismatch, "observations have no samples")
	}
	if !sameInts(x.Leading(), y.Leading()) || x.Cols() != d.Rows() {
		return errors.Annotatef(ErrShapeMismatch, "codes have shape %v, expected %v × %d", x.Shape, y.Leading(), d.Rows())
	}
	if mask != nil {
		if !sameInts(mask.Shape, y.Shape) {
			return errors.Annotatef(ErrShapeMismatch, "mask has shape %v, observations have %v", mask.Shape, y.Shape)
		}
		for i, w := range mask.Data {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return errors.Annotatef(ErrDtypeMismatch, "mask entry %d is %v, expected a nonnegative real weight", i, w)
			}
		}
	}
	return nil
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// run owns the mutable state of one Solve call.
type run[T backend.Scalar] struct {
	ops     backend.Ops[T]
	config  *FitConfig
	solver  *lasso.Solver[T]
	stats   *Statistics[T]
	monitor *Monitor[T]
	rng     random.RandomGenerator
	touched *bitset.BitSet

	d, x        *backend.Array[T]
	y, codes, D backend.Matrix[T]
	mask        *backend.Matrix[float64]
	next        backend.Matrix[T]

	batchY, batchX backend.Matrix[T]
	batchMask      *backend.Matrix[float64]
	size           int
}

func newRun[T backend.Scalar](ops backend.Ops[T], solver *lasso.Solver[T], y, d, x *backend.Array[T], mask *backend.Array[float64], config *FitConfig) *run[T] {
	n, features, channels := y.Rows(), d.Rows(), d.Cols()
	size := min(config.MinibatchSize, n)
	r := &run[T]{
		ops:     ops,
		config:  config,
		solver:  solver,
		stats:   NewStatistics(ops, features, channels, mask != nil),
		monitor: NewMonitor(ops, config.Tol),
		rng:     random.NewRandomGenerator(config.Seed),
		touched: bitset.New(uint(n)),
		d:       d,
		x:       x,
		y:       y.Matrix(),
		codes:   x.Matrix(),
		D:       d.Matrix(),
		next:    backend.NewMatrix[T](features, channels),
		batchY:  backend.NewMatrix[T](size, channels),
		batchX:  backend.NewMatrix[T](size, features),
		size:    size,
	}
	if mask != nil {
		m := mask.Matrix()
		r.mask = &m
		bm := backend.NewMatrix[float64](size, channels)
		r.batchMask = &bm
	}
	return r
}

func (r *run[T]) loop(ctx context.Context, span *progress.Span) *Result[T] {
	result := &Result[T]{Dictionary: r.d, Codes: r.x}
	n := r.y.Rows
	for it := 1; it < r.config.MaxIterations; it++ {
		if r.monitor.Interrupted(ctx) {
			result.Iterations = it - 1
			result.Interrupted = true
			break
		}
		rows := r.rng.MinibatchIndex(n, r.size)
		r.step(rows)
		converged := r.monitor.Converged(r.D, r.next)
		r.D.CopyFrom(r.next)

		delta := r.monitor.Delta()
		IterationsTotal.Inc()
		DictionaryDelta.Set(delta)
		span.Add(1)
		if r.config.OnIteration != nil {
			r.config.OnIteration(it, delta)
		}
		if r.config.Verbose > 0 && it%r.config.Verbose == 0 {
			log.Logger().Debug("dictionary learning iteration",
				zap.Int("iteration", it),
				zap.Float64("delta", delta),
				zap.Uint("touched", r.touched.Count()))
		}
		if converged {
			result.Iterations = it
			result.Converged = true
			break
		}
	}
	if !result.Converged && !result.Interrupted {
		result.Iterations = r.config.MaxIterations
	}
	result.Delta = r.monitor.Delta()
	result.Touched = int(r.touched.Count())
	return result
}

// step refreshes the codes of one minibatch, folds them into the
// statistics and writes the candidate dictionary into r.next.
func (r *run[T]) step(rows []int) {
	r.y.Gather(rows, r.batchY)
	r.codes.Gather(rows, r.batchX)
	if r.mask != nil {
		r.mask.Gather(rows, *r.batchMask)
	}
	r.solver.Solve(r.batchY, r.D, r.batchX, r.batchMask)
	r.codes.Scatter(rows, r.batchX)
	for _, i := range rows {
		r.touched.Set(uint(i))
	}
	r.stats.Update(r.batchX, r.batchY, r.batchMask)
	UpdateDictionary(r.ops, r.stats.A, r.stats.B, r.D, r.next)
}
