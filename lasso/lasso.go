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

// Package lasso solves the L1-regularized least-squares problem
//
//	argmin_X ½ Σ M·|Y − X·D|² + alpha·‖X‖₁
//
// for a fixed dictionary D by proximal gradient descent. M is an optional
// nonnegative weight applied to the squared residual entrywise (zero marks a
// missing entry). Real and complex data are both supported; the conjugate
// transpose is supplied by the backend.
package lasso

import (
	"math"

	"github.com/gorse-io/decomp/backend"
	"github.com/juju/errors"
)

const (
	ISTA  = "ista"
	FISTA = "fista"
)

const ErrUnsupportedMethod = errors.ConstError("unsupported method")

// Validate returns ErrUnsupportedMethod unless method names a solver.
func Validate(method string) error {
	switch method {
	case ISTA, FISTA:
		return nil
	default:
		return errors.Annotatef(ErrUnsupportedMethod, "lasso method %q", method)
	}
}

// Solver refreshes code blocks in place. Work buffers are reused between
// calls with the same block size, so a Solver must not be shared between
// goroutines.
type Solver[T backend.Scalar] struct {
	ops     backend.Ops[T]
	method  string
	alpha   float64
	tol     float64
	maxIter int

	gram     backend.Matrix[T]
	residual backend.Matrix[T]
	grad     backend.Matrix[T]
	next     backend.Matrix[T]
	momentum backend.Matrix[T]
}

// NewSolver creates a solver. It fails before any work is done if the
// method is unknown.
func NewSolver[T backend.Scalar](ops backend.Ops[T], method string, alpha, tol float64, maxIter int) (*Solver[T], error) {
	if err := Validate(method); err != nil {
		return nil, errors.Trace(err)
	}
	if alpha <= 0 {
		return nil, errors.NotValidf("alpha %v", alpha)
	}
	return &Solver[T]{
		ops:     ops,
		method:  method,
		alpha:   alpha,
		tol:     tol,
		maxIter: maxIter,
	}, nil
}

func (s *Solver[T]) Method() string {
	return s.method
}

// Solve warm-starts from x (rows × F) and overwrites it with the codes of
// y (rows × C) under dictionary d (F × C). A nil mask means fully observed
// data. The matrices must be contiguous. It returns the number of
// iterations used.
func (s *Solver[T]) Solve(y, d, x backend.Matrix[T], mask *backend.Matrix[float64]) int {
	s.allocate(x.Rows, d.Rows, d.Cols)
	lipschitz := s.lipschitz(d, mask)
	if lipschitz == 0 {
		// the data term is constant, zero codes minimize the penalty
		x.Zero()
		return 1
	}
	step := 1 / lipschitz
	threshold := s.alpha * step
	if s.method == FISTA {
		return s.fista(y, d, x, mask, step, threshold)
	}
	return s.ista(y, d, x, mask, step, threshold)
}

func (s *Solver[T]) ista(y, d, x backend.Matrix[T], mask *backend.Matrix[float64], step, threshold float64) int {
	for it := 1; it <= s.maxIter; it++ {
		s.gradient(y, d, x, mask)
		s.proximal(x, step, threshold)
		delta := s.maxAbsDiff(s.next, x)
		x.CopyFrom(s.next)
		if delta < s.tol {
			return it
		}
	}
	return s.maxIter
}

func (s *Solver[T]) fista(y, d, x backend.Matrix[T], mask *backend.Matrix[float64], step, threshold float64) int {
	t := 1.0
	s.momentum.CopyFrom(x)
	for it := 1; it <= s.maxIter; it++ {
		s.gradient(y, d, s.momentum, mask)
		s.proximal(s.momentum, step, threshold)
		delta := s.maxAbsDiff(s.next, x)
		tNext := (1 + math.Sqrt(1+4*t*t)) / 2
		weight := s.ops.FromReal((t - 1) / tNext)
		for i, v := range s.next.Data {
			s.momentum.Data[i] = v + weight*(v-x.Data[i])
		}
		x.CopyFrom(s.next)
		t = tNext
		if delta < s.tol {
			return it
		}
	}
	return s.maxIter
}

// gradient stores (M⊙(x·d − y))·dᴴ into s.grad.
func (s *Solver[T]) gradient(y, d, x backend.Matrix[T], mask *backend.Matrix[float64]) {
	s.residual.CopyFrom(y)
	s.ops.Gemm(backend.NoTrans, backend.NoTrans, 1, x, d, -1, s.residual)
	if mask != nil {
		for i := 0; i < s.residual.Rows; i++ {
			row := s.residual.Row(i)
			for j, w := range mask.Row(i) {
				row[j] *= s.ops.FromReal(w)
			}
		}
	}
	s.ops.Gemm(backend.NoTrans, backend.ConjTrans, 1, s.residual, d, 0, s.grad)
}

// proximal stores soft(x − step·grad, threshold) into s.next.
func (s *Solver[T]) proximal(x backend.Matrix[T], step, threshold float64) {
	scale := s.ops.FromReal(step)
	for i, v := range x.Data {
		s.next.Data[i] = SoftThreshold(s.ops, v-scale*s.grad.Data[i], threshold)
	}
}

// lipschitz bounds the largest eigenvalue of the data term's Hessian by
// max(M)·‖D·Dᴴ‖_F.
func (s *Solver[T]) lipschitz(d backend.Matrix[T], mask *backend.Matrix[float64]) float64 {
	s.ops.Gemm(backend.NoTrans, backend.ConjTrans, 1, d, d, 0, s.gram)
	var norm float64
	for _, v := range s.gram.Data {
		a := s.ops.Abs(v)
		norm += a * a
	}
	norm = math.Sqrt(norm)
	if mask != nil {
		var weight float64
		for i := 0; i < mask.Rows; i++ {
			for _, w := range mask.Row(i) {
				weight = max(weight, w)
			}
		}
		norm *= weight
	}
	return norm
}

func (s *Solver[T]) maxAbsDiff(a, b backend.Matrix[T]) float64 {
	var ret float64
	for i := range a.Data {
		ret = max(ret, s.ops.Abs(a.Data[i]-b.Data[i]))
	}
	return ret
}

func (s *Solver[T]) allocate(rows, features, channels int) {
	if s.gram.Rows != features {
		s.gram = backend.NewMatrix[T](features, features)
	}
	if s.residual.Rows != rows || s.residual.Cols != channels {
		s.residual = backend.NewMatrix[T](rows, channels)
	}
	if s.grad.Rows != rows || s.grad.Cols != features {
		s.grad = backend.NewMatrix[T](rows, features)
		s.next = backend.NewMatrix[T](rows, features)
		s.momentum = backend.NewMatrix[T](rows, features)
	}
}

// SoftThreshold shrinks the magnitude of v by threshold, keeping its phase.
func SoftThreshold[T backend.Scalar](ops backend.Ops[T], v T, threshold float64) T {
	magnitude := ops.Abs(v)
	if magnitude <= threshold {
		return 0
	}
	return v * ops.FromReal(1-threshold/magnitude)
}
