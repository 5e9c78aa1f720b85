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
	"github.com/gorse-io/decomp/backend"
)

// Statistics are the running sufficient statistics of the surrogate
// objective:
//
//	A ≈ mean of Xᴴ·X over every minibatch seen so far   [F, F]
//	B ≈ mean of Xᴴ·Y over every minibatch seen so far   [F, C]
//	E  = cumulative mask weight per channel              [C]  (masked only)
//
// Without a mask A and B are 1/t-weighted running averages. With a mask B
// is the exact per-channel weighted average of observed cross-products,
// normalized by the exposure E.
type Statistics[T backend.Scalar] struct {
	ops backend.Ops[T]
	t   int

	A backend.Matrix[T]
	B backend.Matrix[T]
	E []float64

	cross    backend.Matrix[T]
	weighted backend.Matrix[T]
	maskSum  []float64
}

// NewStatistics allocates zero statistics for F atoms and C channels.
func NewStatistics[T backend.Scalar](ops backend.Ops[T], features, channels int, masked bool) *Statistics[T] {
	s := &Statistics[T]{
		ops: ops,
		A:   backend.NewMatrix[T](features, features),
		B:   backend.NewMatrix[T](features, channels),
	}
	if masked {
		s.E = make([]float64, channels)
		s.cross = backend.NewMatrix[T](features, channels)
		s.maskSum = make([]float64, channels)
	}
	return s
}

// Iteration returns the number of minibatches folded in so far.
func (s *Statistics[T]) Iteration() int {
	return s.t
}

// Masked reports whether the exposure counter exists.
func (s *Statistics[T]) Masked() bool {
	return s.E != nil
}

// Update folds the solved codes x of one minibatch (rows × F) and its
// observations y (rows × C) into the statistics. mask must be nil exactly
// when the statistics were created unmasked.
func (s *Statistics[T]) Update(x, y backend.Matrix[T], mask *backend.Matrix[float64]) {
	s.t++
	w := 1 / float64(s.t)
	alpha, beta := s.ops.FromReal(w), s.ops.FromReal(1-w)
	// A ← (1−w)·A + w·xᴴ·x
	s.ops.Gemm(backend.ConjTrans, backend.NoTrans, alpha, x, x, beta, s.A)
	if mask == nil {
		// B ← (1−w)·B + w·xᴴ·y
		s.ops.Gemm(backend.ConjTrans, backend.NoTrans, alpha, x, y, beta, s.B)
		return
	}
	s.updateMasked(x, y, *mask)
}

// updateMasked applies B ← B + (xᴴ·(y⊙M) − Σ M ⊙ B) / E channel by channel.
func (s *Statistics[T]) updateMasked(x, y backend.Matrix[T], mask backend.Matrix[float64]) {
	if s.weighted.Rows != y.Rows {
		s.weighted = backend.NewMatrix[T](y.Rows, y.Cols)
	}
	clear(s.maskSum)
	for i := 0; i < y.Rows; i++ {
		src, dst, weights := y.Row(i), s.weighted.Row(i), mask.Row(i)
		for c, v := range src {
			dst[c] = v * s.ops.FromReal(weights[c])
			s.maskSum[c] += weights[c]
		}
	}
	s.ops.Gemm(backend.ConjTrans, backend.NoTrans, 1, x, s.weighted, 0, s.cross)
	for c := range s.E {
		s.E[c] += s.maskSum[c]
	}
	for j := 0; j < s.B.Rows; j++ {
		b, cross := s.B.Row(j), s.cross.Row(j)
		for c := range b {
			if s.E[c] == 0 {
				// never observed: nothing to average yet
				continue
			}
			b[c] += (cross[c] - s.ops.FromReal(s.maskSum[c])*b[c]) * s.ops.FromReal(1/s.E[c])
		}
	}
}
