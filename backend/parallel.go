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

package backend

import (
	"runtime"
	"sync/atomic"

	"github.com/gorse-io/decomp/common/parallel"
	"github.com/klauspost/cpuid/v2"
	"github.com/viterin/vek"
)

var parallelJobs atomic.Int64

func init() {
	parallelJobs.Store(int64(runtime.NumCPU()))
	Register(Parallel,
		&parallelOps[float64]{elementOps: realScalar{}, dot: dotReal},
		&parallelOps[complex128]{elementOps: complexScalar{}, dot: dotComplex})
}

// SetParallelJobs sets the number of goroutines used by the parallel
// backend. Values below one are treated as one.
func SetParallelJobs(n int) {
	parallelJobs.Store(int64(max(1, n)))
}

// ParallelJobs returns the number of goroutines used by the parallel backend.
func ParallelJobs() int {
	return int(parallelJobs.Load())
}

// SIMDFeatures lists the vector extensions the parallel backend can use on
// this machine.
func SIMDFeatures() []string {
	var features []string
	if cpuid.CPU.Supports(cpuid.AVX2, cpuid.FMA3) {
		features = append(features, "avx2")
	}
	if cpuid.CPU.Supports(cpuid.AVX512F) {
		features = append(features, "avx512f")
	}
	if cpuid.CPU.Supports(cpuid.ASIMD) {
		features = append(features, "neon")
	}
	return features
}

// parallelOps splits matrix products into row blocks computed on separate
// goroutines. Operands are laid out so that every output element is a
// contiguous dot product, which vek accelerates with SIMD for real data.
type parallelOps[T Scalar] struct {
	elementOps[T]
	dot func(a, b []T) T
}

func (p *parallelOps[T]) Device() Device {
	return Parallel
}

func (p *parallelOps[T]) Gemm(tA, tB Transpose, alpha T, a, b Matrix[T], beta T, c Matrix[T]) {
	// rows of op(a)
	lhs := a
	if tA == ConjTrans {
		lhs = p.transpose(a, true)
	}
	// columns of op(b)
	var rhs Matrix[T]
	if tB == ConjTrans {
		rhs = p.conjugate(b)
	} else {
		rhs = p.transpose(b, false)
	}
	parallel.Range(c.Rows, ParallelJobs(), func(begin, end int) {
		for i := begin; i < end; i++ {
			row := c.Row(i)
			for j := range row {
				v := alpha * p.dot(lhs.Row(i), rhs.Row(j))
				if beta != 0 {
					v += beta * row[j]
				}
				row[j] = v
			}
		}
	})
}

func (p *parallelOps[T]) transpose(m Matrix[T], conj bool) Matrix[T] {
	t := NewMatrix[T](m.Cols, m.Rows)
	// each job fills one column of t
	parallel.For(m.Rows, ParallelJobs(), func(i int) {
		for j, v := range m.Row(i) {
			if conj {
				v = p.Conj(v)
			}
			t.Data[j*t.Stride+i] = v
		}
	})
	return t
}

func (p *parallelOps[T]) conjugate(m Matrix[T]) Matrix[T] {
	if p.Family() == Real {
		return m
	}
	c := NewMatrix[T](m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		dst := c.Row(i)
		for j, v := range m.Row(i) {
			dst[j] = p.Conj(v)
		}
	}
	return c
}

func dotReal(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return vek.Dot(a, b)
}

func dotComplex(a, b []complex128) (ret complex128) {
	for i := range a {
		ret += a[i] * b[i]
	}
	return
}
