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
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/blas/cblas128"
)

func init() {
	Register(CPU, cpuReal{}, cpuComplex{})
}

// cpuReal runs real matrix products on the gonum BLAS implementation.
type cpuReal struct {
	realScalar
}

func (cpuReal) Device() Device {
	return CPU
}

func (cpuReal) Gemm(tA, tB Transpose, alpha float64, a, b Matrix[float64], beta float64, c Matrix[float64]) {
	blas64.Gemm(realTranspose(tA), realTranspose(tB), alpha, general64(a), general64(b), beta, general64(c))
}

// cpuComplex runs complex matrix products on the gonum BLAS implementation.
type cpuComplex struct {
	complexScalar
}

func (cpuComplex) Device() Device {
	return CPU
}

func (cpuComplex) Gemm(tA, tB Transpose, alpha complex128, a, b Matrix[complex128], beta complex128, c Matrix[complex128]) {
	cblas128.Gemm(complexTranspose(tA), complexTranspose(tB), alpha, general128(a), general128(b), beta, general128(c))
}

func realTranspose(t Transpose) blas.Transpose {
	if t == ConjTrans {
		return blas.Trans
	}
	return blas.NoTrans
}

func complexTranspose(t Transpose) blas.Transpose {
	if t == ConjTrans {
		return blas.ConjTrans
	}
	return blas.NoTrans
}

func general64(m Matrix[float64]) blas64.General {
	return blas64.General{Rows: m.Rows, Cols: m.Cols, Stride: max(1, m.Stride), Data: m.Data}
}

func general128(m Matrix[complex128]) cblas128.General {
	return cblas128.General{Rows: m.Rows, Cols: m.Cols, Stride: max(1, m.Stride), Data: m.Data}
}
