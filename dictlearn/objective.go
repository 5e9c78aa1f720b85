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
	"github.com/juju/errors"
)

// Objective evaluates ½ Σ M·|Y − X·D|² / alpha + ‖X‖₁, where every squared
// residual entry is weighted by the mask. A nil mask weights every entry by
// one.
func Objective[T backend.Scalar](y, d, x *backend.Array[T], mask *backend.Array[float64], alpha float64) (float64, error) {
	if alpha <= 0 {
		return 0, errors.NotValidf("alpha %v", alpha)
	}
	ops, err := backend.Select(y, d, x)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if err = checkShapes(y, d, x, mask); err != nil {
		return 0, errors.Trace(err)
	}
	ym, dm, xm := y.Matrix(), d.Matrix(), x.Matrix()
	residual := backend.NewMatrix[T](ym.Rows, ym.Cols)
	residual.CopyFrom(ym)
	ops.Gemm(backend.NoTrans, backend.NoTrans, -1, xm, dm, 1, residual)
	var fit float64
	for i := 0; i < residual.Rows; i++ {
		for c, v := range residual.Row(i) {
			abs := ops.Abs(v)
			w := 1.0
			if mask != nil {
				w = mask.Data[i*residual.Cols+c]
			}
			fit += w * abs * abs
		}
	}
	var penalty float64
	for _, v := range x.Data {
		penalty += ops.Abs(v)
	}
	return fit/(2*alpha) + penalty, nil
}
