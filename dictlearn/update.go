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

// jitter keeps the step finite for atoms that no code has used yet.
const jitter = 1e-10

// UpdateDictionary performs one vectorized block coordinate step on every
// atom of d and writes the projected result into dst:
//
//	U_j   = D_j + (B_j − (A·D)_j) / (A_jj + jitter)
//	D'_j  = U_j / max(Σ_c |U_jc|², 1)
//
// Atoms inside the unit ball are left unscaled.
func UpdateDictionary[T backend.Scalar](ops backend.Ops[T], a, b, d, dst backend.Matrix[T]) {
	// dst ← B − A·D
	dst.CopyFrom(b)
	ops.Gemm(backend.NoTrans, backend.NoTrans, -1, a, d, 1, dst)
	for j := 0; j < dst.Rows; j++ {
		u, atom := dst.Row(j), d.Row(j)
		scale := ops.FromReal(1 / (ops.Real(a.At(j, j)) + jitter))
		var norm float64
		for c := range u {
			u[c] = atom[c] + u[c]*scale
			abs := ops.Abs(u[c])
			norm += abs * abs
		}
		if norm > 1 {
			shrink := ops.FromReal(1 / norm)
			for c := range u {
				u[c] *= shrink
			}
		}
	}
}
