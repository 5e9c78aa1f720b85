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

	"github.com/gorse-io/decomp/backend"
)

// Monitor decides when the outer loop stops.
type Monitor[T backend.Scalar] struct {
	ops   backend.Ops[T]
	tol   float64
	delta float64
}

func NewMonitor[T backend.Scalar](ops backend.Ops[T], tol float64) *Monitor[T] {
	return &Monitor[T]{ops: ops, tol: tol}
}

// Interrupted reports whether the caller asked to stop. It is only
// consulted between iterations.
func (m *Monitor[T]) Interrupted(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Converged records max |d − next| and reports whether it is below the
// tolerance.
func (m *Monitor[T]) Converged(d, next backend.Matrix[T]) bool {
	m.delta = 0
	for i := 0; i < d.Rows; i++ {
		a, b := d.Row(i), next.Row(i)
		for c := range a {
			m.delta = max(m.delta, m.ops.Abs(a[c]-b[c]))
		}
	}
	return m.delta < m.tol
}

// Delta is the change measured by the last call to Converged.
func (m *Monitor[T]) Delta() float64 {
	return m.delta
}
