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
	"math"

	"github.com/gorse-io/decomp/backend"
	"github.com/gorse-io/decomp/common/random"
	"github.com/juju/errors"
)

// RandomDictionary draws atoms × channels standard normal entries on a
// device and scales every atom to unit norm.
func RandomDictionary[T backend.Scalar](device backend.Device, atoms, channels int, seed int64) (*backend.Array[T], error) {
	if atoms < 1 || channels < 1 {
		return nil, errors.Annotatef(ErrShapeMismatch, "dictionary of %d atoms × %d channels", atoms, channels)
	}
	ops, err := backend.Lookup[T](device)
	if err != nil {
		return nil, errors.Trace(err)
	}
	rng := random.NewRandomGenerator(seed)
	d := backend.NewArray[T](device, atoms, channels)
	m := d.Matrix()
	for j := 0; j < atoms; j++ {
		atom := m.Row(j)
		switch row := any(atom).(type) {
		case []float64:
			copy(row, rng.NormalVector64(channels, 0, 1))
		case []complex128:
			copy(row, rng.ComplexNormalVector(channels, 1/math.Sqrt2))
		}
		var norm float64
		for _, v := range atom {
			abs := ops.Abs(v)
			norm += abs * abs
		}
		scale := ops.FromReal(1 / math.Sqrt(norm))
		for c := range atom {
			atom[c] *= scale
		}
	}
	return d, nil
}
