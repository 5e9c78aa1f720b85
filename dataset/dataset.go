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

// Package dataset loads observation, mask and dictionary matrices from CSV
// files and SQLite tables, and writes learned matrices back.
//
// Empty CSV cells and NULL SQL values are missing observations: they load
// as zero and are reported through a mask whose entry is zero there and one
// elsewhere.
package dataset

import (
	"github.com/gorse-io/decomp/backend"
	"github.com/juju/errors"
)

// table collects rows of equal width and remembers missing cells.
type table[T backend.Scalar] struct {
	cols    int
	data    []T
	missing []int
}

func (t *table[T]) width(n int) error {
	if t.cols == 0 && len(t.data) == 0 {
		t.cols = n
	} else if n != t.cols {
		return errors.Annotatef(backend.ErrShapeMismatch, "row %d has %d columns, expected %d", t.rows(), n, t.cols)
	}
	return nil
}

func (t *table[T]) rows() int {
	if t.cols == 0 {
		return 0
	}
	return len(t.data) / t.cols
}

func (t *table[T]) append(v T, missing bool) {
	if missing {
		t.missing = append(t.missing, len(t.data))
	}
	t.data = append(t.data, v)
}

func (t *table[T]) build(device backend.Device) (*backend.Array[T], *backend.Array[float64], error) {
	values, err := backend.FromSlice(device, t.data, t.rows(), t.cols)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	if len(t.missing) == 0 {
		return values, nil, nil
	}
	mask := backend.NewArray[float64](device, t.rows(), t.cols)
	for i := range mask.Data {
		mask.Data[i] = 1
	}
	for _, i := range t.missing {
		mask.Data[i] = 0
	}
	return values, mask, nil
}

// MergeMasks multiplies two masks of the same shape. Either may be nil.
func MergeMasks(a, b *backend.Array[float64]) (*backend.Array[float64], error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	if a.Size() != b.Size() || a.Rows() != b.Rows() {
		return nil, errors.Annotatef(backend.ErrShapeMismatch, "masks have shapes %v and %v", a.Shape, b.Shape)
	}
	merged := a.Clone()
	for i, w := range b.Data {
		merged.Data[i] *= w
	}
	return merged, nil
}
