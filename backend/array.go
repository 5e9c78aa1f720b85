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
	"slices"

	"github.com/juju/errors"
)

// Matrix is a row-major view of two-dimensional data.
type Matrix[T Scalar] struct {
	Rows   int
	Cols   int
	Stride int
	Data   []T
}

// NewMatrix allocates a zero matrix.
func NewMatrix[T Scalar](rows, cols int) Matrix[T] {
	return Matrix[T]{Rows: rows, Cols: cols, Stride: max(1, cols), Data: make([]T, rows*cols)}
}

func (m Matrix[T]) At(i, j int) T {
	return m.Data[i*m.Stride+j]
}

func (m Matrix[T]) Set(i, j int, v T) {
	m.Data[i*m.Stride+j] = v
}

// Row returns the i-th row sharing storage with m.
func (m Matrix[T]) Row(i int) []T {
	return m.Data[i*m.Stride : i*m.Stride+m.Cols]
}

// Zero fills the matrix with zeros.
func (m Matrix[T]) Zero() {
	for i := 0; i < m.Rows; i++ {
		clear(m.Row(i))
	}
}

// CopyFrom copies src into m. Both must have the same dimensions.
func (m Matrix[T]) CopyFrom(src Matrix[T]) {
	for i := 0; i < m.Rows; i++ {
		copy(m.Row(i), src.Row(i))
	}
}

// Gather copies rows[k] of m into row k of dst.
func (m Matrix[T]) Gather(rows []int, dst Matrix[T]) {
	for k, i := range rows {
		copy(dst.Row(k), m.Row(i))
	}
}

// Scatter copies row k of src into rows[k] of m.
func (m Matrix[T]) Scatter(rows []int, src Matrix[T]) {
	for k, i := range rows {
		copy(m.Row(i), src.Row(k))
	}
}

// Array is an n-dimensional row-major array. The last dimension is the
// channel (or feature) axis, the leading dimensions index samples.
type Array[T Scalar] struct {
	Shape  []int
	Data   []T
	Device Device
}

// NewArray allocates a zero array on a device.
func NewArray[T Scalar](device Device, shape ...int) *Array[T] {
	return &Array[T]{
		Shape:  slices.Clone(shape),
		Data:   make([]T, sizeOf(shape)),
		Device: device,
	}
}

// FromSlice wraps data as an array without copying.
func FromSlice[T Scalar](device Device, data []T, shape ...int) (*Array[T], error) {
	if len(shape) == 0 {
		return nil, errors.Annotatef(ErrShapeMismatch, "array needs at least one dimension")
	}
	if size := sizeOf(shape); size != len(data) {
		return nil, errors.Annotatef(ErrShapeMismatch, "shape %v needs %d elements, got %d", shape, size, len(data))
	}
	return &Array[T]{Shape: slices.Clone(shape), Data: data, Device: device}, nil
}

// FromRows builds a two-dimensional array from rows of equal length.
func FromRows[T Scalar](device Device, rows [][]T) (*Array[T], error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	data := make([]T, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, errors.Annotatef(ErrShapeMismatch, "row %d has %d columns, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return &Array[T]{Shape: []int{len(rows), cols}, Data: data, Device: device}, nil
}

func sizeOf(shape []int) int {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return size
}

// Location returns the device the array lives on. A nil array has no
// location.
func (a *Array[T]) Location() Device {
	if a == nil {
		return ""
	}
	if a.Device == "" {
		return CPU
	}
	return a.Device
}

func (a *Array[T]) Size() int {
	return len(a.Data)
}

// Leading returns the sample dimensions.
func (a *Array[T]) Leading() []int {
	if len(a.Shape) == 0 {
		return nil
	}
	return a.Shape[:len(a.Shape)-1]
}

// Rows is the number of samples, the product of the leading dimensions.
func (a *Array[T]) Rows() int {
	return sizeOf(a.Leading())
}

// Cols is the size of the last dimension.
func (a *Array[T]) Cols() int {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[len(a.Shape)-1]
}

// Matrix flattens the leading dimensions. The matrix shares storage with a.
func (a *Array[T]) Matrix() Matrix[T] {
	cols := a.Cols()
	return Matrix[T]{Rows: a.Rows(), Cols: cols, Stride: max(1, cols), Data: a.Data}
}

func (a *Array[T]) Clone() *Array[T] {
	return &Array[T]{Shape: slices.Clone(a.Shape), Data: slices.Clone(a.Data), Device: a.Device}
}

// To copies the array onto another device.
func (a *Array[T]) To(device Device) *Array[T] {
	b := a.Clone()
	b.Device = device
	return b
}
