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
	"math"
	"math/cmplx"
	"sort"
	"sync"

	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Scalar is the element type of arrays: real or complex.
type Scalar interface {
	float64 | complex128
}

// Family is the numeric family of a scalar type.
type Family int

const (
	Real Family = iota
	Complex
)

func (f Family) String() string {
	if f == Complex {
		return "complex"
	}
	return "real"
}

// Device names a compute backend.
type Device string

const (
	CPU      Device = "cpu"
	Parallel Device = "parallel"
)

// Transpose selects op(x) in Gemm.
type Transpose int

const (
	NoTrans Transpose = iota
	// ConjTrans is the conjugate transpose. It is the plain transpose for
	// real data.
	ConjTrans
)

// Ops is the set of array primitives an algorithm needs from a backend.
// Each backend provides one implementation per numeric family, so callers
// never branch on the element type.
type Ops[T Scalar] interface {
	Device() Device
	Family() Family
	// Gemm computes c = alpha·op(a)·op(b) + beta·c. When beta is zero the
	// previous content of c is ignored.
	Gemm(tA, tB Transpose, alpha T, a, b Matrix[T], beta T, c Matrix[T])
	Conj(x T) T
	Abs(x T) float64
	Real(x T) float64
	FromReal(x float64) T
}

// elementOps are the element-wise capabilities shared by all backends.
type elementOps[T Scalar] interface {
	Family() Family
	Conj(x T) T
	Abs(x T) float64
	Real(x T) float64
	FromReal(x float64) T
}

type realScalar struct{}

func (realScalar) Family() Family             { return Real }
func (realScalar) Conj(x float64) float64     { return x }
func (realScalar) Abs(x float64) float64      { return math.Abs(x) }
func (realScalar) Real(x float64) float64     { return x }
func (realScalar) FromReal(x float64) float64 { return x }

type complexScalar struct{}

func (complexScalar) Family() Family                { return Complex }
func (complexScalar) Conj(x complex128) complex128  { return cmplx.Conj(x) }
func (complexScalar) Abs(x complex128) float64      { return cmplx.Abs(x) }
func (complexScalar) Real(x complex128) float64     { return real(x) }
func (complexScalar) FromReal(x float64) complex128 { return complex(x, 0) }

type provider struct {
	real    Ops[float64]
	complex Ops[complex128]
}

var (
	providersLock sync.RWMutex
	providers     = make(map[Device]provider)
)

// Register installs the implementations of a device. Registering a device
// twice replaces the previous implementations.
func Register(device Device, real Ops[float64], complex Ops[complex128]) {
	providersLock.Lock()
	defer providersLock.Unlock()
	providers[device] = provider{real: real, complex: complex}
}

// Devices lists registered devices in lexical order.
func Devices() []Device {
	providersLock.RLock()
	defer providersLock.RUnlock()
	devices := lo.Keys(providers)
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })
	return devices
}

// Lookup returns the operations of a device for the element type T.
func Lookup[T Scalar](device Device) (Ops[T], error) {
	providersLock.RLock()
	p, ok := providers[device]
	providersLock.RUnlock()
	if !ok {
		return nil, errors.Annotatef(ErrUnknownDevice, "device %q", device)
	}
	if ops, ok := any(p.real).(Ops[T]); ok {
		return ops, nil
	}
	if ops, ok := any(p.complex).(Ops[T]); ok {
		return ops, nil
	}
	return nil, errors.Annotatef(ErrUnknownDevice, "device %q has no implementation for this element type", device)
}

// Located is anything that lives on a device.
type Located interface {
	Location() Device
}

// Same verifies that every located value lives on one device and returns
// it. Values without location are skipped. The CPU is returned when no
// value has a location.
func Same(values ...Located) (Device, error) {
	var device Device
	for i, v := range values {
		if v == nil {
			continue
		}
		location := v.Location()
		if location == "" {
			continue
		}
		if device == "" {
			device = location
		} else if location != device {
			return "", errors.Annotatef(ErrBackendMismatch, "argument %d is on %q, expected %q", i, location, device)
		}
	}
	if device == "" {
		device = CPU
	}
	return device, nil
}

// Select checks that all arrays share one device and returns its
// operations.
func Select[T Scalar](arrays ...*Array[T]) (Ops[T], error) {
	values := make([]Located, len(arrays))
	for i, a := range arrays {
		values[i] = a
	}
	device, err := Same(values...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return Lookup[T](device)
}
