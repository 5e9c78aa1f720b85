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


package random

import (
	"math"
	"math/cmplx"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

const randomEpsilon = 0.1

func TestRandomGenerator_NormalMatrix64(t *testing.T) {
	rng := NewRandomGenerator(0)
	vec := rng.NormalMatrix64(1, 1000, 1, 2)[0]
	assert.False(t, math.Abs(stat.Mean(vec, nil)-1) > randomEpsilon)
	assert.False(t, math.Abs(stat.StdDev(vec, nil)-2) > randomEpsilon)
}

func TestRandomGenerator_ComplexNormalVector(t *testing.T) {
	rng := NewRandomGenerator(0)
	vec := rng.ComplexNormalVector(1000, 1)
	re := lo.Map(vec, func(v complex128, _ int) float64 { return real(v) })
	im := lo.Map(vec, func(v complex128, _ int) float64 { return imag(v) })
	assert.False(t, math.Abs(stat.Mean(re, nil)) > randomEpsilon)
	assert.False(t, math.Abs(stat.Mean(im, nil)) > randomEpsilon)
	power := lo.SumBy(vec, func(v complex128) float64 { return cmplx.Abs(v) * cmplx.Abs(v) }) / float64(len(vec))
	assert.InDelta(t, 2, power, 2*randomEpsilon)
}

func TestRandomGenerator_Sample(t *testing.T) {
	excludeSet := mapset.NewSet(0, 1, 2, 3, 4)
	rng := NewRandomGenerator(0)
	for i := 1; i <= 10; i++ {
		sampled := rng.Sample(0, 10, i, excludeSet)
		for j := range sampled {
			assert.False(t, excludeSet.Contains(sampled[j]))
		}
		assert.Len(t, lo.Uniq(sampled), len(sampled))
	}
}

func TestRandomGenerator_MinibatchIndex(t *testing.T) {
	// deterministic for a fixed seed
	a := NewRandomGenerator(42)
	b := NewRandomGenerator(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.MinibatchIndex(101, 10), b.MinibatchIndex(101, 10))
	}
	// distinct rows inside range
	rng := NewRandomGenerator(0)
	batch := rng.MinibatchIndex(101, 10)
	assert.Len(t, batch, 10)
	assert.Len(t, lo.Uniq(batch), 10)
	for _, i := range batch {
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 101)
	}
	// full batch keeps order
	assert.Equal(t, lo.Range(7), rng.MinibatchIndex(7, 7))
	assert.Equal(t, lo.Range(7), rng.MinibatchIndex(7, 100))
	// zero size falls back to one row
	assert.Len(t, rng.MinibatchIndex(7, 0), 1)
}
