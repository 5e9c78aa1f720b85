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

package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	a := lo.Range(10000)
	// multiple threads
	b := make([]int, len(a))
	For(len(a), 4, func(jobId int) {
		b[jobId] = a[jobId]
	})
	assert.Equal(t, a, b)
	// single thread
	b = make([]int, len(a))
	For(len(a), 1, func(jobId int) {
		b[jobId] = a[jobId]
	})
	assert.Equal(t, a, b)
}

func TestRange(t *testing.T) {
	a := lo.Range(1001)
	b := make([]int, len(a))
	var calls atomic.Int32
	Range(len(a), 4, func(begin, end int) {
		calls.Add(1)
		for i := begin; i < end; i++ {
			b[i] = a[i]
		}
	})
	assert.Equal(t, a, b)
	assert.Equal(t, int32(4), calls.Load())

	// empty range never calls worker
	Range(0, 4, func(begin, end int) {
		t.Fatal("unexpected call")
	})
}

func TestSplit(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 4}, {4, 7}, {7, 10}}, Split(10, 3))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, Split(2, 8))
	assert.Equal(t, [][2]int{{0, 5}}, Split(5, 0))
	assert.Nil(t, Split(0, 3))
}
