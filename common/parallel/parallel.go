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
	"sync"
)

const chanSize = 1024

// For runs worker(jobId) for every job in [0, nJobs) on nWorkers goroutines.
func For(nJobs, nWorkers int, worker func(int)) {
	if nWorkers <= 1 || nJobs <= 1 {
		for i := 0; i < nJobs; i++ {
			worker(i)
		}
		return
	}
	c := make(chan int, chanSize)
	// producer
	go func() {
		for i := 0; i < nJobs; i++ {
			c <- i
		}
		close(c)
	}()
	// consumer
	var wg sync.WaitGroup
	for j := 0; j < nWorkers; j++ {
		wg.Go(func() {
			for jobId := range c {
				worker(jobId)
			}
		})
	}
	wg.Wait()
}

// Range splits [0, n) into at most nWorkers contiguous blocks and runs
// worker(begin, end) for each block concurrently. Blocks keep their order
// and their sizes differ by at most one.
func Range(n, nWorkers int, worker func(begin, end int)) {
	blocks := Split(n, nWorkers)
	if len(blocks) <= 1 {
		if n > 0 {
			worker(0, n)
		}
		return
	}
	var wg sync.WaitGroup
	for _, block := range blocks {
		wg.Go(func() {
			worker(block[0], block[1])
		})
	}
	wg.Wait()
}

// Split [0, n) into at most k [begin, end) intervals.
func Split(n, k int) [][2]int {
	if n <= 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	minChunkSize := n / k
	maxChunkNum := n % k
	chunks := make([][2]int, k)
	for i, j := 0, 0; i < k; i++ {
		chunkSize := minChunkSize
		if i < maxChunkNum {
			chunkSize++
		}
		chunks[i] = [2]int{j, j + chunkSize}
		j += chunkSize
	}
	return chunks
}
