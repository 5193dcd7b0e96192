// Package parallel splits row sweeps over snapshot matrices across CPU cores.
//
// Every row of a state matrix is shifted and scaled independently, so the
// affine kernels hand disjoint row ranges to workers. Small matrices are
// processed sequentially since goroutine start-up would dominate.
package parallel

import (
	"runtime"
	"sync"
)

// MinElements is the number of matrix entries below which Rows runs sequentially.
const MinElements = 1 << 16

// Parallelize divides items into contiguous ranges, one per CPU core,
// and runs fn on each range concurrently.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) directly when items does not
// exceed threshold, and Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// Rows runs fn over the row ranges of an rows×cols matrix, in parallel only
// when the matrix holds more than MinElements entries.
func Rows(rows, cols int, fn func(start, end int)) {
	if rows == 0 {
		return
	}
	if cols == 0 {
		fn(0, rows)
		return
	}
	ParallelizeWithThreshold(rows, MinElements/cols, fn)
}
