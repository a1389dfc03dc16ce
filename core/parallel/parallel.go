// Package parallel splits index ranges across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize divides items into contiguous ranges, one per CPU core, and
// calls fn(start, end) for each range concurrently. It returns once every
// range has been processed.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.NumCPU(), fn)
}

// ParallelizeN is Parallelize with an explicit worker count. workers <= 0
// means one worker per CPU core.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}
	if workers == 1 {
		fn(0, items)
		return
	}

	// ceiling division so the last range absorbs the remainder
	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially when items <= threshold and
// in parallel otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}
