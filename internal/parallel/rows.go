// Package parallel distributes per-row rendering work across worker
// goroutines. Ray marching is embarrassingly parallel: every pixel is
// independent, so rows are handed out by an atomic counter and workers
// pull until the image is exhausted.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Rows runs fn(y) for every y in [0, rows) across workers goroutines.
// If workers <= 0, GOMAXPROCS is used. Rows blocks until all rows are
// done. fn must be safe to call concurrently for distinct y.
func Rows(rows, workers int, fn func(y int)) {
	if rows <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > rows {
		workers = rows
	}
	if workers == 1 {
		for y := 0; y < rows; y++ {
			fn(y)
		}
		return
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				y := int(next.Add(1)) - 1
				if y >= rows {
					return
				}
				fn(y)
			}
		}()
	}
	wg.Wait()
}
