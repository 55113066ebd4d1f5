package parallel

import (
	"sync/atomic"
	"testing"
)

func TestRowsCoversAllRows(t *testing.T) {
	tests := []struct {
		name    string
		rows    int
		workers int
	}{
		{"single row", 1, 4},
		{"fewer rows than workers", 3, 8},
		{"serial", 64, 1},
		{"default workers", 128, 0},
		{"many rows", 1080, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]atomic.Int32, tt.rows)
			Rows(tt.rows, tt.workers, func(y int) {
				seen[y].Add(1)
			})
			for y := range seen {
				if got := seen[y].Load(); got != 1 {
					t.Errorf("row %d visited %d times, want 1", y, got)
				}
			}
		})
	}
}

func TestRowsZero(t *testing.T) {
	called := false
	Rows(0, 4, func(int) { called = true })
	if called {
		t.Error("fn called for zero rows")
	}
}
