package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// WorkerPool Creation Tests
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		expected := runtime.GOMAXPROCS(0)
		if pool.Workers() != expected {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d (GOMAXPROCS)", n, pool.Workers(), expected)
		}
		pool.Close()
	}
}

// =============================================================================
// ExecuteAll / Run Tests
// =============================================================================

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	numTasks := 100

	work := make([]func(), numTasks)
	for i := range work {
		work[i] = func() {
			counter.Add(1)
		}
	}

	pool.ExecuteAll(work)

	if counter.Load() != int64(numTasks) {
		t.Errorf("counter = %d, want %d", counter.Load(), numTasks)
	}
}

func TestWorkerPool_ExecuteAll_Empty(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	// Must return immediately.
	pool.ExecuteAll(nil)
	pool.ExecuteAll([]func(){})
}

func TestWorkerPool_Run_EachIndexOnce(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	const n = 257
	hits := make([]int32, n)
	pool.Run(n, func(i int) {
		atomic.AddInt32(&hits[i], 1)
	})

	for i, h := range hits {
		if h != 1 {
			t.Errorf("index %d ran %d times, want 1", i, h)
		}
	}
}

func TestWorkerPool_Run_SlotsWithoutLocking(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	// Each index owns its slot; no two workers write the same element.
	out := make([]int, 64)
	pool.Run(len(out), func(i int) {
		out[i] = i * i
	})

	for i, v := range out {
		if v != i*i {
			t.Errorf("out[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestWorkerPool_Run_NonPositive(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()

	called := false
	pool.Run(0, func(int) { called = true })
	pool.Run(-1, func(int) { called = true })
	if called {
		t.Error("Run with n <= 0 should not call fn")
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Error("Pool should not be running after Close")
	}
}

func TestWorkerPool_ExecuteAllAfterCloseRunsInline(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	var counter atomic.Int64
	pool.Run(10, func(int) { counter.Add(1) })

	if counter.Load() != 10 {
		t.Errorf("counter = %d, want 10", counter.Load())
	}
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestWorkerPool_ConcurrentBatches(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var wg sync.WaitGroup
	var total atomic.Int64

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Run(50, func(int) { total.Add(1) })
		}()
	}
	wg.Wait()

	if total.Load() != 400 {
		t.Errorf("total = %d, want 400", total.Load())
	}
}

func TestWorkerPool_WorkStealing(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	// Round-robin puts every slow item on worker 0; stealing lets the other
	// workers pick up the fast ones.
	work := make([]func(), 16)
	var done atomic.Int64
	for i := range work {
		if i%4 == 0 {
			work[i] = func() {
				time.Sleep(5 * time.Millisecond)
				done.Add(1)
			}
		} else {
			work[i] = func() { done.Add(1) }
		}
	}

	pool.ExecuteAll(work)

	if done.Load() != 16 {
		t.Errorf("done = %d, want 16", done.Load())
	}
}

func TestWorkerPool_NoGoroutineLeak(t *testing.T) {
	before := runtime.NumGoroutine()

	for range 10 {
		pool := NewWorkerPool(4)
		pool.Run(20, func(int) {})
		pool.Close()
	}

	// Give exiting goroutines time to unwind.
	time.Sleep(20 * time.Millisecond)
	after := runtime.NumGoroutine()
	if after > before+2 {
		t.Errorf("goroutines: before=%d after=%d, pool leaks workers", before, after)
	}
}
