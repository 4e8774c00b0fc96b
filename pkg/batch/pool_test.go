package batch

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dd0wney/cluso-graphpart/pkg/logging"
)

func newPool(t *testing.T, workers int) *WorkerPool {
	t.Helper()
	pool, err := NewWorkerPool(workers, 0, nil)
	if err != nil {
		t.Fatalf("NewWorkerPool: %v", err)
	}
	return pool
}

func TestWorkerPool_ExecutesAll(t *testing.T) {
	pool := newPool(t, 5)

	numTasks := 50
	executed := make([]bool, numTasks)
	var mu sync.Mutex
	for i := 0; i < numTasks; i++ {
		taskID := i
		pool.Submit(func() {
			mu.Lock()
			executed[taskID] = true
			mu.Unlock()
		})
	}
	pool.Close()

	for i, ok := range executed {
		if !ok {
			t.Errorf("task %d was not executed", i)
		}
	}
}

func TestWorkerPool_ConcurrentSubmissions(t *testing.T) {
	pool := newPool(t, 10)

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(func() { atomic.AddInt64(&counter, 1) })
		}()
	}
	wg.Wait()
	pool.Close()

	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
}

func TestWorkerPool_CloseRace(t *testing.T) {
	for iteration := 0; iteration < 50; iteration++ {
		pool := newPool(t, 4)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					pool.Submit(func() { time.Sleep(time.Millisecond) })
				}
			}()
		}
		time.Sleep(2 * time.Millisecond)
		pool.Close()
		wg.Wait()
	}
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	pool := newPool(t, 2)
	pool.Close()
	pool.Close()

	if pool.Submit(func() { t.Error("task ran after close") }) {
		t.Error("Submit after Close should return false")
	}
}

func TestWorkerPool_RecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	pool, err := NewWorkerPool(2, 0, logging.NewJSONLogger(&buf, logging.DebugLevel))
	if err != nil {
		t.Fatal(err)
	}

	var counter int64
	for i := 0; i < 3; i++ {
		pool.Submit(func() { panic("boom") })
	}
	for i := 0; i < 5; i++ {
		pool.Submit(func() { atomic.AddInt64(&counter, 1) })
	}
	pool.Close()

	if counter != 5 {
		t.Errorf("counter = %d, want 5 after panics", counter)
	}
	if !strings.Contains(buf.String(), "worker panic recovered") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestWorkerPool_Sizing(t *testing.T) {
	pool := newPool(t, 0)
	defer pool.Close()
	if pool.Workers() != 1 {
		t.Errorf("Workers() = %d, want 1 for a zero request", pool.Workers())
	}
	if cap(pool.taskQueue) != 2 {
		t.Errorf("queue capacity = %d, want 2", cap(pool.taskQueue))
	}

	if _, err := NewWorkerPool(MaxWorkers+1, 0, nil); !errors.Is(err, ErrTooManyWorkers) {
		t.Errorf("oversized pool error = %v", err)
	}
}
