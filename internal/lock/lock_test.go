package lock

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSerializesWithinProject(t *testing.T) {
	pl := New()
	var running int32
	var maxConcurrent int32
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pl.WithProjectLock("proj-a", func() error {
				cur := atomic.AddInt32(&running, 1)
				for {
					max := atomic.LoadInt32(&maxConcurrent)
					if cur <= max || atomic.CompareAndSwapInt32(&maxConcurrent, max, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if maxConcurrent != 1 {
		t.Fatalf("max concurrent executions for one project = %d, want 1", maxConcurrent)
	}
}

func TestParallelAcrossProjects(t *testing.T) {
	pl := New()
	var wg sync.WaitGroup
	start := make(chan struct{})
	var concurrent int32
	var maxConcurrent int32

	for _, proj := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			<-start
			pl.WithProjectLock(p, func() error {
				cur := atomic.AddInt32(&concurrent, 1)
				for {
					max := atomic.LoadInt32(&maxConcurrent)
					if cur <= max || atomic.CompareAndSwapInt32(&maxConcurrent, max, cur) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&concurrent, -1)
				return nil
			})
		}(proj)
	}
	close(start)
	wg.Wait()

	if maxConcurrent < 2 {
		t.Fatalf("expected concurrent execution across distinct projects, max observed %d", maxConcurrent)
	}
}

func TestReleaseOnErrorAllowsQueuedWork(t *testing.T) {
	pl := New()
	errFirst := errors.New("boom")

	err := pl.WithProjectLock("proj", func() error { return errFirst })
	if !errors.Is(err, errFirst) {
		t.Fatalf("err = %v, want %v", err, errFirst)
	}

	ran := false
	if err := pl.WithProjectLock("proj", func() error { ran = true; return nil }); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !ran {
		t.Fatal("queued work after a failing call never ran")
	}
}

func TestEntriesAreCleanedUp(t *testing.T) {
	pl := New()
	pl.WithProjectLock("proj", func() error { return nil })

	pl.mu.Lock()
	n := len(pl.entries)
	pl.mu.Unlock()

	if n != 0 {
		t.Fatalf("entries map has %d entries after all work completed, want 0", n)
	}
}
