package honeycomb

import (
	"sync"
	"testing"
)

func TestGoroutineIDStableWithinGoroutine(t *testing.T) {
	a := goroutineID()
	b := goroutineID()
	if a == 0 || a != b {
		t.Errorf("expected stable nonzero id, got %d and %d", a, b)
	}

	var other uint64
	done := make(chan struct{})
	go func() {
		other = goroutineID()
		close(done)
	}()
	<-done
	if other == a {
		t.Error("different goroutines produced the same id")
	}
}

func TestGateReentrant(t *testing.T) {
	g := &gate{}
	g.enter()
	g.enter() // must not deadlock
	g.leave()
	g.leave()

	// A second goroutine can take the gate after full release.
	done := make(chan struct{})
	go func() {
		g.enter()
		g.leave()
		close(done)
	}()
	<-done
}

func TestConcurrentContainerAccess(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	cell := State(0)
	derived := Computed(func(ctx *ResolveCtx) (int, error) {
		v, err := Watch(ctx, cell)
		return v + 1, err
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = Update(c, cell, func(v int) int { return v + 1 })
				if _, err := Read(c, derived); err != nil {
					t.Errorf("read failed: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	v, err := Read(c, cell)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if v != 8*50 {
		t.Errorf("expected %d after serialized updates, got %d", 8*50, v)
	}
}
