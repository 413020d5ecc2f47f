package honeycomb

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// gate serializes all graph mutation for one container tree. It is a
// reentrant mutex keyed by goroutine ID: public operations enter on the
// way in, and nested entries (batch bodies, compute functions calling
// back into the container, async commits re-entering from their own
// goroutine) stack instead of deadlocking. Everything between enter and
// leave runs to completion, which is what makes batches atomic with
// respect to observers.
type gate struct {
	mu    sync.Mutex
	owner atomic.Uint64
	depth int
}

func (g *gate) enter() {
	gid := goroutineID()
	if g.owner.Load() == gid {
		g.depth++
		return
	}
	g.mu.Lock()
	g.owner.Store(gid)
	g.depth = 1
}

func (g *gate) leave() {
	g.depth--
	if g.depth == 0 {
		g.owner.Store(0)
		g.mu.Unlock()
	}
}

// goroutineID extracts the current goroutine's ID from the runtime
// stack header ("goroutine <id> ..."). Implementation detail; never
// exposed.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
