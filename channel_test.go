package honeycomb

import (
	"testing"
	"time"
)

func TestChannelDropLosesUnlistenedPayloads(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	ch := Channel[int](Drop())
	if err := Emit(c, ch, 1); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	var got []int
	sub, err := On(c, ch, func(v int) { got = append(got, v) })
	if err != nil {
		t.Fatalf("on failed: %v", err)
	}
	defer sub.Cancel()

	if len(got) != 0 {
		t.Errorf("drop strategy replayed %v", got)
	}
	if err := Emit(c, ch, 2); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("expected [2], got %v", got)
	}
}

func TestChannelBufferReplaysLastK(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	ch := Channel[int](BufferN(3))
	for _, v := range []int{1, 2, 3, 4, 5} {
		if err := Emit(c, ch, v); err != nil {
			t.Fatalf("emit failed: %v", err)
		}
	}

	var got []int
	sub, err := On(c, ch, func(v int) { got = append(got, v) })
	if err != nil {
		t.Fatalf("on failed: %v", err)
	}
	defer sub.Cancel()

	if len(got) != 3 || got[0] != 3 || got[1] != 4 || got[2] != 5 {
		t.Errorf("expected replay [3 4 5], got %v", got)
	}

	if err := Emit(c, ch, 6); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if got[len(got)-1] != 6 {
		t.Errorf("expected live delivery of 6, got %v", got)
	}
}

func TestChannelTTLExcludesExpired(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	now := time.Unix(1000, 0)
	restore := timeNow
	timeNow = func() time.Time { return now }
	defer func() { timeNow = restore }()

	ch := Channel[string](TTL(100 * time.Millisecond))
	if err := Emit(c, ch, "old"); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	now = now.Add(60 * time.Millisecond)
	if err := Emit(c, ch, "fresh"); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	// 110ms after "old", 50ms after "fresh".
	now = now.Add(50 * time.Millisecond)
	var got []string
	sub, err := On(c, ch, func(v string) { got = append(got, v) })
	if err != nil {
		t.Fatalf("on failed: %v", err)
	}
	defer sub.Cancel()

	if len(got) != 1 || got[0] != "fresh" {
		t.Errorf("expected replay [fresh], got %v", got)
	}
}

func TestChannelTTLKeepsEntryAgedExactlyWindow(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	now := time.Unix(2000, 0)
	restore := timeNow
	timeNow = func() time.Time { return now }
	defer func() { timeNow = restore }()

	ch := Channel[string](TTL(100 * time.Millisecond))
	if err := Emit(c, ch, "boundary"); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	// Only entries strictly older than the window expire; one aged
	// exactly the window is still replayed.
	now = now.Add(100 * time.Millisecond)
	var got []string
	sub, err := On(c, ch, func(v string) { got = append(got, v) })
	if err != nil {
		t.Fatalf("on failed: %v", err)
	}
	defer sub.Cancel()

	if len(got) != 1 || got[0] != "boundary" {
		t.Errorf("expected boundary entry replayed, got %v", got)
	}
}

func TestChannelBroadcastsToAllListeners(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	ch := Channel[int](Drop())
	var first, second []int
	sub1, err := On(c, ch, func(v int) { first = append(first, v) })
	if err != nil {
		t.Fatalf("on failed: %v", err)
	}
	defer sub1.Cancel()
	sub2, err := On(c, ch, func(v int) { second = append(second, v) })
	if err != nil {
		t.Fatalf("on failed: %v", err)
	}
	defer sub2.Cancel()

	if err := Emit(c, ch, 9); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("expected both listeners notified, got %v and %v", first, second)
	}
}

func TestSubscriptionCancelIdempotent(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	ch := Channel[int](Drop())
	got := 0
	sub, err := On(c, ch, func(int) { got++ })
	if err != nil {
		t.Fatalf("on failed: %v", err)
	}

	sub.Cancel()
	sub.Cancel()
	if err := Emit(c, ch, 1); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if got != 0 {
		t.Errorf("cancelled listener still notified %d times", got)
	}
}

func TestChannelResolvesThroughScopes(t *testing.T) {
	root := NewContainer()
	defer root.Dispose()
	scope := NewScope(root)
	defer scope.Dispose()

	ch := Channel[int](BufferN(2))
	if err := Emit(scope, ch, 7); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	// The channel node lives at the root: a listener through the root
	// gets the payload replayed.
	var got []int
	sub, err := On(root, ch, func(v int) { got = append(got, v) })
	if err != nil {
		t.Fatalf("on failed: %v", err)
	}
	defer sub.Cancel()
	if len(got) != 1 || got[0] != 7 {
		t.Errorf("expected [7], got %v", got)
	}
}
