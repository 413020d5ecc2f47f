package honeycomb

import (
	"errors"
	"testing"
)

func TestSafeCapturesComputeError(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	boom := errors.New("boom")
	safe := Safe(func(ctx *ResolveCtx) (int, error) {
		return 0, boom
	})

	res, err := Read(c, safe)
	if err != nil {
		t.Fatalf("safe read must not fail: %v", err)
	}
	if res.IsSuccess() {
		t.Fatal("expected failure result")
	}
	if !errors.Is(res.Err(), boom) {
		t.Errorf("expected boom, got %v", res.Err())
	}
	if len(res.Trace()) == 0 {
		t.Error("expected a captured stack trace")
	}
}

func TestSafeCapturesPanic(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	safe := Safe(func(ctx *ResolveCtx) (string, error) {
		panic("kaboom")
	})

	res, err := Read(c, safe)
	if err != nil {
		t.Fatalf("safe read must not fail: %v", err)
	}
	if res.IsSuccess() {
		t.Fatal("expected failure result")
	}
	if res.Err() == nil {
		t.Fatal("expected panic converted to error")
	}
}

func TestSafeSuccess(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	safe := Safe(func(ctx *ResolveCtx) (int, error) {
		return 21, nil
	})

	res, err := Read(c, safe)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	v, ok := res.Get()
	if !ok || v != 21 {
		t.Errorf("expected (21, true), got (%d, %v)", v, ok)
	}
}

func TestSafeCycleStillPropagates(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	var safe *Atom[Result[int]]
	safe = Safe(func(ctx *ResolveCtx) (int, error) {
		res, err := Watch(ctx, safe)
		if err != nil {
			return 0, err
		}
		v, _ := res.Get()
		return v, nil
	})

	_, err := Read(c, safe)
	if !errors.Is(err, ErrCircularDependency) {
		t.Errorf("expected cycle to escape the error boundary, got %v", err)
	}
}

func TestSafeRecoversThroughSubscription(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	broken := State(true)
	boom := errors.New("boom")
	safe := Safe(func(ctx *ResolveCtx) (int, error) {
		bad, err := Watch(ctx, broken)
		if err != nil {
			return 0, err
		}
		if bad {
			return 0, boom
		}
		return 5, nil
	})

	var results []Result[int]
	unsub, err := Subscribe(c, safe, func(r Result[int]) {
		results = append(results, r)
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer unsub()

	if err := Write(c, broken, false); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(results))
	}
	if v, ok := results[0].Get(); !ok || v != 5 {
		t.Errorf("expected success 5, got %+v", results[0])
	}
}

func TestSafeMatch(t *testing.T) {
	c := NewContainer()
	defer c.Dispose()

	safe := Safe(func(ctx *ResolveCtx) (int, error) {
		return 3, nil
	})
	res, err := Read(c, safe)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	out := MatchResult(res,
		func(v int) string { return "ok" },
		func(err error) string { return "fail" },
	)
	if out != "ok" {
		t.Errorf("expected ok, got %q", out)
	}
}
