package honeycomb

// Result is the value produced by a safe derived atom: either a success
// carrying the computed value or a failure carrying the raised error and
// the stack trace captured at the failure site.
//
// Failures are values, not exceptions: reading a safe atom never
// returns a compute error, downstream atoms observe the Result itself.
type Result[T any] struct {
	value T
	err   error
	trace []byte
	ok    bool
}

// Success wraps a computed value.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Failure wraps a captured error and its stack trace.
func Failure[T any](err error, trace []byte) Result[T] {
	return Result[T]{err: err, trace: trace}
}

// IsSuccess reports whether the result carries a value.
func (r Result[T]) IsSuccess() bool {
	return r.ok
}

// Get returns the value and whether the result is a success.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.ok
}

// MustGet returns the value or panics on a failure.
func (r Result[T]) MustGet() T {
	if !r.ok {
		panic("honeycomb: MustGet on failure result: " + r.err.Error())
	}
	return r.value
}

// Err returns the captured error, nil for a success.
func (r Result[T]) Err() error {
	return r.err
}

// Trace returns the stack trace captured when the error was raised.
// Nil for a success.
func (r Result[T]) Trace() []byte {
	return r.trace
}

// Match deconstructs the result, invoking exactly one of the handlers.
// Nil handlers are skipped.
func (r Result[T]) Match(onSuccess func(T), onFailure func(error)) {
	if r.ok {
		if onSuccess != nil {
			onSuccess(r.value)
		}
		return
	}
	if onFailure != nil {
		onFailure(r.err)
	}
}

// MatchResult deconstructs a result into a value of another type.
func MatchResult[T, R any](r Result[T], onSuccess func(T) R, onFailure func(error) R) R {
	if v, ok := r.Get(); ok {
		return onSuccess(v)
	}
	return onFailure(r.Err())
}

// resultsEqual is the change gate for safe atoms. It compares the
// wrapped result: a failure-to-failure transition with a different
// error is still a change.
func resultsEqual[T any](equal func(T, T) bool) func(Result[T], Result[T]) bool {
	return func(a, b Result[T]) bool {
		if a.ok != b.ok {
			return false
		}
		if a.ok {
			return equal(a.value, b.value)
		}
		return errorsEqual(a.err, b.err)
	}
}
