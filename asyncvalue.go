package honeycomb

// AsyncState is the phase of an async derived atom's value.
type AsyncState int

const (
	// AsyncLoading means a computation is in flight. The value may still
	// carry the data of the last completed computation.
	AsyncLoading AsyncState = iota
	// AsyncData means the latest computation committed successfully.
	AsyncData
	// AsyncError means the latest computation failed.
	AsyncError
)

func (s AsyncState) String() string {
	switch s {
	case AsyncLoading:
		return "loading"
	case AsyncData:
		return "data"
	case AsyncError:
		return "error"
	default:
		return "unknown"
	}
}

// AsyncValue is the tri-state value exposed by an async derived atom:
// loading (optionally carrying the previous data), data, or error with
// the stack trace captured at the failure site.
type AsyncValue[T any] struct {
	state   AsyncState
	data    T
	hasData bool
	err     error
	trace   []byte
}

func loadingValue[T any](prev T, hasPrev bool) AsyncValue[T] {
	return AsyncValue[T]{state: AsyncLoading, data: prev, hasData: hasPrev}
}

func dataValue[T any](v T) AsyncValue[T] {
	return AsyncValue[T]{state: AsyncData, data: v, hasData: true}
}

func asyncErrorValue[T any](err error, trace []byte) AsyncValue[T] {
	return AsyncValue[T]{state: AsyncError, err: err, trace: trace}
}

// State returns the current phase.
func (v AsyncValue[T]) State() AsyncState {
	return v.state
}

// IsLoading reports whether a computation is in flight.
func (v AsyncValue[T]) IsLoading() bool {
	return v.state == AsyncLoading
}

// Data returns the committed data and whether it is present. During
// loading it returns the previous data, if any.
func (v AsyncValue[T]) Data() (T, bool) {
	return v.data, v.hasData
}

// Err returns the captured error, nil unless the state is AsyncError.
func (v AsyncValue[T]) Err() error {
	return v.err
}

// Trace returns the stack trace captured with the error, if any.
func (v AsyncValue[T]) Trace() []byte {
	return v.trace
}

// Match deconstructs the value, invoking exactly one of the handlers.
// onLoading receives the previous data and whether it exists. Nil
// handlers are skipped.
func (v AsyncValue[T]) Match(onLoading func(prev T, ok bool), onData func(T), onError func(error)) {
	switch v.state {
	case AsyncLoading:
		if onLoading != nil {
			onLoading(v.data, v.hasData)
		}
	case AsyncData:
		if onData != nil {
			onData(v.data)
		}
	case AsyncError:
		if onError != nil {
			onError(v.err)
		}
	}
}

// MatchAsync deconstructs an async value into a value of another type.
func MatchAsync[T, R any](v AsyncValue[T], onLoading func(prev T, ok bool) R, onData func(T) R, onError func(error) R) R {
	switch v.State() {
	case AsyncData:
		d, _ := v.Data()
		return onData(d)
	case AsyncError:
		return onError(v.Err())
	default:
		d, ok := v.Data()
		return onLoading(d, ok)
	}
}

// asyncValuesEqual is the change gate for async atoms. State
// transitions always count as a change; within a state, data is
// compared with the atom's equality and errors by identity or message.
func asyncValuesEqual[T any](equal func(T, T) bool) func(AsyncValue[T], AsyncValue[T]) bool {
	return func(a, b AsyncValue[T]) bool {
		if a.state != b.state || a.hasData != b.hasData {
			return false
		}
		switch a.state {
		case AsyncError:
			return errorsEqual(a.err, b.err)
		default:
			if !a.hasData {
				return true
			}
			return equal(a.data, b.data)
		}
	}
}
