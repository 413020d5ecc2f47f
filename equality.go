package honeycomb

import "reflect"

// defaultEquals provides type-appropriate value equality for the
// equality gate on writes and recomputed values. It uses == for the
// builtin comparable types and falls back to reflect.DeepEqual for
// composite values.
//
// For composite values, in-place mutation of a shared reference is
// invisible to the gate. Writes must replace values, not mutate them.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int8:
		return av == any(b).(int8)
	case int16:
		return av == any(b).(int16)
	case int32:
		return av == any(b).(int32)
	case int64:
		return av == any(b).(int64)
	case uint:
		return av == any(b).(uint)
	case uint8:
		return av == any(b).(uint8)
	case uint16:
		return av == any(b).(uint16)
	case uint32:
		return av == any(b).(uint32)
	case uint64:
		return av == any(b).(uint64)
	case float32:
		return av == any(b).(float32)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		return reflect.DeepEqual(a, b)
	}
}

// errorsEqual compares captured errors by identity first, then by
// message. Two distinct errors with different messages are a change
// even when both are failures.
func errorsEqual(a, b error) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Error() == b.Error()
}
