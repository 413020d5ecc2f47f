package honeycomb

// TagCarrier is anything that holds tag metadata. Atoms and containers
// both qualify, so one Tag key works across either.
type TagCarrier interface {
	GetTag(key any) (any, bool)
	SetTag(key any, val any)
}

// Tag is a type-safe metadata key.
type Tag[T any] struct {
	key string
}

// NewTag creates a new tag with the given key.
func NewTag[T any](key string) Tag[T] {
	return Tag[T]{key: key}
}

// Key returns the tag's key (for debugging).
func (t Tag[T]) Key() string {
	return t.key
}

// Get retrieves the tag value from an atom or container.
func (t Tag[T]) Get(from TagCarrier) (T, bool) {
	val, ok := from.GetTag(t)
	if !ok {
		var zero T
		return zero, false
	}
	return val.(T), true
}

// MustGet retrieves the tag value or panics if not found.
func (t Tag[T]) MustGet(from TagCarrier) T {
	val, ok := t.Get(from)
	if !ok {
		panic("tag " + t.key + " not found")
	}
	return val
}

// GetOrDefault retrieves the tag value or returns a default.
func (t Tag[T]) GetOrDefault(from TagCarrier, defaultVal T) T {
	if val, ok := t.Get(from); ok {
		return val
	}
	return defaultVal
}

// Set stores the tag value on an atom or container.
func (t Tag[T]) Set(on TagCarrier, val T) {
	on.SetTag(t, val)
}

// AtomName tags an atom with a human-readable name, surfaced in cycle
// errors, logs and debug output.
var AtomName = NewTag[string]("atom.name")

// AtomLabel returns the atom's AtomName tag, or a kind-based
// placeholder for unnamed atoms.
func AtomLabel(a AnyAtom) string {
	if name, ok := AtomName.Get(a); ok {
		return name
	}
	return "<anonymous " + a.Kind().String() + ">"
}
