package honeycomb

// Handle bundles an atom with a container for repeated access without
// threading both through call sites.
type Handle[T any] struct {
	atom *Atom[T]
	c    *Container
}

// Bind creates a handle for the atom on the container.
func Bind[T any](c *Container, atom *Atom[T]) *Handle[T] {
	return &Handle[T]{atom: atom, c: c}
}

// Get retrieves the latest value, resolving if not materialized.
func (h *Handle[T]) Get() (T, error) {
	return Read(h.c, h.atom)
}

// Peek retrieves the cached value without resolving.
func (h *Handle[T]) Peek() (T, bool) {
	return Peek(h.c, h.atom)
}

// Set writes a new value. Fails with ErrNotWritable unless the handle
// is bound to a state cell.
func (h *Handle[T]) Set(v T) error {
	return Write(h.c, h.atom, v)
}

// Update applies fn to the current value and writes the result back.
func (h *Handle[T]) Update(fn func(T) T) error {
	return Update(h.c, h.atom, fn)
}

// Subscribe registers a change listener on the bound atom.
func (h *Handle[T]) Subscribe(fn func(T)) (func(), error) {
	return Subscribe(h.c, h.atom, fn)
}

// Invalidate force-marks the bound atom for recomputation.
func (h *Handle[T]) Invalidate() {
	h.c.Invalidate(h.atom)
}

// Reload invalidates and immediately re-reads.
func (h *Handle[T]) Reload() (T, error) {
	h.c.Invalidate(h.atom)
	return h.Get()
}

// IsMaterialized reports whether a live node currently backs the atom.
func (h *Handle[T]) IsMaterialized() bool {
	h.c.g.enter()
	defer h.c.g.leave()
	_, ok := h.c.findCached(h.atom)
	return ok
}
