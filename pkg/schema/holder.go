package schema

import "sync/atomic"

// Holder publishes the current Schema to concurrent readers.
// A reload replaces the whole instance; readers see either the old or the new
// schema, never a mix.
type Holder struct {
	current atomic.Pointer[Schema]
}

// NewHolder creates a Holder serving s.
func NewHolder(s *Schema) *Holder {
	h := &Holder{}
	h.current.Store(s)
	return h
}

// Load returns the current schema. Callers should load once per operation.
func (h *Holder) Load() *Schema {
	return h.current.Load()
}

// Store swaps in a new schema and returns the previous one. Nil is ignored.
func (h *Holder) Store(s *Schema) *Schema {
	if s == nil {
		return h.current.Load()
	}
	return h.current.Swap(s)
}
