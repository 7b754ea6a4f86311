package resource

import (
	"sync"

	"github.com/wippyai/refcount/errors"
	"github.com/wippyai/refcount/shared"
)

var (
	ErrClosed   = errors.Closed(errors.PhaseRegistry, "resource backend")
	ErrNilValue = errors.InvalidInput(errors.PhaseAcquire, "cannot adopt a nil value")
)

// LocalBackend is an in-memory slot store. Each valid slot holds one owning
// reference to its value.
type LocalBackend[V any] struct {
	entries  []entry[V]
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry[V any] struct {
	ptr   shared.Ptr[V]
	valid bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend[V any]() *LocalBackend[V] {
	return &LocalBackend[V]{
		entries:  make([]entry[V], 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create allocates a handle, builds the value for it and adopts the result.
// newValue runs under the backend lock and must not call back into it.
func (b *LocalBackend[V]) Create(newValue func(Handle) *V) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	handle := Handle(len(b.entries) + 1)
	reuse := len(b.freeList) > 0
	if reuse {
		handle = b.freeList[len(b.freeList)-1]
	}

	v := newValue(handle)
	if v == nil {
		return 0, ErrNilValue
	}
	e := entry[V]{ptr: shared.New(v), valid: true}

	if reuse {
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
		return handle, nil
	}

	b.entries = append(b.entries, e)
	return handle, nil
}

// Acquire returns a new owning reference to the value behind handle.
func (b *LocalBackend[V]) Acquire(handle Handle) (shared.Ptr[V], bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return shared.Ptr[V]{}, false
	}
	return e.ptr.Clone(), true
}

// Get returns the value behind handle without taking ownership.
func (b *LocalBackend[V]) Get(handle Handle) (*V, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, false
	}
	return e.ptr.Get(), true
}

// UseCount returns the owner count of the value behind handle, including
// the backend's own reference. Invalid handles report 0.
func (b *LocalBackend[V]) UseCount(handle Handle) uint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return 0
	}
	return e.ptr.UseCount()
}

// Drop frees the slot and hands the backend's reference to the caller, who
// must release it.
func (b *LocalBackend[V]) Drop(handle Handle) (shared.Ptr[V], bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return shared.Ptr[V]{}, false
	}

	ptr := e.ptr.Move()
	e.valid = false
	b.freeList = append(b.freeList, handle)
	return ptr, true
}

// Close stops accepting values and returns the references still held, in
// handle order. The caller must release them.
func (b *LocalBackend[V]) Close() []shared.Ptr[V] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var held []shared.Ptr[V]
	for i := range b.entries {
		if b.entries[i].valid {
			held = append(held, b.entries[i].ptr.Move())
			b.entries[i].valid = false
		}
	}

	b.entries = nil
	b.freeList = nil
	return held
}

// Len returns the number of occupied slots.
func (b *LocalBackend[V]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over occupied slots until fn returns false.
func (b *LocalBackend[V]) Each(fn func(Handle, *V) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i := range b.entries {
		if b.entries[i].valid {
			if !fn(Handle(i+1), b.entries[i].ptr.Get()) {
				break
			}
		}
	}
}

// lookup must be called with b.mu held.
func (b *LocalBackend[V]) lookup(handle Handle) *entry[V] {
	if handle == 0 {
		return nil
	}
	idx := int(handle) - 1
	if idx >= len(b.entries) {
		return nil
	}
	e := &b.entries[idx]
	if !e.valid {
		return nil
	}
	return e
}
