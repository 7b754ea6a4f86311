package resource

import (
	"sync"

	"github.com/wippyai/refcount"
	"github.com/wippyai/refcount/shared"
)

// Entry is what a Table shares with its callers. The value is destroyed when
// the table and every acquired reference have let go of the entry.
type Entry[T any] struct {
	value  *T
	table  *Table[T]
	handle Handle
}

// Value returns the stored value.
func (e *Entry[T]) Value() *T {
	return e.value
}

// Handle returns the handle the entry was inserted under. The handle may
// already be reused if the entry was removed from the table.
func (e *Entry[T]) Handle() Handle {
	return e.handle
}

// Drop destroys the stored value and reports EventDestroyed.
func (e *Entry[T]) Drop() {
	refcount.Destroy(e.value)
	e.table.notify(Event{
		Type:   EventDestroyed,
		Handle: e.handle,
		Value:  e.value,
	})
}

// Table maps integer handles to shared values and notifies observers about
// their lifecycle.
type Table[T any] struct {
	backend   *LocalBackend[Entry[T]]
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		backend: NewLocalBackend[Entry[T]](),
	}
}

// Insert adopts value and returns its handle. The table keeps one reference
// until Remove, Clear or Close. Returns 0 if value is nil or the table is
// closed.
func (t *Table[T]) Insert(value *T) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	if value == nil {
		return 0
	}

	handle, err := t.backend.Create(func(h Handle) *Entry[T] {
		return &Entry[T]{value: value, table: t, handle: h}
	})
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		Refs:   1,
		Value:  value,
	})

	return handle
}

// Acquire returns a new owning reference to the entry behind handle.
// The caller must release it.
func (t *Table[T]) Acquire(handle Handle) (shared.Ptr[Entry[T]], bool) {
	ptr, ok := t.backend.Acquire(handle)
	if !ok {
		return ptr, false
	}

	t.notify(Event{
		Type:   EventAcquired,
		Handle: handle,
		Refs:   ptr.UseCount(),
		Value:  ptr.Get().value,
	})

	return ptr, true
}

// Get returns the value behind handle without taking a reference.
func (t *Table[T]) Get(handle Handle) (*T, bool) {
	e, ok := t.backend.Get(handle)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// UseCount returns the owner count for handle, including the table's own
// reference, or 0 for an invalid handle.
func (t *Table[T]) UseCount(handle Handle) uint {
	return t.backend.UseCount(handle)
}

// Remove frees handle and releases the table's reference. The value is
// destroyed now if nobody acquired it, otherwise when the last acquired
// reference is released.
func (t *Table[T]) Remove(handle Handle) bool {
	ptr, ok := t.backend.Drop(handle)
	if !ok {
		return false
	}
	t.release(handle, &ptr)
	return true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table[T]) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of handles in the table.
func (t *Table[T]) Len() int {
	return t.backend.Len()
}

// Each iterates over all values in the table until fn returns false.
func (t *Table[T]) Each(fn func(Handle, *T) bool) {
	t.backend.Each(func(h Handle, e *Entry[T]) bool {
		return fn(h, e.value)
	})
}

// Clear removes every handle.
func (t *Table[T]) Clear() {
	// Collect handles first to avoid holding the backend lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, _ *Entry[T]) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close releases every reference the table holds and stops accepting
// values. Acquired references stay valid until released.
func (t *Table[T]) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	held := t.backend.Close()
	for i := range held {
		t.release(held[i].Get().handle, &held[i])
	}
	return nil
}

func (t *Table[T]) release(handle Handle, ptr *shared.Ptr[Entry[T]]) {
	value := ptr.Get().value
	refs := ptr.UseCount() - 1
	t.notify(Event{
		Type:   EventRemoved,
		Handle: handle,
		Refs:   refs,
		Value:  value,
	})
	ptr.Release()
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
