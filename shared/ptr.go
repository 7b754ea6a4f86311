package shared

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/refcount"
	"github.com/wippyai/refcount/errors"
)

// Ptr is a shared-ownership handle to a *T. The zero value is empty.
//
// value and refs form a pair: every Ptr aliasing the same value holds the
// same refs, and *refs is the number of such Ptrs.
type Ptr[T any] struct {
	value *T
	refs  *atomic.Uint32
}

// New adopts v. The caller must not keep any other ownership claim on v.
// A nil v gives an empty Ptr.
func New[T any](v *T) Ptr[T] {
	if v == nil {
		return Ptr[T]{}
	}
	return Ptr[T]{value: v, refs: newRefs()}
}

// Make allocates a copy of v and adopts it.
func Make[T any](v T) Ptr[T] {
	return New(&v)
}

func newRefs() *atomic.Uint32 {
	refs := new(atomic.Uint32)
	refs.Store(1)
	return refs
}

// Clone returns a new owner of p's value. Cloning an empty Ptr gives an
// empty Ptr.
func (p *Ptr[T]) Clone() Ptr[T] {
	if p.value != nil {
		p.refs.Add(1)
	}
	return Ptr[T]{value: p.value, refs: p.refs}
}

// Assign releases p's current value and makes p another owner of other's.
func (p *Ptr[T]) Assign(other *Ptr[T]) {
	if p == other {
		return
	}
	p.Release()
	*p = other.Clone()
}

// Move hands p's ownership to the returned Ptr and leaves p empty.
// The count is unchanged.
func (p *Ptr[T]) Move() Ptr[T] {
	moved := *p
	*p = Ptr[T]{}
	return moved
}

// MoveFrom releases p's current value and takes over other's ownership,
// leaving other empty.
func (p *Ptr[T]) MoveFrom(other *Ptr[T]) {
	if p == other {
		return
	}
	p.Release()
	*p = other.Move()
}

// Release gives up p's ownership and leaves p empty. If p was the last
// owner, the value is destroyed.
func (p *Ptr[T]) Release() {
	value, refs := p.value, p.refs
	*p = Ptr[T]{}
	if value == nil {
		return
	}
	if refs.Add(^uint32(0)) == 0 {
		destroy(value)
	}
}

// Reset is Release under its conventional name.
func (p *Ptr[T]) Reset() {
	p.Release()
}

// ResetTo releases p's current value and adopts v with a fresh count of 1.
// Unlike New, a nil v still gets a count, but the resulting Ptr reports
// itself empty.
func (p *Ptr[T]) ResetTo(v *T) {
	p.Release()
	p.value = v
	p.refs = newRefs()
}

// Swap exchanges the values owned by p and other. No count changes.
func (p *Ptr[T]) Swap(other *Ptr[T]) {
	*p, *other = *other, *p
}

// Valid reports whether p owns a value.
func (p *Ptr[T]) Valid() bool {
	return p.value != nil
}

// IsNil reports whether p owns nothing.
func (p *Ptr[T]) IsNil() bool {
	return p.value == nil
}

// Get returns the owned pointer without affecting the count, or nil.
func (p *Ptr[T]) Get() *T {
	return p.value
}

// Load returns the owned value. p must not be empty.
func (p *Ptr[T]) Load() T {
	return *p.value
}

// Checked returns the owned pointer, or a nil_pointer error if p is empty.
func (p *Ptr[T]) Checked() (*T, error) {
	if p.value == nil {
		return nil, errors.NilPointer(errors.PhaseAccess, nil, typeName[T]())
	}
	return p.value, nil
}

// UseCount returns the number of owners sharing p's value, or 0 if p is
// empty. Other goroutines may change it as soon as it is read.
func (p *Ptr[T]) UseCount() uint {
	if p.value == nil {
		return 0
	}
	return uint(p.refs.Load())
}

// Equal reports whether p and other own the same value.
func (p *Ptr[T]) Equal(other *Ptr[T]) bool {
	return p.value == other.value
}

func (p *Ptr[T]) String() string {
	if p.value == nil {
		return fmt.Sprintf("Ptr[%s](nil)", typeName[T]())
	}
	return fmt.Sprintf("Ptr[%s](%p, refs=%d)", typeName[T](), p.value, p.refs.Load())
}

var _ refcount.Counted = (*Ptr[int])(nil)

func destroy[T any](v *T) {
	dropped := refcount.Destroy(v)
	if ce := Logger().Check(zap.DebugLevel, "shared value destroyed"); ce != nil {
		ce.Write(
			zap.String("type", typeName[T]()),
			zap.Bool("dropper", dropped),
		)
	}
}

func typeName[T any]() string {
	return fmt.Sprintf("%T", (*T)(nil))[1:]
}
