package shared

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/refcount/errors"
)

type tracked struct {
	drops *atomic.Int32
	n     int
}

func (t *tracked) Drop() {
	t.drops.Add(1)
}

func newTracked(n int) (*tracked, *atomic.Int32) {
	drops := new(atomic.Int32)
	return &tracked{n: n, drops: drops}, drops
}

func TestPtr_Init(t *testing.T) {
	a := 5

	var ptr1 Ptr[int]
	ptr2 := New[int](nil)
	ptr3 := Make(1)
	ptr4 := New(&a)

	copied := ptr3.Clone()

	if !ptr1.IsNil() {
		t.Fatal("default Ptr should be nil")
	}
	if !ptr2.IsNil() {
		t.Fatal("Ptr from nil should be nil")
	}
	if !copied.Equal(&ptr3) {
		t.Fatal("clone should equal its source")
	}

	moved := copied.Move()
	ptr1.Assign(&ptr4)

	if !moved.Equal(&ptr3) {
		t.Fatal("moved Ptr should equal the original")
	}
	if !copied.IsNil() {
		t.Fatal("moved-from Ptr should be nil")
	}
	if !ptr1.Equal(&ptr4) {
		t.Fatal("assigned Ptr should equal its source")
	}

	ptr1.MoveFrom(&moved)
	if !ptr1.Equal(&ptr3) {
		t.Fatal("move-assigned Ptr should equal the original")
	}
	if !moved.IsNil() {
		t.Fatal("move-assign source should be nil")
	}
	if ptr4.UseCount() != 1 {
		t.Fatalf("expected ptr4 use count 1 after ptr1 moved away, got %d", ptr4.UseCount())
	}
}

func TestPtr_Valid(t *testing.T) {
	a := 5

	var ptr1 Ptr[int]
	ptr2 := New[int](nil)
	ptr3 := Make(1)
	ptr4 := New(&a)

	if ptr1.Valid() || ptr2.Valid() {
		t.Fatal("empty Ptrs should not be valid")
	}
	if !ptr3.Valid() || !ptr4.Valid() {
		t.Fatal("owning Ptrs should be valid")
	}
}

func TestPtr_Dereference(t *testing.T) {
	a := 5
	ptr := New(&a)
	ptr2 := ptr.Clone()

	if ptr.Load() != 5 || ptr2.Load() != 5 {
		t.Fatalf("Load = %d, %d, want 5", ptr.Load(), ptr2.Load())
	}
	if ptr.Get() != &a {
		t.Fatal("Get should return the adopted pointer")
	}
	if ptr.Get() != ptr2.Get() {
		t.Fatal("aliases should return the same address")
	}

	*ptr2.Get() = 7
	if ptr.Load() != 7 {
		t.Fatal("aliases should see writes through Get")
	}
}

func TestPtr_LoadEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Load on an empty Ptr should panic")
		}
	}()
	var p Ptr[int]
	_ = p.Load()
}

func TestPtr_Checked(t *testing.T) {
	var empty Ptr[string]
	v, err := empty.Checked()
	if v != nil {
		t.Fatal("Checked on empty Ptr should return nil")
	}
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseAccess, Kind: errors.KindNilPointer}) {
		t.Fatalf("expected nil_pointer access error, got %v", err)
	}
	if !strings.Contains(err.Error(), "string") {
		t.Errorf("error should name the value type: %v", err)
	}

	p := Make("hello")
	v, err = p.Checked()
	if err != nil {
		t.Fatalf("Checked failed: %v", err)
	}
	if *v != "hello" {
		t.Fatalf("Checked = %q, want hello", *v)
	}
}

func TestPtr_UseCount(t *testing.T) {
	a := 5

	var ptr1 Ptr[int]
	ptr2 := New[int](nil)
	ptr3 := New(&a)
	ptr4 := ptr3.Clone()

	if ptr1.UseCount() != 0 || ptr2.UseCount() != 0 {
		t.Fatal("empty Ptrs should report 0")
	}
	if ptr3.UseCount() != 2 || ptr4.UseCount() != 2 {
		t.Fatalf("expected 2, got %d and %d", ptr3.UseCount(), ptr4.UseCount())
	}

	ptr1.Assign(&ptr3)
	for i, p := range []*Ptr[int]{&ptr1, &ptr3, &ptr4} {
		if p.UseCount() != 3 {
			t.Fatalf("ptr %d: expected 3, got %d", i, p.UseCount())
		}
	}

	ptr2.MoveFrom(&ptr4)
	for i, p := range []*Ptr[int]{&ptr1, &ptr2, &ptr3} {
		if p.UseCount() != 3 {
			t.Fatalf("ptr %d after move: expected 3, got %d", i, p.UseCount())
		}
	}
	if ptr4.UseCount() != 0 {
		t.Fatalf("moved-from Ptr should report 0, got %d", ptr4.UseCount())
	}

	func() {
		ptr5 := ptr2.Clone()
		defer ptr5.Release()
		if ptr1.UseCount() != 4 || ptr5.UseCount() != 4 {
			t.Fatalf("expected 4, got %d and %d", ptr1.UseCount(), ptr5.UseCount())
		}
	}()
	if ptr1.UseCount() != 3 {
		t.Fatalf("expected 3 after scoped release, got %d", ptr1.UseCount())
	}
}

func TestPtr_Reset(t *testing.T) {
	a, b := 5, 5

	ptr1 := New(&a)
	var ptr2 Ptr[int]
	ptr1.Reset()
	ptr2.ResetTo(&b)

	if ptr1.Get() != nil || ptr1.UseCount() != 0 {
		t.Fatal("Reset should leave the Ptr empty")
	}
	if ptr2.Get() != &b || ptr2.UseCount() != 1 {
		t.Fatalf("ResetTo should adopt with count 1, got %d", ptr2.UseCount())
	}

	ptr1.Assign(&ptr2)
	if ptr1.Get() != &b || ptr1.UseCount() != 2 {
		t.Fatalf("expected alias of b with count 2, got %d", ptr1.UseCount())
	}

	ptr2.Reset()
	if ptr2.Get() != nil || ptr2.UseCount() != 0 {
		t.Fatal("Reset should leave the Ptr empty")
	}
	if ptr1.Get() != &b || ptr1.UseCount() != 1 {
		t.Fatalf("surviving alias should have count 1, got %d", ptr1.UseCount())
	}
}

func TestPtr_ResetToReplacesSharedPair(t *testing.T) {
	old, drops := newTracked(1)
	p := New(old)
	q := p.Clone()

	fresh, freshDrops := newTracked(2)
	p.ResetTo(fresh)

	if p.UseCount() != 1 || q.UseCount() != 1 {
		t.Fatalf("expected independent counts of 1, got %d and %d", p.UseCount(), q.UseCount())
	}
	if p.Equal(&q) {
		t.Fatal("ResetTo should install a new pair")
	}
	if drops.Load() != 0 {
		t.Fatal("old value still has an owner")
	}

	q.Release()
	p.Release()
	if drops.Load() != 1 || freshDrops.Load() != 1 {
		t.Fatalf("expected each value dropped once, got %d and %d", drops.Load(), freshDrops.Load())
	}
}

func TestPtr_ResetToNil(t *testing.T) {
	a := 1
	p := New(&a)
	p.ResetTo(nil)

	if p.Valid() || !p.IsNil() || p.UseCount() != 0 {
		t.Fatal("ResetTo(nil) should behave as empty")
	}

	q := p.Clone()
	if !q.IsNil() {
		t.Fatal("clone of ResetTo(nil) should be nil")
	}
	p.Release()
	q.Release()
}

func TestPtr_Swap(t *testing.T) {
	ptr1 := Make(10)
	ptr2 := Make(5)

	copy1 := ptr1.Clone()
	copy2 := ptr2.Clone()
	extra := ptr2.Clone()
	defer extra.Release()

	ptr1.Swap(&ptr2)
	if !ptr1.Equal(&copy2) || !ptr2.Equal(&copy1) {
		t.Fatal("Swap should exchange pairs")
	}
	if ptr1.UseCount() != 3 || ptr2.UseCount() != 2 {
		t.Fatalf("Swap should not change counts, got %d and %d", ptr1.UseCount(), ptr2.UseCount())
	}

	var empty Ptr[int]
	ptr1.Swap(&empty)
	if !ptr1.IsNil() || empty.Load() != 5 {
		t.Fatal("Swap with an empty Ptr should move the pair across")
	}
}

func TestPtr_SelfOperations(t *testing.T) {
	v, drops := newTracked(1)
	p := New(v)
	q := p.Clone()
	defer q.Release()

	p.Assign(&p)
	if p.Get() != v || p.UseCount() != 2 {
		t.Fatalf("self-assign changed state: %v", p.String())
	}

	p.MoveFrom(&p)
	if p.Get() != v || p.UseCount() != 2 {
		t.Fatalf("self-move changed state: %v", p.String())
	}

	p.Swap(&p)
	if p.Get() != v || p.UseCount() != 2 {
		t.Fatalf("self-swap changed state: %v", p.String())
	}

	p.Assign(&q)
	if p.UseCount() != 2 {
		t.Fatalf("assigning an alias should keep the count, got %d", p.UseCount())
	}
	if drops.Load() != 0 {
		t.Fatal("value dropped while owners remain")
	}
}

func TestPtr_CopyN(t *testing.T) {
	const n = 16
	orig := Make("value")

	aliases := make([]Ptr[string], n)
	for i := range aliases {
		aliases[i] = orig.Clone()
	}

	for i := range aliases {
		if aliases[i].UseCount() != n+1 {
			t.Fatalf("alias %d: expected %d, got %d", i, n+1, aliases[i].UseCount())
		}
		if !aliases[i].Equal(&orig) || aliases[i].Get() != orig.Get() {
			t.Fatalf("alias %d does not share the original pair", i)
		}
	}

	for i := range aliases {
		aliases[i].Release()
		if orig.UseCount() != uint(n-i) {
			t.Fatalf("after %d releases expected %d, got %d", i+1, n-i, orig.UseCount())
		}
	}
}

func TestPtr_DestroyedOnce(t *testing.T) {
	v, drops := newTracked(1)
	p := New(v)
	q := p.Clone()
	r := q.Clone()

	p.Release()
	q.Release()
	if drops.Load() != 0 {
		t.Fatal("value dropped before last owner released")
	}
	r.Release()
	if drops.Load() != 1 {
		t.Fatalf("expected 1 drop, got %d", drops.Load())
	}

	r.Release()
	p.Reset()
	if drops.Load() != 1 {
		t.Fatal("releasing empty Ptrs should not drop again")
	}
}

func TestPtr_AssignReleasesPrevious(t *testing.T) {
	v, drops := newTracked(1)
	p := New(v)

	other := Make(tracked{n: 2, drops: new(atomic.Int32)})
	p.Assign(&other)
	if drops.Load() != 1 {
		t.Fatal("Assign should release the previous sole owner")
	}
	if p.UseCount() != 2 {
		t.Fatalf("expected 2, got %d", p.UseCount())
	}

	w, wDrops := newTracked(3)
	q := New(w)
	p.MoveFrom(&q)
	if other.UseCount() != 1 {
		t.Fatalf("MoveFrom should release the previous pair, got count %d", other.UseCount())
	}
	if p.Get() != w || p.UseCount() != 1 || !q.IsNil() {
		t.Fatal("MoveFrom should take over the source pair")
	}
	p.Release()
	if wDrops.Load() != 1 {
		t.Fatal("expected moved value dropped on release")
	}
}

func TestPtr_Scenario(t *testing.T) {
	h1 := Make(5)

	var h2 Ptr[int]
	h2.Assign(&h1)
	if h1.UseCount() != 2 || h2.UseCount() != 2 || h2.Load() != 5 {
		t.Fatalf("after copy: %d, %d", h1.UseCount(), h2.UseCount())
	}

	h3 := h2.Move()
	if !h2.IsNil() || !h3.Equal(&h1) || h3.UseCount() != 2 {
		t.Fatal("after move: h2 should be nil and h3 alias h1")
	}

	h3.Release()
	if h1.UseCount() != 1 {
		t.Fatalf("after destroy: expected 1, got %d", h1.UseCount())
	}

	h1.Reset()
	if !h1.IsNil() {
		t.Fatal("after reset: h1 should be nil")
	}
}

func TestPtr_Concurrent(t *testing.T) {
	v, drops := newTracked(1)
	root := New(v)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		local := root.Clone()
		wg.Add(1)
		go func(p Ptr[tracked]) {
			defer wg.Done()
			defer p.Release()
			for j := 0; j < 100; j++ {
				c := p.Clone()
				_ = c.Get().n
				c.Release()
			}
		}(local)
	}

	root.Release()
	wg.Wait()

	if drops.Load() != 1 {
		t.Fatalf("expected exactly 1 drop, got %d", drops.Load())
	}
}

func TestPtr_String(t *testing.T) {
	var p Ptr[int]
	if p.String() != "Ptr[int](nil)" {
		t.Fatalf("String = %q", p.String())
	}
	p = Make(1)
	if !strings.Contains(p.String(), "refs=1") {
		t.Fatalf("String = %q, want refs=1", p.String())
	}
}

func TestPtr_DestroyLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	defer SetLogger(prev)

	v, _ := newTracked(1)
	p := New(v)
	p.Release()

	entries := logs.FilterMessage("shared value destroyed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["type"] != "shared.tracked" {
		t.Errorf("type field = %v, want shared.tracked", fields["type"])
	}
	if fields["dropper"] != true {
		t.Errorf("dropper field = %v, want true", fields["dropper"])
	}
}
