// Package refcount provides shared ownership of Go values with deterministic
// destruction.
//
// Go's garbage collector reclaims memory, but it does not tell you when the
// last user of a file, a compiled module or a pooled buffer is gone. This
// library fills that gap with an atomically reference-counted handle: the
// value is destroyed exactly once, when the last owner releases it.
//
// # Architecture Overview
//
//	refcount/          Root package with the Dropper interface and Destroy helper
//	├── shared/        Ptr[T], the reference-counted handle
//	├── resource/      Integer handle table built on shared ownership
//	├── modcache/      wazero compiled modules shared across callers
//	├── errors/        Structured error types
//	└── cmd/inspect/   CLI and TUI for experimenting with handles
//
// # Quick Start
//
//	p := shared.New(&Conn{addr: "db:5432"})
//	defer p.Release()
//
//	q := p.Clone()        // p.UseCount() == 2
//	go func() {
//	    defer q.Release() // last Release calls (*Conn).Drop
//	    q.Get().Ping()
//	}()
//
// A plain Go assignment copies the handle without registering a new owner.
// Use Clone to add an owner and Move to hand one over.
//
// # Thread Safety
//
// The reference count is updated atomically, so aliases of the same value
// may be cloned and released from different goroutines. A single Ptr value
// must not be mutated concurrently, and the pointed-to value is not
// protected: concurrent access to it needs its own synchronization.
package refcount
