// Package shared implements Ptr, an atomically reference-counted handle.
//
// A Ptr owns a heap value together with a count of the handles sharing it.
// The value is destroyed exactly once, when the count drops from 1 to 0.
// Destroying means calling Drop on the value if it implements
// refcount.Dropper; the memory itself is left to the garbage collector.
//
// # Ownership Operations
//
// Go assignment copies a Ptr without telling the count, so every ownership
// change is an explicit call:
//
//	p := shared.New(&Buffer{})  // adopt: count 1
//	q := p.Clone()              // copy: count 2
//	r := q.Move()               // move: q is empty, count still 2
//	r.Release()                 // destroy: count 1
//	p.Reset()                   // count 0, Buffer.Drop runs
//
// Assign and MoveFrom are the assignment forms of Clone and Move. Both
// release whatever the receiver held first and are no-ops when the receiver
// and the argument are the same Ptr.
//
// # Contract
//
// Load on an empty Ptr, and adopting the same *T with two calls to New, are
// programming errors and are not detected. Checked is available when a
// recoverable error is preferred.
//
// The count is the only state shared between aliases and it is updated
// atomically. Distinct Ptr values aliasing one pair may be cloned and released
// concurrently; a single Ptr value may not.
package shared
