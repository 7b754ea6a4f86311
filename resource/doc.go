// Package resource provides integer handle tables backed by shared ownership.
//
// A Table hands out small integer handles for values it adopts. Callers that
// need the value beyond a single lookup Acquire a shared.Ptr to its entry, so
// removing a handle never pulls a value out from under a goroutine still
// using it.
//
// # Resource Lifecycle
//
//	Insert   - adopt a value; the table holds one reference
//	Acquire  - clone a reference for the caller (caller must Release)
//	Remove   - free the handle and drop the table's reference
//
// The value is destroyed, and its Drop method called if it has one, when the
// table and every acquired reference have let go:
//
//	table := resource.NewTable[Conn]()
//	h := table.Insert(&Conn{})
//
//	p, ok := table.Acquire(h)
//	table.Remove(h)           // Conn still alive, p owns it
//	p.Get().Value().Ping()
//	p.Release()               // Conn.Drop runs here
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(resource.NewLogObserver(logger))
//
// Events are EventCreated, EventAcquired, EventRemoved and EventDestroyed.
// Observers run outside the backend lock but may run on whichever goroutine
// released the last reference.
//
// # Closing
//
// Close releases every reference the table holds and rejects further
// inserts. References acquired earlier remain valid until released.
package resource
