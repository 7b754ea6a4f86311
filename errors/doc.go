// Package errors provides structured error types for the refcount library.
//
// Errors are categorized by Phase (which lifecycle step failed) and Kind
// (error category). The Error type carries the handle path, the Go type of
// the shared value, and a cause chain.
//
// Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseAcquire, errors.KindNotFound).
//		Path("modcache", "greeter").
//		GoType("modcache.Module").
//		Detail("module was evicted").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NilPointer(errors.PhaseAccess, path, "*Conn")
//	err := errors.Closed(errors.PhaseAcquire, "module cache")
//
// The core shared.Ptr never returns errors; only its checked accessor and the
// supporting packages do. All errors support errors.Is/As.
package errors
