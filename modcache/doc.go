// Package modcache shares compiled WebAssembly modules between callers.
//
// Compiling a module is expensive and its compiled form holds native code
// that must be closed explicitly. A Cache compiles each named module once and
// hands out shared.Ptr references to it. The compiled module is closed when
// the cache has evicted it and every caller has released its reference; the
// wazero runtime underneath is closed after the last module goes.
//
//	cache := modcache.New(ctx, nil)
//	defer cache.Close(ctx)
//
//	mod, err := cache.Load(ctx, "add", wasmBytes, "export add: func(a: s32, b: s32) -> s32;")
//	if err != nil {
//	    return err
//	}
//	defer mod.Release()
//
//	inst, err := mod.Get().Instantiate(ctx)
package modcache
