package modcache

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/refcount/errors"
	"github.com/wippyai/refcount/shared"
)

// Config holds configuration for cache creation
type Config struct {
	// Logger overrides the package logger for this cache.
	Logger *zap.Logger

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32
}

// engine owns the wazero runtime. It is shared by the cache and every module
// compiled in it.
type engine struct {
	runtime wazero.Runtime
	logger  *zap.Logger
}

// Drop closes the runtime once the last owner is gone.
func (e *engine) Drop() {
	if err := e.runtime.Close(context.Background()); err != nil {
		e.logger.Warn("close wazero runtime", zap.Error(err))
		return
	}
	e.logger.Debug("wazero runtime closed")
}

// Cache compiles modules once per name and shares them.
type Cache struct {
	engine  shared.Ptr[engine]
	entries map[string]shared.Ptr[Module]
	logger  *zap.Logger
	mu      sync.Mutex
	closed  bool
}

// New creates a cache with its own wazero runtime. cfg may be nil.
func New(ctx context.Context, cfg *Config) *Cache {
	runtimeCfg := wazero.NewRuntimeConfig()
	log := Logger()

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.Logger != nil {
			log = cfg.Logger
		}
	}

	return &Cache{
		engine: shared.New(&engine{
			runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
			logger:  log,
		}),
		entries: make(map[string]shared.Ptr[Module]),
		logger:  log,
	}
}

// Load returns a reference to the module cached under name, compiling wasm
// on first use. witText is optional and only consulted on first use.
// The caller must release the returned reference.
func (c *Cache) Load(ctx context.Context, name string, wasm []byte, witText string) (shared.Ptr[Module], error) {
	if name == "" {
		return shared.Ptr[Module]{}, errors.InvalidInput(errors.PhaseCompile, "empty module name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return shared.Ptr[Module]{}, errors.Closed(errors.PhaseCompile, "module cache")
	}

	if cached, ok := c.entries[name]; ok {
		c.logger.Debug("module cache hit", zap.String("module", name), zap.Uint("refs", cached.UseCount()+1))
		return cached.Clone(), nil
	}

	eng := c.engine.Get()
	compiled, err := eng.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return shared.Ptr[Module]{}, errors.CompileFailed(name, err)
	}

	mod := shared.New(&Module{
		name:     name,
		compiled: compiled,
		engine:   c.engine.Clone(),
		witText:  witText,
		logger:   c.logger,
	})
	c.entries[name] = mod
	c.logger.Debug("module compiled", zap.String("module", name), zap.Int("exports", len(compiled.ExportedFunctions())))

	return mod.Clone(), nil
}

// Acquire returns a reference to a cached module without compiling.
func (c *Cache) Acquire(name string) (shared.Ptr[Module], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.entries[name]
	if !ok {
		return shared.Ptr[Module]{}, false
	}
	return cached.Clone(), true
}

// Evict drops the cache's reference to name. Callers holding references keep
// the module usable; it is closed when they release.
func (c *Cache) Evict(name string) bool {
	c.mu.Lock()
	cached, ok := c.entries[name]
	if ok {
		delete(c.entries, name)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	c.logger.Debug("module evicted", zap.String("module", name), zap.Uint("refs", cached.UseCount()-1))
	cached.Release()
	return true
}

// Len returns the number of cached modules.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close evicts every module and drops the cache's reference to the runtime.
// Modules still referenced by callers stay usable until released.
func (c *Cache) Close(_ context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	entries := c.entries
	c.entries = nil
	eng := c.engine.Move()
	c.mu.Unlock()

	for name, mod := range entries {
		c.logger.Debug("module evicted", zap.String("module", name), zap.Uint("refs", mod.UseCount()-1))
		mod.Release()
	}
	eng.Release()
	return nil
}
