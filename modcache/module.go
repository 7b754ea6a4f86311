package modcache

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/refcount/errors"
	"github.com/wippyai/refcount/shared"
)

// Module is a compiled module shared through the cache.
type Module struct {
	funcTypesErr  error
	compiled      wazero.CompiledModule
	engine        shared.Ptr[engine]
	logger        *zap.Logger
	funcTypes     map[string]*funcSignature
	name          string
	witText       string
	funcTypesOnce sync.Once
	closed        atomic.Bool
}

type funcSignature struct {
	params  []wit.Type
	results []wit.Type
}

// Name returns the cache key the module was loaded under.
func (m *Module) Name() string {
	return m.name
}

// Closed reports whether the compiled module has been closed.
func (m *Module) Closed() bool {
	return m.closed.Load()
}

// Exports returns the names of exported functions, sorted.
func (m *Module) Exports() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instantiate creates an anonymous instance of the module. The caller must
// close it, and must do so before releasing its reference to the module.
func (m *Module) Instantiate(ctx context.Context) (api.Module, error) {
	if m.closed.Load() {
		return nil, errors.Closed(errors.PhaseInstantiate, "module "+m.name)
	}
	inst, err := m.engine.Get().runtime.InstantiateModule(ctx, m.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Instantiation(m.name, err)
	}
	return inst, nil
}

// Signature returns WIT param and result types for a function.
// Parses the module's WIT text lazily on first call.
func (m *Module) Signature(name string) ([]wit.Type, []wit.Type, error) {
	m.funcTypesOnce.Do(func() {
		m.funcTypes, m.funcTypesErr = parseWitFunctions(m.witText)
	})

	if m.funcTypesErr != nil {
		return nil, nil, m.funcTypesErr
	}

	sig, ok := m.funcTypes[name]
	if !ok {
		return nil, nil, errors.NotFound(errors.PhaseParse, "function", name)
	}

	return sig.params, sig.results, nil
}

// Drop closes the compiled module and gives up the module's reference to
// the runtime. It runs when the last reference to the module is released.
func (m *Module) Drop() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	if err := m.compiled.Close(context.Background()); err != nil {
		m.logger.Warn("close compiled module", zap.String("module", m.name), zap.Error(err))
	}
	m.logger.Debug("module closed", zap.String("module", m.name))
	m.engine.Release()
}

var funcPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// parseWitFunctions extracts function signatures from WIT text.
// Pattern: [export] name: func(params) -> result;
func parseWitFunctions(witText string) (map[string]*funcSignature, error) {
	if strings.TrimSpace(witText) == "" {
		return nil, errors.InvalidInput(errors.PhaseParse, "module has no WIT text")
	}

	funcs := make(map[string]*funcSignature)

	for _, match := range funcPattern.FindAllStringSubmatch(witText, -1) {
		name := match[1]
		paramsStr := strings.TrimSpace(match[2])
		resultStr := strings.TrimSpace(match[3])

		sig := &funcSignature{}

		for _, p := range splitParams(paramsStr) {
			typStr := p
			if idx := strings.LastIndex(p, ":"); idx != -1 {
				typStr = p[idx+1:]
			}
			t, err := parseWitType(typStr)
			if err != nil {
				return nil, errors.ParseFailed("param type "+typStr, err)
			}
			sig.params = append(sig.params, t)
		}

		if resultStr != "" && resultStr != "()" {
			parts := []string{resultStr}
			if strings.HasPrefix(resultStr, "(") && strings.HasSuffix(resultStr, ")") {
				parts = splitParams(resultStr[1 : len(resultStr)-1])
			}
			for _, part := range parts {
				t, err := parseWitType(part)
				if err != nil {
					return nil, errors.ParseFailed("result type "+part, err)
				}
				sig.results = append(sig.results, t)
			}
		}

		funcs[name] = sig
	}

	if len(funcs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no functions found in WIT text")
	}

	return funcs, nil
}

// splitParams splits a parameter list on top-level commas.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	flush := func() {
		if str := strings.TrimSpace(current.String()); str != "" {
			result = append(result, str)
		}
		current.Reset()
	}

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				flush()
				continue
			}
		}
		current.WriteRune(ch)
	}
	flush()

	return result
}

func parseWitType(s string) (wit.Type, error) {
	return wit.ParseType(strings.TrimSpace(s))
}
