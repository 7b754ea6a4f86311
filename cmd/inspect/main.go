package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/refcount/modcache"
	"github.com/wippyai/refcount/shared"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to a core wasm module to share through the module cache")
		witText     = flag.String("wit", "", "WIT signatures for the module's exports")
		clones      = flag.Int("clones", 3, "Extra references to take on the loaded module")
		verbose     = flag.Bool("v", false, "Log lifecycle events to stderr")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *clones < 0 {
		fmt.Fprintf(os.Stderr, "Error: -clones must not be negative, got %d\n", *clones)
		flag.Usage()
		os.Exit(2)
	}

	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer l.Sync()
		shared.SetLogger(l)
		modcache.SetLogger(l)
	}

	if *interactive {
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	out := newPrinter(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))

	if *wasmFile == "" {
		runScenario(out)
		return
	}

	if err := runModule(out, *wasmFile, *witText, *clones); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runScenario walks the basic ownership operations on a shared int.
func runScenario(out *printer) {
	out.title("Shared handle walkthrough")

	h1 := shared.Make(5)
	out.step("h1 := shared.Make(5)")
	out.handle("h1", &h1)

	var h2 shared.Ptr[int]
	h2.Assign(&h1)
	out.step("h2.Assign(&h1)")
	out.handle("h1", &h1)
	out.handle("h2", &h2)
	out.equal("h1", "h2", h1.Equal(&h2))

	h3 := h2.Move()
	out.step("h3 := h2.Move()")
	out.handle("h2", &h2)
	out.handle("h3", &h3)
	out.equal("h1", "h3", h1.Equal(&h3))

	h3.Release()
	out.step("h3.Release()")
	out.handle("h1", &h1)

	h4 := shared.Make(7)
	h4.Swap(&h1)
	out.step("h4 := shared.Make(7); h4.Swap(&h1)")
	out.handle("h1", &h1)
	out.handle("h4", &h4)

	h1.Reset()
	h4.Reset()
	out.step("h1.Reset(); h4.Reset()")
	out.handle("h1", &h1)
	out.handle("h4", &h4)
}

func runModule(out *printer, wasmFile, witText string, clones int) error {
	if clones < 0 {
		return fmt.Errorf("clones must not be negative, got %d", clones)
	}

	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	cache := modcache.New(ctx, nil)
	defer cache.Close(ctx)

	mod, err := cache.Load(ctx, wasmFile, data, witText)
	if err != nil {
		return err
	}
	m := mod.Get()

	out.title("Module " + wasmFile)
	out.step("exports")
	for _, name := range m.Exports() {
		line := name
		if witText != "" {
			if params, results, err := m.Signature(name); err == nil {
				line = fmt.Sprintf("%s (%d params, %d results)", name, len(params), len(results))
			}
		}
		out.item(line)
	}

	refs := make([]shared.Ptr[modcache.Module], clones)
	for i := range refs {
		refs[i] = mod.Clone()
	}
	out.step(fmt.Sprintf("after %d clones", clones))
	out.count("use_count", mod.UseCount())

	for i := range refs {
		refs[i].Release()
	}
	cache.Evict(wasmFile)
	out.step("after releasing clones and evicting")
	out.count("use_count", mod.UseCount())
	out.flag("closed", m.Closed())

	mod.Release()
	out.step("after releasing the last reference")
	out.flag("closed", m.Closed())
	return nil
}

type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer, styled bool) *printer {
	return &printer{w: w, styled: styled}
}

func (p *printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

func (p *printer) title(s string) {
	fmt.Fprintln(p.w, p.render(titleStyle, s))
}

func (p *printer) step(s string) {
	fmt.Fprintf(p.w, "\n%s\n", p.render(stepStyle, "> "+s))
}

func (p *printer) item(s string) {
	fmt.Fprintf(p.w, "  - %s\n", p.render(valueStyle, s))
}

func (p *printer) count(label string, n uint) {
	fmt.Fprintf(p.w, "  %s = %s\n", label, p.render(countStyle, fmt.Sprint(n)))
}

func (p *printer) flag(label string, v bool) {
	fmt.Fprintf(p.w, "  %s = %s\n", label, p.render(countStyle, fmt.Sprint(v)))
}

func (p *printer) handle(name string, h *shared.Ptr[int]) {
	value := p.render(emptyStyle, "<empty>")
	if h.Valid() {
		value = p.render(valueStyle, fmt.Sprint(h.Load()))
	}
	fmt.Fprintf(p.w, "  %-3s value=%s use_count=%s\n", name, value, p.render(countStyle, fmt.Sprint(h.UseCount())))
}

func (p *printer) equal(a, b string, eq bool) {
	op := "!="
	if eq {
		op = "=="
	}
	fmt.Fprintf(p.w, "  %s %s %s\n", a, op, b)
}
