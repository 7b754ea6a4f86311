package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/refcount/shared"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxLogLines = 8

// label is the value the TUI shares between slots. Its Drop reports back to
// the model so destructions show up in the log.
type label struct {
	onDrop func(string)
	text   string
}

func (l *label) Drop() {
	l.onDrop(l.text)
}

type slot struct {
	ptr  shared.Ptr[label]
	name int
}

type modelState int

const (
	stateBrowse modelState = iota
	stateNewValue
)

type interactiveModel struct {
	input    textinput.Model
	slots    []*slot
	log      []string
	nextName int
	selected int
	state    modelState
}

func newInteractiveModel() *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "value"
	ti.Prompt = "new value: "
	ti.Width = 40
	return &interactiveModel{input: ti, state: stateBrowse}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.state == stateNewValue {
		switch key.String() {
		case "enter":
			m.addSlot(shared.New(&label{text: m.input.Value(), onDrop: m.recordDrop}))
			m.logf("new slot #%d", m.slots[len(m.slots)-1].name)
			m.input.Reset()
			m.input.Blur()
			m.state = stateBrowse
			return m, nil
		case "esc":
			m.input.Reset()
			m.input.Blur()
			m.state = stateBrowse
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "q":
		for _, s := range m.slots {
			s.ptr.Release()
		}
		m.slots = nil
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.slots)-1 {
			m.selected++
		}

	case "n":
		m.state = stateNewValue
		return m, m.input.Focus()

	case "c":
		if cur := m.current(); cur != nil {
			m.addSlot(cur.ptr.Clone())
			m.logf("clone #%d -> #%d", cur.name, m.slots[len(m.slots)-1].name)
		}

	case "m":
		if cur := m.current(); cur != nil {
			m.addSlot(cur.ptr.Move())
			m.logf("move #%d -> #%d", cur.name, m.slots[len(m.slots)-1].name)
		}

	case "a":
		if cur, next := m.current(), m.next(); cur != nil && next != nil {
			next.ptr.Assign(&cur.ptr)
			m.logf("assign #%d = #%d", next.name, cur.name)
		}

	case "s":
		if cur, next := m.current(), m.next(); cur != nil && next != nil {
			cur.ptr.Swap(&next.ptr)
			m.logf("swap #%d <-> #%d", cur.name, next.name)
		}

	case "r":
		if cur := m.current(); cur != nil {
			cur.ptr.Reset()
			m.logf("reset #%d", cur.name)
		}

	case "d":
		if cur := m.current(); cur != nil {
			m.logf("drop slot #%d", cur.name)
			m.slots = append(m.slots[:m.selected], m.slots[m.selected+1:]...)
			if m.selected >= len(m.slots) && m.selected > 0 {
				m.selected--
			}
			cur.ptr.Release()
		}
	}

	return m, nil
}

func (m *interactiveModel) addSlot(p shared.Ptr[label]) {
	m.nextName++
	m.slots = append(m.slots, &slot{name: m.nextName, ptr: p})
}

func (m *interactiveModel) current() *slot {
	if m.selected < len(m.slots) {
		return m.slots[m.selected]
	}
	return nil
}

func (m *interactiveModel) next() *slot {
	if m.selected+1 < len(m.slots) {
		return m.slots[m.selected+1]
	}
	return nil
}

func (m *interactiveModel) recordDrop(text string) {
	m.logf("destroyed %q", text)
}

func (m *interactiveModel) logf(format string, args ...any) {
	m.log = append(m.log, fmt.Sprintf(format, args...))
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

// groups names alias groups by first appearance so aliases share a letter.
func (m *interactiveModel) groups() map[*label]string {
	out := make(map[*label]string)
	for _, s := range m.slots {
		v := s.ptr.Get()
		if v == nil {
			continue
		}
		if _, ok := out[v]; !ok {
			out[v] = string(rune('A' + len(out)%26))
		}
	}
	return out
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Shared handle inspector"))
	b.WriteString("\n\n")

	if len(m.slots) == 0 {
		b.WriteString(emptyStyle.Render("No handles yet. Press n to create one."))
		b.WriteString("\n")
	}

	groups := m.groups()
	for i, s := range m.slots {
		value := emptyStyle.Render("<empty>")
		group := " "
		if v := s.ptr.Get(); v != nil {
			value = valueStyle.Render(fmt.Sprintf("%q", v.text))
			group = groups[v]
		}
		row := fmt.Sprintf("#%-3d [%s] %-24s use_count=%s", s.name, group, value, countStyle.Render(fmt.Sprint(s.ptr.UseCount())))
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> ") + row)
		} else {
			b.WriteString("  " + row)
		}
		b.WriteString("\n")
	}

	if m.state == stateNewValue {
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	if len(m.log) > 0 {
		b.WriteString("\n")
		for _, line := range m.log {
			style := stepStyle
			if strings.HasPrefix(line, "destroyed") {
				style = errorStyle
			}
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.state == stateNewValue {
		b.WriteString(helpStyle.Render("enter create • esc cancel"))
	} else {
		b.WriteString(helpStyle.Render("n new • c clone • m move • a assign next • s swap next • r reset • d drop • q quit"))
	}

	return b.String()
}

func runInteractive() error {
	p := tea.NewProgram(newInteractiveModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
