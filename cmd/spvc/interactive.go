package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gogpu/spvcross"
	"github.com/gogpu/spvcross/abi"
	"github.com/gogpu/spvcross/engine"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	varStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	decoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type varInfo struct {
	handle     spvcross.Handle[abi.VariableID]
	name       string
	decoration string
}

type modelState int

const (
	stateLoading modelState = iota
	stateBrowse
	stateRename
	stateShowSource
)

type browseModel struct {
	err      error
	eng      *engine.Engine
	cc       *spvcross.Context
	comp     *spvcross.Compiler
	spvFile  string
	wasmFile string
	backend  abi.Backend
	entries  []string
	vars     []varInfo
	source   string
	input    textinput.Model
	selected int
	state    modelState
}

type loadedMsg struct {
	err     error
	eng     *engine.Engine
	cc      *spvcross.Context
	comp    *spvcross.Compiler
	entries []string
	vars    []varInfo
}

type renamedMsg struct {
	err  error
	vars []varInfo
}

type compiledMsg struct {
	err    error
	source string
}

func newBrowseModel(wasmFile, spvFile string, backend abi.Backend) *browseModel {
	return &browseModel{
		wasmFile: wasmFile,
		spvFile:  spvFile,
		backend:  backend,
		state:    stateLoading,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return m.load
}

func (m *browseModel) load() tea.Msg {
	ctx := context.Background()

	wasmBytes, err := os.ReadFile(m.wasmFile)
	if err != nil {
		return loadedMsg{err: err}
	}
	spvBytes, err := os.ReadFile(m.spvFile)
	if err != nil {
		return loadedMsg{err: err}
	}
	mod, err := spvcross.ModuleFromBytes(spvBytes)
	if err != nil {
		return loadedMsg{err: err}
	}

	eng, err := engine.New(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	inst, err := eng.Load(ctx, wasmBytes)
	if err != nil {
		eng.Close(ctx)
		return loadedMsg{err: err}
	}
	cc, err := spvcross.NewContext(ctx, inst)
	if err != nil {
		eng.Close(ctx)
		return loadedMsg{err: err}
	}
	comp, err := cc.CreateCompiler(ctx, m.backend, mod)
	if err != nil {
		cc.Close(ctx)
		eng.Close(ctx)
		return loadedMsg{err: err}
	}

	entries, err := describeEntryPoints(ctx, comp)
	if err != nil {
		cc.Close(ctx)
		eng.Close(ctx)
		return loadedMsg{err: err}
	}
	vars, err := collectVars(ctx, comp)
	if err != nil {
		cc.Close(ctx)
		eng.Close(ctx)
		return loadedMsg{err: err}
	}

	return loadedMsg{eng: eng, cc: cc, comp: comp, entries: entries, vars: vars}
}

func describeEntryPoints(ctx context.Context, comp *spvcross.Compiler) ([]string, error) {
	eps, err := comp.EntryPoints(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(eps))
	for i, ep := range eps {
		out[i] = fmt.Sprintf("%s (%s)", ep.Name.String(), ep.ExecutionModel)
	}
	return out, nil
}

func collectVars(ctx context.Context, comp *spvcross.Compiler) ([]varInfo, error) {
	active, err := comp.ActiveInterfaceVariables(ctx)
	if err != nil {
		return nil, err
	}

	vars := make([]varInfo, 0, len(active.Handles()))
	for _, h := range active.Handles() {
		name, err := comp.Name(ctx, h)
		if err != nil {
			return nil, err
		}
		var deco []string
		if loc, ok, _ := comp.Decoration(ctx, h, abi.DecorationLocation); ok {
			deco = append(deco, fmt.Sprintf("location=%d", loc))
		}
		if set, ok, _ := comp.Decoration(ctx, h, abi.DecorationDescriptorSet); ok {
			deco = append(deco, fmt.Sprintf("set=%d", set))
		}
		if binding, ok, _ := comp.Decoration(ctx, h, abi.DecorationBinding); ok {
			deco = append(deco, fmt.Sprintf("binding=%d", binding))
		}
		vars = append(vars, varInfo{
			handle:     h,
			name:       name.String(),
			decoration: strings.Join(deco, " "),
		})
	}
	return vars, nil
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.teardown()
			return m, tea.Quit

		case "q":
			if m.state != stateRename {
				m.teardown()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateBrowse && m.selected < len(m.vars)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateBrowse:
				if len(m.vars) == 0 {
					break
				}
				ti := textinput.New()
				ti.Prompt = "new name: "
				ti.Placeholder = m.vars[m.selected].name
				ti.Width = 40
				ti.Focus()
				m.input = ti
				m.state = stateRename

			case stateRename:
				return m, m.rename

			case stateShowSource:
				m.state = stateBrowse
				m.source = ""
			}

		case "c":
			if m.state == stateBrowse {
				return m, m.compile
			}

		case "esc":
			if m.state == stateRename || m.state == stateShowSource {
				m.state = stateBrowse
				m.source = ""
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.eng = msg.eng
		m.cc = msg.cc
		m.comp = msg.comp
		m.entries = msg.entries
		m.vars = msg.vars
		m.state = stateBrowse

	case renamedMsg:
		m.err = msg.err
		if msg.vars != nil {
			m.vars = msg.vars
		}
		m.state = stateBrowse

	case compiledMsg:
		m.err = msg.err
		m.source = msg.source
		m.state = stateShowSource
	}

	if m.state == stateRename {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *browseModel) rename() tea.Msg {
	ctx := context.Background()

	name := m.input.Value()
	if name == "" {
		return renamedMsg{}
	}
	h := m.vars[m.selected].handle
	if err := m.comp.SetName(ctx, h, spvcross.NewString(name)); err != nil {
		return renamedMsg{err: err}
	}

	vars, err := collectVars(ctx, m.comp)
	if err != nil {
		return renamedMsg{err: err}
	}
	return renamedMsg{vars: vars}
}

func (m *browseModel) compile() tea.Msg {
	artifact, err := m.comp.Compile(context.Background(), nil)
	if err != nil {
		return compiledMsg{err: err}
	}
	return compiledMsg{source: artifact.Source().String()}
}

func (m *browseModel) teardown() {
	ctx := context.Background()
	if m.comp != nil {
		m.comp.Close(ctx)
	}
	if m.cc != nil {
		m.cc.Close(ctx)
	}
	if m.eng != nil {
		m.eng.Close(ctx)
	}
}

func (m *browseModel) View() string {
	if m.err != nil && m.state == stateLoading {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.state == stateLoading {
		return "Loading SPIR-V module..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("SPIRV-Cross"))
	b.WriteString(" ")
	b.WriteString(m.spvFile)
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse:
		for _, e := range m.entries {
			b.WriteString(decoStyle.Render(e))
			b.WriteString("\n")
		}
		b.WriteString("\nInterface variables:\n\n")
		for i, v := range m.vars {
			line := fmt.Sprintf("%%%d %s", v.handle.ID(), varStyle.Render(v.name))
			if v.decoration != "" {
				line += " " + decoStyle.Render(v.decoration)
			}
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> "))
				b.WriteString(line)
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter rename • c compile • q quit"))

	case stateRename:
		v := m.vars[m.selected]
		b.WriteString(fmt.Sprintf("Rename %s\n\n", varStyle.Render(v.name)))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter apply • esc back"))

	case stateShowSource:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(sourceStyle.Render(m.source))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}

	return b.String()
}

func runInteractive(wasmFile, spvFile string, backend abi.Backend) error {
	p := tea.NewProgram(newBrowseModel(wasmFile, spvFile, backend), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
