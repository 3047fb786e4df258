package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ddcirq/circuit"
	"ddcirq/convert"
	"ddcirq/ddseq"
)

// focus represents which panel has keyboard input.
type focus int

const (
	focusCircuit focus = iota
	focusQASM
	focusMenu
)

const (
	maxViewQubits  = 8
	maxIdleMoments = 1000
)

// viewConfig is the starting point of the viewer.
type viewConfig struct {
	scheme    ddseq.Scheme
	numQubits int
	gateTime  float64
	savePath  string
}

// Model is the viewer state. The circuit is always derived from the scheme,
// its parameters and the converter options; it is never edited directly.
type Model struct {
	schemeIdx int
	params    ddseq.Params
	opts      convert.Options
	numQubits int

	seq     *ddseq.Sequence
	circuit *circuit.Circuit
	probs   []circuit.QubitProbability

	cursorQubit int
	cursorStep  int
	width       int
	height      int
	qasmView    textarea.Model
	focus       focus
	menuItem    int
	statusMsg   string // transient status message (e.g. save confirmation)
	errMsg      string // why the last rebuild was rejected
	savePath    string
}

func newModel(cfg viewConfig) Model {
	ta := textarea.New()
	ta.Placeholder = "No circuit"
	ta.SetWidth(40)
	ta.SetHeight(20)
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.MaxHeight = 0

	opts := convert.DefaultOptions()
	if cfg.gateTime > 0 {
		opts.GateTime = cfg.gateTime
	}

	m := Model{
		schemeIdx: max(slices.Index(ddseq.Schemes, cfg.scheme), 0),
		opts:      opts,
		numQubits: min(max(cfg.numQubits, 1), maxViewQubits),
		circuit:   circuit.New(),
		qasmView:  ta,
		focus:     focusCircuit,
		savePath:  cfg.savePath,
	}
	m.params = ddseq.DefaultParams(m.scheme())
	m.rebuild()
	return m
}

func (m Model) scheme() ddseq.Scheme {
	return ddseq.Schemes[m.schemeIdx]
}

// rebuild regenerates the sequence and circuit from the current settings.
// A rejected combination leaves the previous circuit on screen.
func (m *Model) rebuild() {
	seq, err := ddseq.NewFromScheme(m.scheme(), m.params)
	if err != nil {
		m.errMsg = err.Error()
		return
	}

	m.opts.TargetQubits = make([]circuit.Qubit, m.numQubits)
	for i := range m.numQubits {
		m.opts.TargetQubits[i] = circuit.Qubit(i)
	}
	c, err := convert.ToCircuit(seq, m.opts)
	if err != nil {
		m.errMsg = err.Error()
		return
	}

	m.seq = seq
	m.circuit = c
	m.errMsg = ""
	m.qasmView.SetValue(c.ToQASM())
	m.cursorQubit = min(m.cursorQubit, c.NumQubits-1)
	m.cursorStep = min(m.cursorStep, max(c.MaxSteps-1, 0))
	m.updateProbabilities()
}

// updateProbabilities simulates the circuit up to the cursor moment.
func (m *Model) updateProbabilities() {
	state, err := circuit.Simulate(m.circuit, m.cursorStep)
	if err != nil {
		zap.L().Warn("simulation failed", zap.Error(err))
		m.probs = nil
		return
	}
	m.probs = state.GetQubitProbabilities()
}

func (m *Model) moveStep(step int) {
	m.cursorStep = min(max(step, 0), max(m.circuit.MaxSteps-1, 0))
	m.updateProbabilities()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.qasmView.SetWidth(max(msg.Width/3-6, 20))
		ctrlH := 6
		circH := msg.Height - ctrlH - 4
		m.qasmView.SetHeight(max(circH-4, 4))

	case tea.KeyMsg:
		key := msg.String()
		m.statusMsg = ""

		if key == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.focus {
		case focusCircuit:
			return m.updateCircuit(key)

		case focusQASM:
			switch key {
			case "esc", "tab":
				m.focus = focusCircuit
				m.qasmView.Blur()
			case "up", "down", "pgup", "pgdown", "home", "end":
				// Navigation only; the QASM is derived and not editable.
				var cmd tea.Cmd
				m.qasmView, cmd = m.qasmView.Update(msg)
				return m, cmd
			}

		case focusMenu:
			switch key {
			case "esc":
				m.focus = focusCircuit
			case "up", "k":
				if m.menuItem > 0 {
					m.menuItem--
				}
			case "down", "j":
				if m.menuItem < len(ddseq.Schemes)-1 {
					m.menuItem++
				}
			case "enter":
				prePost := m.params.PrePostRotation
				m.schemeIdx = m.menuItem
				m.params = ddseq.DefaultParams(m.scheme())
				m.params.PrePostRotation = prePost
				m.cursorStep = 0
				m.rebuild()
				m.focus = focusCircuit
			}
		}
	}

	return m, nil
}

func (m Model) updateCircuit(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit
	case "tab":
		m.focus = focusQASM
		m.qasmView.Focus()
	case "a", "enter":
		m.focus = focusMenu
		m.menuItem = m.schemeIdx
	case "up", "k":
		if m.cursorQubit > 0 {
			m.cursorQubit--
		}
	case "down", "j":
		if m.cursorQubit < m.circuit.NumQubits-1 {
			m.cursorQubit++
		}
	case "left", "h":
		m.moveStep(m.cursorStep - 1)
	case "right", "l":
		m.moveStep(m.cursorStep + 1)
	case "g", "home":
		m.moveStep(0)
	case "G", "end":
		m.moveStep(m.circuit.MaxSteps - 1)
	case "m":
		m.opts.AddMeasurement = !m.opts.AddMeasurement
		m.rebuild()
	case "f":
		if m.opts.Algorithm == convert.InstantUnitary {
			m.opts.Algorithm = convert.FixedDurationUnitary
		} else {
			m.opts.Algorithm = convert.InstantUnitary
		}
		m.rebuild()
	case "p":
		m.params.PrePostRotation = !m.params.PrePostRotation
		m.rebuild()
	case "+", "=":
		if m.numQubits < maxViewQubits {
			m.numQubits++
			m.rebuild()
		}
	case "-":
		if m.numQubits > 1 {
			m.numQubits--
			m.rebuild()
		}
	case "]", "[":
		if _, v := schemeParam(m.scheme(), &m.params); v != nil {
			if key == "]" {
				*v++
			} else if *v > 1 {
				*v--
			}
			m.rebuild()
		}
	case ">", ".":
		m.opts.GateTime *= 2
		m.rebuild()
	case "<", ",":
		// Each halving doubles the identity moments; stop before the grid explodes.
		if m.params.Duration/(m.opts.GateTime/2) > maxIdleMoments {
			m.statusMsg = "Gate time too short to display"
			break
		}
		m.opts.GateTime /= 2
		m.rebuild()
	case "ctrl+s":
		if err := os.WriteFile(m.savePath, []byte(m.circuit.ToQASM()), 0644); err != nil {
			m.statusMsg = fmt.Sprintf("Save error: %v", err)
		} else {
			m.statusMsg = "Saved " + m.savePath
		}
	}
	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	qasmWidth := m.width / 3
	circuitWidth := m.width - qasmWidth - 4
	controlsHeight := 6
	circuitHeight := max(m.height-controlsHeight-2, 6)

	circuitPanel := m.renderCircuitPanel(circuitWidth, circuitHeight)
	qasmPanel := m.renderQASMPanel(qasmWidth, circuitHeight)
	controlsPanel := m.renderControlsPanel(m.width-4, controlsHeight-2)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, circuitPanel, qasmPanel)
	return lipgloss.JoinVertical(lipgloss.Left, topRow, controlsPanel)
}

func newViewCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		schemeName string
		cfg        viewConfig
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse converted sequences in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			scheme, err := ddseq.ParseScheme(schemeName)
			if err != nil {
				return f.Error(ExitCommandError, ErrCodeInput, "unknown scheme", err, nil)
			}
			cfg.scheme = scheme

			p := tea.NewProgram(newModel(cfg), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return f.Error(ExitFailure, ErrCodeIO, "viewer failed", err, nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemeName, "scheme", string(ddseq.CarrPurcellMeiboomGill), "initial scheme")
	cmd.Flags().IntVar(&cfg.numQubits, "qubits", 1, "number of target qubits")
	cmd.Flags().Float64Var(&cfg.gateTime, "gate-time", 0.1, "duration of one gate in seconds")
	cmd.Flags().StringVar(&cfg.savePath, "out", "circuit.qasm", "file written by ctrl+s")
	return cmd
}
