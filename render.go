package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ddcirq/circuit"
)

// ──────────────────────────── Rendering helpers ────────────────────────────

// padCenter centres s within width runes, truncating when it does not fit.
func padCenter(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return string([]rune(s)[:width])
	}
	total := width - n
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// gateLabel returns the text drawn inside a gate box: the rotation axis with
// its angle in π notation, or the gate name.
func gateLabel(g *circuit.Gate) string {
	switch g.Type {
	case "MEASURE":
		return "M"
	case "RX", "RY", "RZ":
		if len(g.Params) == 0 {
			return g.Type
		}
		angle := circuit.FormatParam(g.Params[0])
		angle = strings.ReplaceAll(strings.ReplaceAll(angle, "*", ""), "pi", "π")
		return g.Type[1:] + angle
	default:
		return g.Type
	}
}

// cellInfo is what renderCell needs to know about one (moment, qubit) cell.
type cellInfo struct {
	gate *circuit.Gate
	// measureBelow is set when a measurement wire from this or a higher qubit
	// passes down through the cell to the classical register.
	measureBelow bool
}

func (m Model) cellAt(step, qubit int) cellInfo {
	measured := m.circuit.GetMeasureAtStep(step)
	return cellInfo{
		gate:         m.circuit.GetGateAt(step, qubit),
		measureBelow: measured >= 0 && measured <= qubit,
	}
}

// ──────────────────────────── Cell rendering ────────────────────────────

// renderCell returns 3 lines (top, mid, bot) for a single cell.
// Each line is exactly cellW visual characters wide.
func renderCell(info cellInfo, cursor bool) (top, mid, bot string) {
	emptyRow := strings.Repeat(" ", cellW)
	halfW := cellW / 2
	dblVertRow := strings.Repeat(" ", halfW) + cbitConnectorStyle.Render("║") + strings.Repeat(" ", cellW-halfW-1)

	if cursor {
		innerW := cellW - 2
		top = cursorBoxStyle.Render("╔" + strings.Repeat("═", innerW) + "╗")
		bot = cursorBoxStyle.Render("╚" + strings.Repeat("═", innerW) + "╝")
		if info.gate != nil {
			name := padCenter(gateLabel(info.gate), gateNameW)
			mid = cursorBoxStyle.Render("║") + "─┤" + gateStyle.Render(name) + "├─" + cursorBoxStyle.Render("║")
		} else {
			mid = cursorBoxStyle.Render("║") + strings.Repeat("─", innerW) + cursorBoxStyle.Render("║")
		}
		return
	}

	dashL := (cellW - 1) / 2
	dashR := cellW - dashL - 1

	switch {
	case info.gate != nil:
		style := gateStyle
		if info.gate.Type == "I" {
			style = idleStyle
		}
		margin := (cellW - gateBoxW) / 2
		rightMargin := cellW - margin - gateBoxW
		name := padCenter(gateLabel(info.gate), gateNameW)

		top = strings.Repeat(" ", margin) + style.Render("┌"+strings.Repeat("─", gateNameW)+"┐") + strings.Repeat(" ", rightMargin)
		mid = strings.Repeat("─", margin) + style.Render("┤"+name+"├") + strings.Repeat("─", rightMargin)
		bot = strings.Repeat(" ", margin) + style.Render("└"+strings.Repeat("─", gateNameW)+"┘") + strings.Repeat(" ", rightMargin)
		if info.measureBelow {
			bot = dblVertRow
		}

	case info.measureBelow:
		// No gate here, but a measurement wire passes through vertically.
		top = dblVertRow
		mid = strings.Repeat("─", dashL) + cbitConnectorStyle.Render("╫") + strings.Repeat("─", dashR)
		bot = dblVertRow

	default:
		top = emptyRow
		mid = strings.Repeat("─", cellW)
		bot = emptyRow
	}
	return
}

// ──────────────────────────── Panel rendering ────────────────────────────

// visibleSteps returns the first moment shown and how many fit in width.
func (m Model) visibleSteps(width int) (start, count int) {
	availWidth := width - labelVisualW - 4
	fit := max(availWidth/cellW, 1)
	if m.cursorStep >= fit {
		start = m.cursorStep - fit + 1
	}
	count = max(min(fit, m.circuit.MaxSteps-start), 0)
	return start, count
}

// renderCircuitPanel renders the circuit grid panel.
func (m Model) renderCircuitPanel(width, height int) string {
	if m.focus == focusMenu {
		return circuitStyle.Width(width).Height(height).Render(m.renderMenu())
	}

	var sb strings.Builder

	title := "Circuit"
	if m.seq != nil {
		title = fmt.Sprintf("Circuit · %s · %d moments", m.seq.Name, m.circuit.MaxSteps)
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")

	startStep, displaySteps := m.visibleSteps(width)
	if startStep > 0 {
		fmt.Fprintf(&sb, "  ◀ showing moments %d–%d\n", startStep, startStep+displaySteps-1)
	}

	header := strings.Repeat(" ", labelVisualW)
	for step := startStep; step < startStep+displaySteps; step++ {
		header += dimStyle.Render(padCenter(fmt.Sprintf("%d", step), cellW))
	}
	sb.WriteString(header + "\n")

	for qubit := range m.circuit.NumQubits {
		topLine := strings.Repeat(" ", labelVisualW)
		midLine := qubitLabelStyle.Render(fmt.Sprintf("%-5s", fmt.Sprintf("q[%d]", qubit))) + "──"
		botLine := strings.Repeat(" ", labelVisualW)

		for step := startStep; step < startStep+displaySteps; step++ {
			cursor := step == m.cursorStep && qubit == m.cursorQubit
			top, mid, bot := renderCell(m.cellAt(step, qubit), cursor)
			topLine += top
			midLine += mid
			botLine += bot
		}

		sb.WriteString(topLine + "\n")
		sb.WriteString(midLine + "\n")
		sb.WriteString(botLine + "\n")
	}

	// ── Classical register (single line) ──
	keys := m.circuit.MeasurementKeys()
	if len(keys) > 0 {
		cbit := make(map[string]int, len(keys))
		for i, k := range keys {
			cbit[k] = i
		}

		label := fmt.Sprintf("c%d", m.circuit.NumCbits())
		cbitLine := cbitLabelStyle.Render(fmt.Sprintf("%-5s", label)) + cbitWireStyle.Render("══")
		for step := startStep; step < startStep+displaySteps; step++ {
			var bits []int
			for _, g := range m.circuit.Moments()[step] {
				if g.Type == "MEASURE" {
					bits = append(bits, cbit[g.Key])
				}
			}
			if len(bits) == 0 {
				cbitLine += cbitWireStyle.Render(strings.Repeat("═", cellW))
				continue
			}
			bitLabel := fmt.Sprintf("%d", bits[0])
			if len(bits) > 1 {
				bitLabel = fmt.Sprintf("%d-%d", bits[0], bits[len(bits)-1])
			}
			dashL := (cellW - 1) / 2
			dashR := max(cellW-dashL-1-len(bitLabel), 0)
			cbitLine += cbitWireStyle.Render(strings.Repeat("═", dashL)) +
				cbitConnectorStyle.Render("╩"+bitLabel) +
				cbitWireStyle.Render(strings.Repeat("═", dashR))
		}
		sb.WriteString(cbitLine + "\n")
	}

	fmt.Fprintf(&sb, "\n  Moment %d, Qubit %d", m.cursorStep, m.cursorQubit)
	if g := m.circuit.GetGateAt(m.cursorStep, m.cursorQubit); g != nil {
		fmt.Fprintf(&sb, "  %s", accentStyle.Render(g.String()))
	}
	if m.statusMsg != "" {
		fmt.Fprintf(&sb, "  │  %s", accentStyle.Render(m.statusMsg))
	}
	if m.errMsg != "" {
		fmt.Fprintf(&sb, "\n  %s", errorStyle.Render(m.errMsg))
	}

	return circuitStyle.Width(width).Height(height).Render(sb.String())
}

// renderQASMPanel renders the read-only QASM panel.
func (m Model) renderQASMPanel(width, height int) string {
	var sb strings.Builder

	title := "OpenQASM"
	if m.focus == focusQASM {
		title += " [SCROLL]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(m.qasmView.View())

	return qasmStyle.Width(width).Height(height).Render(sb.String())
}

// renderControlsPanel renders the settings, state probabilities and key help.
func (m Model) renderControlsPanel(width, height int) string {
	var sb strings.Builder

	onOff := map[bool]string{true: "on", false: "off"}
	sb.WriteString(accentStyle.Render("Sequence: "))
	fmt.Fprintf(&sb, "%s  T=%g", m.scheme(), m.params.Duration)
	if name, v := schemeParam(m.scheme(), &m.params); v != nil {
		fmt.Fprintf(&sb, "  %s=%d", name, *v)
	}
	fmt.Fprintf(&sb, "  pre/post %s  ", onOff[m.params.PrePostRotation])
	sb.WriteString(accentStyle.Render("Circuit: "))
	fmt.Fprintf(&sb, "%s  gate %gs  measure %s  qubits %d\n",
		m.opts.Algorithm, m.opts.GateTime, onOff[m.opts.AddMeasurement], m.numQubits)

	sb.WriteString(accentStyle.Render("P(|1⟩):   "))
	for q, p := range m.probs {
		fmt.Fprintf(&sb, "q[%d] %.3f  ", q, p.Prob1)
	}
	sb.WriteString(dimStyle.Render(fmt.Sprintf("after moment %d", m.cursorStep)))
	sb.WriteString("\n")

	sb.WriteString(accentStyle.Render("Keys:     "))
	sb.WriteString("a Scheme  [ ] Param  < > Gate time  f Algorithm  m Measure  p Pre/post  +/- Qubits  Tab QASM  ^S Save  q Quit")

	return controlsStyle.Width(width).Height(height).Render(sb.String())
}
