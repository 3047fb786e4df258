package main

import (
	"fmt"
	"strings"

	"ddcirq/ddseq"
)

// schemeSummaries describe where each scheme places its pulses.
var schemeSummaries = map[ddseq.Scheme]string{
	ddseq.SpinEcho:               "X π at T/2",
	ddseq.CarrPurcell:            "n X π at (2k-1)T/2n",
	ddseq.CarrPurcellMeiboomGill: "n Y π at (2k-1)T/2n",
	ddseq.UhrigSingleAxis:        "n Y π at T sin²(πk/(2n+2))",
	ddseq.PeriodicSingleAxis:     "n X π at kT/(n+1)",
	ddseq.WalshSingleAxis:        "X π at Walsh sign changes",
	ddseq.Quadratic:              "Uhrig X inside Uhrig Z",
	ddseq.XConcatenated:          "C → C X C X",
	ddseq.XYConcatenated:         "C → C X C Y C X C Y",
}

// schemeParam returns the parameter that [ and ] adjust for a scheme, or nil
// when the scheme has none.
func schemeParam(s ddseq.Scheme, p *ddseq.Params) (string, *int) {
	switch s {
	case ddseq.CarrPurcell, ddseq.CarrPurcellMeiboomGill, ddseq.UhrigSingleAxis, ddseq.PeriodicSingleAxis:
		return "offsets", &p.OffsetCount
	case ddseq.WalshSingleAxis:
		return "paley order", &p.PaleyOrder
	case ddseq.Quadratic:
		return "inner offsets", &p.InnerOffsetCount
	case ddseq.XConcatenated, ddseq.XYConcatenated:
		return "order", &p.ConcatenationOrder
	}
	return "", nil
}

// renderMenu renders the scheme picker shown in place of the circuit.
func (m Model) renderMenu() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Choose Scheme"))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat("─", 56)))
	sb.WriteString("\n")

	for i, s := range ddseq.Schemes {
		if i == m.menuItem {
			sb.WriteString(menuSelectedStyle.Render(" ▸ "))
			sb.WriteString(menuSelectedStyle.Render(fmt.Sprintf("%-28s", s)))
			sb.WriteString(gateStyle.Render(schemeSummaries[s]))
		} else {
			sb.WriteString("   ")
			sb.WriteString(menuNormalStyle.Render(fmt.Sprintf("%-28s", s)))
			sb.WriteString(dimStyle.Render(schemeSummaries[s]))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render(" ↑↓ Select  ⏎ Ok  Esc ✕"))

	return sb.String()
}
