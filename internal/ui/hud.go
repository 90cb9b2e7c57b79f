// ABOUTME: Instrument rendering helpers for the terminal HUD
// ABOUTME: Gauges, arrows, motor columns and stick boxes drawn with lipgloss
package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	motorMax     = 2000.0
	motorHeight  = 8
	greenBand    = 0.6
	orangeBand   = 0.8
	stickCenter  = 1500.0
	stickHalf    = 500.0
	stickWidth   = 11
	stickHeight  = 5
	gaugeWidth   = 31
	rollSpan     = 180.0
	arrowScale   = 0.3
	arrowMaxRuns = 5
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("48"))
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	rollStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	pitchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	yawStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("201"))
	stickStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// gaugePosition maps v in [lo, hi] to a cell in [0, width)
func gaugePosition(v, lo, hi float64, width int) int {
	if math.IsNaN(v) || hi <= lo || width <= 0 {
		return width / 2
	}
	n := (v - lo) / (hi - lo)
	n = math.Max(0, math.Min(1, n))
	return int(math.Round(n * float64(width-1)))
}

// renderGauge draws a horizontal track with a centre tick and a marker
func renderGauge(v, lo, hi float64, width int) string {
	pos := gaugePosition(v, lo, hi, width)
	mid := width / 2

	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == pos:
			b.WriteString("●")
		case i == mid:
			b.WriteString("┼")
		default:
			b.WriteString("─")
		}
	}
	return b.String()
}

// renderArrow draws up to arrowMaxRuns arrows pointing in the sign's direction
func renderArrow(v float64, positive, negative string) string {
	if math.IsNaN(v) {
		return strings.Repeat(" ", arrowMaxRuns)
	}
	mag := math.Abs(v) * arrowScale
	runs := int(math.Ceil(mag / 145 * arrowMaxRuns))
	if runs > arrowMaxRuns {
		runs = arrowMaxRuns
	}
	if runs == 0 {
		return "·" + strings.Repeat(" ", arrowMaxRuns-1)
	}

	glyph := positive
	if v < 0 {
		glyph = negative
	}
	return strings.Repeat(glyph, runs) + strings.Repeat(" ", arrowMaxRuns-runs)
}

// motorCells returns how many of height cells a motor value fills
func motorCells(v float64, height int) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	n := int(math.Round(v / motorMax * float64(height)))
	if n > height {
		n = height
	}
	return n
}

// bandStyle colours a motor cell by its height fraction
func bandStyle(row, height int) lipgloss.Style {
	frac := float64(row+1) / float64(height)
	switch {
	case frac <= greenBand:
		return goodStyle
	case frac <= orangeBand:
		return warnStyle
	default:
		return badStyle
	}
}

// renderMotors draws the motor columns bottom-up with a label row
func renderMotors(values []float64) string {
	lines := make([]string, 0, motorHeight+2)
	for row := motorHeight - 1; row >= 0; row-- {
		cells := make([]string, len(values))
		for m, v := range values {
			if motorCells(v, motorHeight) > row {
				cells[m] = bandStyle(row, motorHeight).Render("███")
			} else {
				cells[m] = labelStyle.Render("░░░")
			}
		}
		lines = append(lines, strings.Join(cells, " "))
	}

	nums := make([]string, len(values))
	names := make([]string, len(values))
	for m, v := range values {
		nums[m] = fmt.Sprintf("%3.0f", nanZero(v)/motorMax*100)
		names[m] = fmt.Sprintf(" M%d", m)
	}
	lines = append(lines, strings.Join(nums, " "), labelStyle.Render(strings.Join(names, " ")))
	return strings.Join(lines, "\n")
}

// stickCell maps a pulse width to a cell in a stick box axis
func stickCell(v float64, cells int) int {
	if math.IsNaN(v) {
		return cells / 2
	}
	return gaugePosition(v, stickCenter-stickHalf, stickCenter+stickHalf, cells)
}

// renderStick draws a stick box with the dot at (x, y); up is high y
func renderStick(x, y float64) string {
	cx := stickCell(x, stickWidth)
	cy := stickHeight - 1 - stickCell(y, stickHeight)

	var b strings.Builder
	b.WriteString("┌" + strings.Repeat("─", stickWidth) + "┐\n")
	for row := 0; row < stickHeight; row++ {
		b.WriteString("│")
		for col := 0; col < stickWidth; col++ {
			switch {
			case row == cy && col == cx:
				b.WriteString(stickStyle.Render("●"))
			case row == stickHeight/2 && col == stickWidth/2:
				b.WriteString("+")
			default:
				b.WriteString(" ")
			}
		}
		b.WriteString("│\n")
	}
	b.WriteString("└" + strings.Repeat("─", stickWidth) + "┘")
	return b.String()
}

func nanZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
