// ABOUTME: Bubbletea model for the cockpit HUD
// ABOUTME: Defines session state and update logic driven by scheduler snapshots
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmstac/RC-Cockpit-Simulator/internal/player"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/sync"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/version"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
)

// SessionInfo is the static header content
type SessionInfo struct {
	Transport string
	Endpoint  string
	Input     string
	Total     int
	RateHz    float64
	Video     string
}

// Model represents the TUI state
type Model struct {
	info     SessionInfo
	controls *Controls

	// Session
	state   player.State
	started bool
	err     error

	// Latest frame
	snap     player.Snapshot
	hasFrame bool

	// Stats
	stats        player.Stats
	displayDrops uint64

	// Dimensions
	width  int
	height int
}

// FrameMsg carries the latest snapshot
type FrameMsg player.Snapshot

// StateMsg reports a scheduler state change
type StateMsg player.State

// StatsMsg carries periodic statistics
type StatsMsg struct {
	Stats        player.Stats
	DisplayDrops uint64
}

// DoneMsg reports the session result
type DoneMsg struct {
	Err error
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case FrameMsg:
		m.snap = player.Snapshot(msg)
		m.hasFrame = true
	case StateMsg:
		m.state = player.State(msg)
	case StatsMsg:
		m.stats = msg.Stats
		m.displayDrops = msg.DisplayDrops
	case DoneMsg:
		m.err = msg.Err
		m.state = player.StateClosed
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderInstruments(),
		m.renderCounters(),
		m.renderStats(),
		m.renderHelp(),
	}
	return boxStyle.Render(strings.Join(sections, "\n"))
}

// renderHeader renders identity, link and state
func (m Model) renderHeader() string {
	title := titleStyle.Render(version.String())
	link := fmt.Sprintf("%s %s", m.info.Transport, m.info.Endpoint)

	state := strings.ToUpper(m.state.String())
	switch m.state {
	case player.StateStreaming:
		state = goodStyle.Render(state)
	case player.StateArmed:
		state = warnStyle.Render(state)
	case player.StateClosed:
		if m.err != nil {
			state = badStyle.Render("FAILED")
		}
	}

	lines := []string{
		title,
		labelStyle.Render("Link:  ") + valueStyle.Render(link) + "   " + labelStyle.Render("State: ") + state,
		labelStyle.Render("Input: ") + valueStyle.Render(truncate(m.info.Input, 48)),
	}
	if m.info.Video != "" {
		lines = append(lines, labelStyle.Render("Video: ")+valueStyle.Render(truncate(m.info.Video, 48)))
	}
	return strings.Join(lines, "\n")
}

// renderInstruments renders attitude, motors and sticks
func (m Model) renderInstruments() string {
	v := m.snap.Frame.Values
	if !m.hasFrame {
		v = telemetry.Missing()
	}

	attitude := strings.Join([]string{
		labelStyle.Render("ROLL  ") + rollStyle.Render(renderGauge(v[telemetry.GyroX], -rollSpan, rollSpan, gaugeWidth)) +
			fmt.Sprintf(" %+7.1f", nanZero(v[telemetry.GyroX])),
		labelStyle.Render("PITCH ") + pitchStyle.Render(renderArrow(v[telemetry.GyroY], "▼", "▲")) +
			fmt.Sprintf(" %+7.1f", nanZero(v[telemetry.GyroY])),
		labelStyle.Render("YAW   ") + yawStyle.Render(renderArrow(v[telemetry.GyroZ], "◀", "▶")) +
			fmt.Sprintf(" %+7.1f", nanZero(v[telemetry.GyroZ])),
	}, "\n")

	motors := renderMotors([]float64{v[telemetry.Motor0], v[telemetry.Motor1], v[telemetry.Motor2], v[telemetry.Motor3]})

	sticks := lipgloss.JoinHorizontal(lipgloss.Top,
		renderStick(v[telemetry.YawCmd], v[telemetry.ThrottleCmd]),
		" ",
		renderStick(v[telemetry.RollCmd], v[telemetry.PitchCmd]),
	)
	stickLabels := labelStyle.Render(fmt.Sprintf("%-14s%s", "  YAW/THR", "ROLL/PITCH"))

	left := panelStyle.Render(attitude + "\n\n" + sticks + "\n" + stickLabels)
	right := panelStyle.Render(motors)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

// renderCounters renders the frame counter and time labels
func (m Model) renderCounters() string {
	total := m.info.Total
	if m.snap.Total > 0 {
		total = m.snap.Total
	}

	frame := fmt.Sprintf("FRAME: %d / %d", m.snap.Sent, total)
	logTime := fmt.Sprintf("LOG TIME: %s", formatClock(m.snap.LogTime))
	elapsed := fmt.Sprintf("ELAPSED: %s", formatClock(m.snap.Elapsed))
	bar := renderBar(m.snap.Sent, total, 30)

	return valueStyle.Render(frame) + "  " + timeStyle.Render(logTime) + "  " + labelStyle.Render(elapsed) +
		"\n" + bar
}

// renderStats renders pacing statistics
func (m Model) renderStats() string {
	q := m.snap.Quality
	var quality string
	switch q {
	case sync.QualityGood:
		quality = goodStyle.Render("✓ " + q.String())
	case sync.QualityDegraded:
		quality = warnStyle.Render("⚠ " + q.String())
	default:
		quality = badStyle.Render("✗ " + q.String())
	}

	s := fmt.Sprintf("Timing: %s  late %d  max %.2fms  mean %.3fms  HUD drops %d",
		quality,
		m.stats.Late,
		ms(m.stats.MaxLateness),
		ms(m.stats.MeanInterval),
		m.displayDrops,
	)
	if m.err != nil {
		s += "\n" + badStyle.Render("Error: "+truncate(m.err.Error(), 60))
	}
	return s
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	switch {
	case m.state == player.StateArmed && !m.started:
		return warnStyle.Render("Press Enter to start streaming") + labelStyle.Render("  q: abort")
	case m.state == player.StateClosed:
		return labelStyle.Render("Session finished  q: quit")
	default:
		return labelStyle.Render("q: stop and send neutral")
	}
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.controls.signalQuit()
		return m, tea.Quit
	case "enter":
		if m.state == player.StateArmed && !m.started {
			m.started = true
			m.controls.signalStart()
		}
	}

	return m, nil
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = (value * width) / max
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int(d / time.Minute)
	s := (d % time.Minute).Seconds()
	return fmt.Sprintf("%02d:%06.3f", m, s)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
