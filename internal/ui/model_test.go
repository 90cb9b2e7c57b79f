// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests message handling, operator keys and instrument rendering
package ui

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmstac/RC-Cockpit-Simulator/internal/player"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/sync"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestNewModel(t *testing.T) {
	model := NewModel(SessionInfo{Total: 100}, nil)

	if model.state != player.StateIdle {
		t.Errorf("expected idle state, got %s", model.state)
	}
	if model.hasFrame {
		t.Error("expected no frame initially")
	}
	if model.View() != "Loading..." {
		t.Error("expected loading view before window size")
	}
}

func TestEnterStartsOnlyWhenArmed(t *testing.T) {
	ctrl := NewControls()
	model := NewModel(SessionInfo{}, ctrl)

	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	select {
	case <-ctrl.Start:
		t.Fatal("enter before armed must not start")
	default:
	}

	model = update(t, model, StateMsg(player.StateArmed))
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	select {
	case <-ctrl.Start:
	default:
		t.Fatal("expected start signal when armed")
	}
	if !model.started {
		t.Error("expected started flag")
	}

	update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	select {
	case <-ctrl.Start:
		t.Error("start should be signalled once")
	default:
	}
}

func TestQuitSignalsSession(t *testing.T) {
	ctrl := NewControls()
	model := NewModel(SessionInfo{}, ctrl)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}

	select {
	case <-ctrl.Quit:
	default:
		t.Fatal("expected quit signal")
	}
}

func TestFrameAndStatsMessages(t *testing.T) {
	model := NewModel(SessionInfo{Transport: "udp", Endpoint: "10.0.0.5:8888", Total: 200}, nil)
	model = update(t, model, tea.WindowSizeMsg{Width: 100, Height: 40})

	var f telemetry.Frame
	f.Index = 9
	f.Values[telemetry.Motor0] = 1800
	model = update(t, model, FrameMsg(player.Snapshot{
		Frame:   f,
		Sent:    10,
		Total:   200,
		LogTime: 180 * time.Millisecond,
		Quality: sync.QualityDegraded,
	}))
	model = update(t, model, StatsMsg{Stats: player.Stats{Late: 3}, DisplayDrops: 7})
	model = update(t, model, StateMsg(player.StateStreaming))

	if !model.hasFrame || model.snap.Sent != 10 {
		t.Errorf("frame not applied: %+v", model.snap)
	}
	if model.stats.Late != 3 || model.displayDrops != 7 {
		t.Errorf("stats not applied: %+v drops=%d", model.stats, model.displayDrops)
	}

	view := model.View()
	for _, want := range []string{"FRAME: 10 / 200", "LOG TIME: 00:00.180", "STREAMING", "udp 10.0.0.5:8888", "late 3", "HUD drops 7"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDoneMsgShowsError(t *testing.T) {
	model := NewModel(SessionInfo{}, nil)
	model = update(t, model, tea.WindowSizeMsg{Width: 100, Height: 40})
	model = update(t, model, DoneMsg{Err: errors.New("serial write failed")})

	if model.state != player.StateClosed {
		t.Errorf("expected closed, got %s", model.state)
	}
	if view := model.View(); !strings.Contains(view, "serial write failed") || !strings.Contains(view, "FAILED") {
		t.Error("expected error in view")
	}
}

func TestGaugePosition(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{-180, 0},
		{0, 15},
		{180, 30},
		{500, 30},
		{-500, 0},
		{math.NaN(), 15},
	}

	for _, tt := range tests {
		if got := gaugePosition(tt.v, -180, 180, 31); got != tt.want {
			t.Errorf("gaugePosition(%v) = %d, expected %d", tt.v, got, tt.want)
		}
	}
}

func TestRenderArrow(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "·    "},
		{100, "▼▼   "},
		{-100, "▲▲   "},
		{10000, "▼▼▼▼▼"},
		{math.NaN(), "     "},
	}

	for _, tt := range tests {
		if got := renderArrow(tt.v, "▼", "▲"); got != tt.want {
			t.Errorf("renderArrow(%v) = %q, expected %q", tt.v, got, tt.want)
		}
	}
}

func TestMotorCells(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{0, 0},
		{-5, 0},
		{1000, 4},
		{2000, 8},
		{3000, 8},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		if got := motorCells(tt.v, 8); got != tt.want {
			t.Errorf("motorCells(%v) = %d, expected %d", tt.v, got, tt.want)
		}
	}
}

func TestBandStyle(t *testing.T) {
	if bandStyle(0, 10).GetForeground() != goodStyle.GetForeground() {
		t.Error("bottom cell should be green")
	}
	if bandStyle(6, 10).GetForeground() != warnStyle.GetForeground() {
		t.Error("70% cell should be orange")
	}
	if bandStyle(9, 10).GetForeground() != badStyle.GetForeground() {
		t.Error("top cell should be red")
	}
}

func TestRenderStickCentred(t *testing.T) {
	box := renderStick(1500, 1500)
	lines := strings.Split(box, "\n")

	if len(lines) != stickHeight+2 {
		t.Fatalf("expected %d lines, got %d", stickHeight+2, len(lines))
	}
	if !strings.Contains(lines[1+stickHeight/2], "●") {
		t.Error("centred stick should sit on the middle row")
	}
	if !strings.Contains(renderStick(1500, 2000), "●") {
		t.Error("expected a dot at full deflection")
	}
	if !strings.Contains(strings.Split(renderStick(1500, 2000), "\n")[1], "●") {
		t.Error("full throttle should sit on the top row")
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00.000"},
		{1500 * time.Millisecond, "00:01.500"},
		{75 * time.Second, "01:15.000"},
		{-time.Second, "00:00.000"},
	}

	for _, tt := range tests {
		if got := formatClock(tt.d); got != tt.want {
			t.Errorf("formatClock(%v) = %q, expected %q", tt.d, got, tt.want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(5, 10, 10); got != "█████░░░░░" {
		t.Errorf("unexpected bar %q", got)
	}
	if got := renderBar(5, 0, 4); got != "░░░░" {
		t.Errorf("zero max should render empty, got %q", got)
	}
	if got := renderBar(20, 10, 4); got != "████" {
		t.Errorf("overflow should clamp, got %q", got)
	}
}
