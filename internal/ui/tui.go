// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and bridges it to the scheduler
package ui

import (
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmstac/RC-Cockpit-Simulator/internal/player"
)

// Controls carries operator intents from the TUI to the session
type Controls struct {
	Start chan struct{}
	Quit  chan struct{}
}

// NewControls creates a control handler
func NewControls() *Controls {
	return &Controls{
		Start: make(chan struct{}, 1),
		Quit:  make(chan struct{}, 1),
	}
}

func (c *Controls) signalStart() {
	if c == nil {
		return
	}
	select {
	case c.Start <- struct{}{}:
	default:
	}
}

func (c *Controls) signalQuit() {
	if c == nil {
		return
	}
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(info SessionInfo, ctrl *Controls) Model {
	return Model{
		info:     info,
		controls: ctrl,
		state:    player.StateIdle,
	}
}

// Run creates the TUI program
func Run(info SessionInfo, ctrl *Controls) *tea.Program {
	return tea.NewProgram(NewModel(info, ctrl), tea.WithAltScreen())
}

// Display pulls snapshots from a mailbox and forwards them to the program.
// A slow terminal drops HUD updates; it never delays the scheduler.
type Display struct {
	box     *player.Mailbox
	program *tea.Program

	// latest state plus a one-slot wakeup
	state    atomic.Int32
	stateSig chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// NewDisplay wires a program to a fresh mailbox
func NewDisplay(p *tea.Program) *Display {
	return &Display{
		box:      player.NewMailbox(),
		program:  p,
		stateSig: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// SetState records a state transition for the HUD. It never blocks;
// intermediate states may be skipped if the program is slow.
func (d *Display) SetState(st player.State) {
	d.state.Store(int32(st))
	select {
	case d.stateSig <- struct{}{}:
	default:
	}
}

// Offer implements player.Display
func (d *Display) Offer(s player.Snapshot) {
	d.box.Offer(s)
}

// Drops returns how many snapshots were skipped by the HUD
func (d *Display) Drops() uint64 {
	return d.box.Drops()
}

// Run forwards snapshots and states until Close, sending stats every interval
func (d *Display) Run(stats func() player.Stats, interval time.Duration) {
	go func() {
		for {
			select {
			case <-d.stateSig:
				d.program.Send(StateMsg(player.State(d.state.Load())))
			case <-d.done:
				return
			}
		}
	}()

	if stats != nil && interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					d.program.Send(StatsMsg{Stats: stats(), DisplayDrops: d.box.Drops()})
				case <-d.done:
					return
				}
			}
		}()
	}

	for {
		s, ok := d.box.Next()
		if !ok {
			return
		}
		d.program.Send(FrameMsg(s))
	}
}

// Close stops Run. Sends already blocked on a stalled program return
// once the program is killed.
func (d *Display) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
		d.box.Close()
	})
}
