// ABOUTME: Playback session orchestration
// ABOUTME: Loads the log, opens the link and runs the scheduler with its displays
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/mmstac/RC-Cockpit-Simulator/internal/blackbox"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/config"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/cue"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/discovery"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/player"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/server"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/transport"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/ui"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/video"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry/encode"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry/resample"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry/shape"
)

const (
	statsInterval = 250 * time.Millisecond
	// tuiQuitTimeout bounds how long a stalled terminal can delay exit
	tuiQuitTimeout = 2 * time.Second
)

// Session runs one playback from a validated configuration
type Session struct {
	cfg    config.Session
	id     string
	stdin  io.Reader
	stdout io.Writer

	// dial opens the output link; replaced in tests
	dial func(ctx context.Context) (transport.Transport, string, error)

	mu        sync.Mutex
	scheduler *player.Scheduler
}

// New creates a session. stdin feeds the start prompt and stdout receives
// progress lines when the TUI is off.
func New(cfg config.Session, stdin io.Reader, stdout io.Writer) *Session {
	s := &Session{
		cfg:    cfg,
		id:     uuid.New().String(),
		stdin:  stdin,
		stdout: stdout,
	}
	s.dial = s.openTransport
	return s
}

// ID returns the session identifier used in logs and the HUD feed
func (s *Session) ID() string {
	return s.id
}

// Stats returns the scheduler statistics, zero before Run builds it
func (s *Session) Stats() player.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler == nil {
		return player.Stats{}
	}
	return s.scheduler.Stats()
}

// LoadFrames reads the blackbox log and resamples it onto the frame grid
func LoadFrames(cfg config.Session) ([]telemetry.Frame, error) {
	l, err := blackbox.Load(cfg.Input, cfg.Layout())
	if err != nil {
		return nil, fmt.Errorf("failed to load log: %w", err)
	}

	opts := cfg.ResampleOptions()
	frames, err := resample.Resample(l.Samples, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to resample log: %w", err)
	}

	log.Printf("Resampled %d samples into %d frames (window %v, scale %.2f, gaps %s)",
		len(l.Samples), len(frames), opts.Window, opts.TimeScale, opts.Gap)
	return frames, nil
}

// Run executes the session until the log ends, the operator aborts or the
// link fails. The neutral frame is always sent once the link is open.
func (s *Session) Run(ctx context.Context) error {
	log.Printf("Session %s starting", s.id)

	frames, err := LoadFrames(s.cfg)
	if err != nil {
		return err
	}

	rules, err := s.cfg.Rules()
	if err != nil {
		return err
	}
	neutral, err := s.cfg.NeutralFrame()
	if err != nil {
		return err
	}

	if skip := s.cfg.SkipFrames(); skip >= len(frames) {
		return fmt.Errorf("data offset skips %d of %d frames: %w", skip, len(frames), player.ErrNoFrames)
	}

	enc := newEncoder(s.cfg.Kind(), s.cfg.Layout())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		displays []player.Display
		stateFns []func(player.State)
		cleanups []func()
	)
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	if s.cfg.HUD.FeedAddr != "" {
		feed := server.New(server.Config{
			Addr:      s.cfg.HUD.FeedAddr,
			SessionID: s.id,
			RateHz:    s.cfg.Timing.RateHz,
			Layout:    s.cfg.Layout(),
		})
		if err := feed.Start(); err != nil {
			return fmt.Errorf("failed to start HUD feed: %w", err)
		}
		displays = append(displays, feed)
		stateFns = append(stateFns, feed.SetState)
		cleanups = append(cleanups, feed.Stop)
	}

	var startCue *cue.Cue
	if s.cfg.Cue.Enabled {
		c, err := cue.New(cue.Config{
			File:        s.cfg.Cue.File,
			FrequencyHz: s.cfg.Cue.FrequencyHz,
			Duration:    time.Duration(s.cfg.Cue.DurationMS) * time.Millisecond,
		})
		if err != nil {
			log.Printf("Start cue disabled: %v", err)
		} else {
			startCue = c
			cleanups = append(cleanups, c.Close)
		}
	}

	tr, endpoint, err := s.dial(ctx)
	if err != nil {
		return err
	}

	var gate player.Gate
	var tui *tuiSession
	if s.cfg.HUD.TUI {
		tui = startTUI(ui.SessionInfo{
			Transport: tr.Kind().String(),
			Endpoint:  endpoint,
			Input:     s.cfg.Input,
			Total:     len(frames) - s.cfg.SkipFrames(),
			RateHz:    s.cfg.Timing.RateHz,
			Video:     s.cfg.Video.Path,
		}, cancel)
		gate = player.ChanGate(tui.controls.Start)
		displays = append(displays, tui.display)
		stateFns = append(stateFns, tui.display.SetState)
	} else {
		console := player.NewConsole(s.stdout, enc, player.DefaultProgressEvery)
		go console.Run()
		displays = append(displays, console)
		cleanups = append(cleanups, console.Close)
		gate = player.LineGate(s.stdin, s.stdout, "Press Enter to start streaming (Ctrl-C to abort)... ")
	}

	var videoPlayer *video.Player
	if s.cfg.Video.Path != "" {
		inner := gate
		gate = player.GateFunc(func(ctx context.Context) error {
			if err := inner.Wait(ctx); err != nil {
				return err
			}
			p, err := video.Launch(ctx, video.Config{
				Player:       s.cfg.Video.Player,
				Path:         s.cfg.Video.Path,
				Args:         s.cfg.Video.Args,
				StartupDelay: s.cfg.StartupDelay(),
			})
			if err != nil {
				return err
			}
			videoPlayer = p
			return nil
		})
		cleanups = append(cleanups, func() {
			if videoPlayer != nil {
				videoPlayer.Stop()
			}
		})
	}

	sched, err := player.NewScheduler(player.Config{
		Interval:    s.cfg.Interval(),
		Window:      time.Duration(float64(s.cfg.Window()) / s.cfg.Timing.TimeScale),
		SkipFrames:  s.cfg.SkipFrames(),
		Neutral:     neutral,
		NeutralHold: s.cfg.NeutralHold(),
		Tolerance:   s.cfg.Tolerance(),
		Shaper:      shape.New(rules),
		Encoder:     enc,
		Displays:    displays,
		OnStart: func(anchor time.Time) {
			if startCue != nil {
				startCue.Play()
			}
		},
		OnStateChange: func(st player.State) {
			for _, fn := range stateFns {
				fn(st)
			}
		},
	}, frames)
	if err != nil {
		tr.Close()
		if tui != nil {
			tui.stop(err)
		}
		return err
	}

	s.mu.Lock()
	s.scheduler = sched
	s.mu.Unlock()

	if tui != nil {
		go tui.display.Run(sched.Stats, statsInterval)
	}

	runErr := sched.Run(ctx, tr, gate)

	if tui != nil {
		tui.stop(runErr)
	}

	st := sched.Stats()
	log.Printf("Session %s finished: sent %d/%d, late %d, max lateness %v, mean interval %v, neutral sent %v, aborted %v",
		s.id, st.Sent, st.Total, st.Late, st.MaxLateness, st.MeanInterval, st.NeutralSent, st.Aborted)

	return runErr
}

// openTransport connects the configured link
func (s *Session) openTransport(ctx context.Context) (transport.Transport, string, error) {
	switch s.cfg.Kind() {
	case transport.KindDatagram:
		addr := s.cfg.Transport.Addr
		if s.cfg.Transport.Discover || addr == "" {
			timeout := time.Duration(s.cfg.Transport.DiscoverTimeoutS) * time.Second
			log.Printf("Browsing for %s (%v)", discovery.ServiceType, timeout)
			dev, err := discovery.Find(ctx, timeout)
			if err != nil {
				return nil, "", fmt.Errorf("device discovery failed: %w", err)
			}
			addr = dev.Addr()
		}

		d, err := transport.DialUDP(addr)
		if err != nil {
			return nil, "", err
		}
		return d, addr, nil

	default:
		sp, err := transport.OpenSerial(transport.SerialConfig{
			Port:   s.cfg.Transport.Port,
			Baud:   s.cfg.Transport.Baud,
			Settle: time.Duration(s.cfg.Transport.SettleMS) * time.Millisecond,
		})
		if err != nil {
			return nil, "", err
		}
		return sp, s.cfg.Transport.Port, nil
	}
}

// newEncoder picks the wire format for a transport
func newEncoder(kind transport.Kind, layout telemetry.Layout) encode.Encoder {
	if kind == transport.KindDatagram {
		return encode.NewBinary(layout)
	}
	return encode.NewText(layout)
}

// tuiSession owns the bubbletea program for one session
type tuiSession struct {
	program  *tea.Program
	controls *ui.Controls
	display  *ui.Display
	done     chan struct{}
	once     sync.Once
}

func startTUI(info ui.SessionInfo, abort context.CancelFunc) *tuiSession {
	controls := ui.NewControls()
	program := ui.Run(info, controls)

	t := &tuiSession{
		program:  program,
		controls: controls,
		display:  ui.NewDisplay(program),
		done:     make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		if _, err := program.Run(); err != nil {
			log.Printf("TUI error: %v", err)
		}
		// leaving the TUI aborts the session
		abort()
	}()

	go func() {
		select {
		case <-controls.Quit:
			log.Printf("Operator abort from TUI")
			abort()
		case <-t.done:
		}
	}()

	return t
}

// stop reports the result, closes the display bridge and exits the program.
// A program that does not quit in time is killed.
func (t *tuiSession) stop(err error) {
	t.once.Do(func() {
		t.display.Close()
		go func() {
			t.program.Send(ui.DoneMsg{Err: err})
			t.program.Quit()
		}()

		timer := time.NewTimer(tuiQuitTimeout)
		defer timer.Stop()

		select {
		case <-t.done:
		case <-timer.C:
			log.Printf("TUI did not exit within %v, killing it", tuiQuitTimeout)
			t.program.Kill()
			select {
			case <-t.done:
			case <-time.After(tuiQuitTimeout):
				log.Printf("TUI still blocked after kill, leaving it")
			}
		}
	})
}
