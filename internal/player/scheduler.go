// ABOUTME: Paced frame playback against an anchored monotonic timeline
// ABOUTME: Owns the transport for one session and always ends with a neutral frame
package player

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	internalsync "github.com/mmstac/RC-Cockpit-Simulator/internal/sync"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/transport"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry/encode"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry/shape"
)

// DefaultTolerance is the per-frame lateness budget
const DefaultTolerance = 2 * time.Millisecond

// lateLogLimit caps how many individual late frames get a log line
const lateLogLimit = 20

var (
	// ErrNoFrames means there is nothing left to play after the skip offset
	ErrNoFrames = errors.New("no frames to play")
	// ErrAlreadyRun means Run was called twice on one scheduler
	ErrAlreadyRun = errors.New("scheduler already ran")
)

// Config holds the immutable session parameters for a Scheduler
type Config struct {
	Interval   time.Duration   // wall time between frames
	Window     time.Duration   // grid spacing in log time, for display labels
	SkipFrames int             // leading frames dropped to align with video
	Neutral    telemetry.Frame // sent once on shutdown, already in wire units
	// NeutralHold keeps the link open after the neutral frame so the
	// actuators reach center before Close (closing a serial port resets
	// the board).
	NeutralHold time.Duration
	Tolerance  time.Duration   // lateness still counted as on time

	Shaper  *shape.Shaper
	Encoder encode.Encoder

	// Displays receive a snapshot after every sent frame. Offer must not block.
	Displays []Display

	// OnStart runs on the pacing goroutine right after the anchor is taken
	OnStart func(anchor time.Time)
	// OnStateChange is called on the pacing goroutine on every state
	// transition. It must not block.
	OnStateChange func(State)

	Clock  internalsync.Clock
	Waiter internalsync.Waiter
}

// Stats summarises a session's pacing
type Stats struct {
	State        State
	Total        int
	Sent         int
	Late         int
	MaxLateness  time.Duration
	MeanInterval time.Duration
	Quality      internalsync.Quality
	NeutralSent  bool
	Aborted      bool
}

// Scheduler streams frames at a fixed rate
type Scheduler struct {
	cfg    Config
	frames []telemetry.Frame

	state   atomic.Int32
	ran     atomic.Bool
	stopped atomic.Bool

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	statsMu   sync.Mutex
	stats     Stats
	firstSend time.Time
	lastSend  time.Time
}

// NewScheduler validates cfg and prepares a scheduler for frames
func NewScheduler(cfg Config, frames []telemetry.Frame) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("invalid frame interval %v", cfg.Interval)
	}
	if cfg.NeutralHold < 0 {
		return nil, fmt.Errorf("invalid neutral hold %v", cfg.NeutralHold)
	}
	if cfg.SkipFrames < 0 {
		return nil, fmt.Errorf("invalid skip offset %d", cfg.SkipFrames)
	}
	if cfg.SkipFrames >= len(frames) {
		return nil, fmt.Errorf("%d frames with skip %d: %w", len(frames), cfg.SkipFrames, ErrNoFrames)
	}
	if cfg.Encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if cfg.Window <= 0 {
		cfg.Window = cfg.Interval
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.Clock == nil {
		cfg.Clock = internalsync.SystemClock{}
	}
	if cfg.Waiter == nil {
		cfg.Waiter = internalsync.NewHybridWaiter()
	}

	s := &Scheduler{
		cfg:    cfg,
		frames: frames,
	}
	s.stats.Total = len(frames) - cfg.SkipFrames
	return s, nil
}

// State returns the current lifecycle state
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Stop requests cancellation. The loop notices it at the next frame
// boundary or during the current wait.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)

	s.cancelMu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancelMu.Unlock()
}

// Stats returns a copy of the current statistics
func (s *Scheduler) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	st := s.stats
	st.State = s.State()
	if st.Sent > 1 {
		st.MeanInterval = s.lastSend.Sub(s.firstSend) / time.Duration(st.Sent-1)
	}
	return st
}

// Run takes ownership of tr, waits for gate, streams every frame after the
// skip offset and then sends exactly one neutral frame before closing tr.
// Cancellation is not an error: Run returns nil once shutdown completes.
func (s *Scheduler) Run(ctx context.Context, tr transport.Transport, gate Gate) (err error) {
	if !s.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.cancelMu.Lock()
	s.cancel = cancel
	s.cancelMu.Unlock()
	if s.stopped.Load() {
		cancel()
	}

	defer func() {
		err = errors.Join(err, s.shutdown(tr))
	}()

	if err := tr.Reset(runCtx); err != nil {
		if runCtx.Err() != nil {
			log.Printf("Session aborted while preparing %s transport", tr.Kind())
			s.markAborted()
			return nil
		}
		return fmt.Errorf("failed to prepare %s transport: %w", tr.Kind(), err)
	}
	s.setState(StateArmed)

	if err := gate.Wait(runCtx); err != nil {
		if runCtx.Err() != nil || errors.Is(err, context.Canceled) {
			log.Printf("Session aborted before start")
			s.markAborted()
			return nil
		}
		return fmt.Errorf("start confirmation failed: %w", err)
	}

	return s.stream(runCtx, tr)
}

func (s *Scheduler) stream(ctx context.Context, tr transport.Transport) error {
	anchor := s.cfg.Clock.Now()
	timeline := internalsync.NewTimeline(anchor, s.cfg.Interval)
	s.setState(StateStreaming)

	log.Printf("Streaming %d frames every %v over %s (skip %d)",
		s.stats.Total, s.cfg.Interval, tr.Kind(), s.cfg.SkipFrames)

	if s.cfg.OnStart != nil {
		s.cfg.OnStart(anchor)
	}

	buf := make([]byte, 0, 64)
	for i := s.cfg.SkipFrames; i < len(s.frames); i++ {
		rel := i - s.cfg.SkipFrames

		if s.stopped.Load() || ctx.Err() != nil {
			s.markAborted()
			log.Printf("Playback stopped at frame %d", i)
			return nil
		}

		if err := s.cfg.Waiter.WaitUntil(ctx, timeline.Target(rel)); err != nil {
			s.markAborted()
			log.Printf("Playback stopped at frame %d", i)
			return nil
		}

		shaped := s.frames[i]
		if s.cfg.Shaper != nil {
			shaped = s.cfg.Shaper.Shape(shaped)
		}
		buf = s.cfg.Encoder.Append(buf[:0], shaped)

		now := s.cfg.Clock.Now()
		lateness := timeline.Lateness(rel, now)

		if err := tr.Send(buf); err != nil {
			return fmt.Errorf("failed to send frame %d: %w", i, err)
		}

		snap := s.record(shaped, now, lateness, timeline)
		for _, d := range s.cfg.Displays {
			d.Offer(snap)
		}
	}

	log.Printf("Playback complete: %d frames", s.stats.Total)
	return nil
}

// record updates stats for a sent frame and builds its display snapshot
func (s *Scheduler) record(f telemetry.Frame, now time.Time, lateness time.Duration, tl internalsync.Timeline) Snapshot {
	quality := internalsync.Classify(lateness, s.cfg.Tolerance, s.cfg.Interval)

	s.statsMu.Lock()
	if s.stats.Sent == 0 {
		s.firstSend = now
	}
	s.lastSend = now
	s.stats.Sent++
	if lateness > s.stats.MaxLateness {
		s.stats.MaxLateness = lateness
	}
	late := lateness > s.cfg.Tolerance
	if late {
		s.stats.Late++
	}
	s.stats.Quality = quality
	sent, lateCount := s.stats.Sent, s.stats.Late
	s.statsMu.Unlock()

	if sent <= 5 {
		log.Printf("Frame %d sent %v after target", f.Index, lateness)
	}
	if late && lateCount <= lateLogLimit {
		log.Printf("Frame %d late by %v (%s)", f.Index, lateness, quality)
	}

	return Snapshot{
		Frame:    f,
		Sent:     sent,
		Total:    s.stats.Total,
		LogTime:  time.Duration(f.Index) * s.cfg.Window,
		Elapsed:  tl.Elapsed(now),
		Lateness: lateness,
		Quality:  quality,
	}
}

// shutdown sends the neutral frame once and releases the transport
func (s *Scheduler) shutdown(tr transport.Transport) error {
	s.setState(StateDraining)

	var errs []error
	packet := encode.Encode(s.cfg.Encoder, s.cfg.Neutral)
	if err := tr.Send(packet); err != nil {
		log.Printf("Failed to send neutral frame: %v", err)
		errs = append(errs, fmt.Errorf("failed to send neutral frame: %w", err))
	} else {
		log.Printf("Neutral frame sent")
		if s.cfg.NeutralHold > 0 {
			// runs even on abort; the hold is what lets the servos center
			deadline := s.cfg.Clock.Now().Add(s.cfg.NeutralHold)
			if err := s.cfg.Waiter.WaitUntil(context.Background(), deadline); err != nil {
				log.Printf("Neutral hold interrupted: %v", err)
			}
		}
	}

	s.statsMu.Lock()
	s.stats.NeutralSent = len(errs) == 0
	s.statsMu.Unlock()

	if err := tr.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close %s transport: %w", tr.Kind(), err))
	}

	s.setState(StateClosed)
	return errors.Join(errs...)
}

func (s *Scheduler) markAborted() {
	s.statsMu.Lock()
	s.stats.Aborted = true
	s.statsMu.Unlock()
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(st)
	}
}
