// ABOUTME: Session validation and conversion into runtime types
// ABOUTME: Resolves channel names, gap policy and transport kind once, before playback
package config

import (
	"fmt"
	"math"
	"sort"

	"github.com/mmstac/RC-Cockpit-Simulator/internal/transport"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry/resample"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry/shape"
)

// Validate checks the session is playable
func (s Session) Validate() error {
	kind, err := transport.ParseKind(s.Transport.Kind)
	if err != nil {
		return fmt.Errorf("transport.kind: %w", err)
	}
	switch kind {
	case transport.KindSerial:
		if s.Transport.Port == "" {
			return fmt.Errorf("transport.port is required for serial")
		}
		if s.Transport.Baud <= 0 {
			return fmt.Errorf("transport.baud must be > 0")
		}
		if s.Transport.SettleMS < 0 {
			return fmt.Errorf("transport.settle_ms must be >= 0")
		}
	case transport.KindDatagram:
		if s.Transport.Addr == "" && !s.Transport.Discover {
			return fmt.Errorf("transport.addr is required for udp unless discover is set")
		}
	}

	if s.Transport.NeutralHoldMS != nil && *s.Transport.NeutralHoldMS < 0 {
		return fmt.Errorf("transport.neutral_hold_ms must be >= 0")
	}

	if !positive(s.Timing.RateHz) {
		return fmt.Errorf("timing.rate_hz must be > 0")
	}
	if !positive(s.Timing.WindowMS) {
		return fmt.Errorf("timing.window_ms must be > 0")
	}
	if !positive(s.Timing.TimeScale) {
		return fmt.Errorf("timing.time_scale must be > 0")
	}
	if s.Timing.DataOffsetMS < 0 || math.IsNaN(s.Timing.DataOffsetMS) {
		return fmt.Errorf("timing.data_offset_ms must be >= 0")
	}
	if s.Timing.ToleranceMS < 0 {
		return fmt.Errorf("timing.tolerance_ms must be >= 0")
	}
	if _, err := resample.ParseGapPolicy(s.Timing.GapPolicy); err != nil {
		return fmt.Errorf("timing.gap_policy: %w", err)
	}

	if _, err := s.Rules(); err != nil {
		return err
	}
	if _, err := s.NeutralFrame(); err != nil {
		return err
	}

	if s.Video.Path != "" && s.Video.Player == "" {
		return fmt.Errorf("video.player is required when video.path is set")
	}
	if s.Video.StartupDelayMS < 0 {
		return fmt.Errorf("video.startup_delay_ms must be >= 0")
	}
	if s.Cue.Enabled && s.Cue.File == "" && (!positive(s.Cue.FrequencyHz) || s.Cue.DurationMS <= 0) {
		return fmt.Errorf("cue needs a file or a positive frequency_hz and duration_ms")
	}

	return nil
}

// Kind returns the transport kind
func (s Session) Kind() transport.Kind {
	k, _ := transport.ParseKind(s.Transport.Kind)
	return k
}

// Layout returns the wire layout for the configured transport
func (s Session) Layout() telemetry.Layout {
	if s.Kind() == transport.KindDatagram {
		return telemetry.DatagramLayout
	}
	return telemetry.SerialLayout
}

// ResampleOptions builds the resampler options
func (s Session) ResampleOptions() resample.Options {
	gap, _ := resample.ParseGapPolicy(s.Timing.GapPolicy)
	return resample.Options{
		Window:    s.Window(),
		TimeScale: s.Timing.TimeScale,
		Gap:       gap,
	}
}

// Rules resolves the shaping section into per-channel rules
func (s Session) Rules() (map[telemetry.ChannelID]shape.Rule, error) {
	rules := make(map[telemetry.ChannelID]shape.Rule, len(s.Shaping))
	for _, name := range sortedKeys(s.Shaping) {
		ch, err := telemetry.ParseChannel(name)
		if err != nil {
			return nil, fmt.Errorf("shaping: %w", err)
		}

		sc := s.Shaping[name]
		rule := shape.Rule{Offset: sc.Offset}
		if sc.Curve != nil {
			if sc.Curve.Range < 0 {
				return nil, fmt.Errorf("shaping.%s.curve.range must be >= 0", name)
			}
			rule.Curve = &shape.Curve{
				Center: sc.Curve.Center,
				Factor: sc.Curve.Factor,
				Range:  sc.Curve.Range,
			}
		}
		rules[ch] = rule
	}
	return rules, nil
}

// NeutralFrame builds the safe frame sent on shutdown. Unlisted channels are 0.
func (s Session) NeutralFrame() (telemetry.Frame, error) {
	var f telemetry.Frame
	f.Index = -1
	for name, v := range s.Neutral {
		ch, err := telemetry.ParseChannel(name)
		if err != nil {
			return telemetry.Frame{}, fmt.Errorf("neutral: %w", err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return telemetry.Frame{}, fmt.Errorf("neutral.%s must be finite", name)
		}
		f.Values[ch] = v
	}
	return f, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
