// ABOUTME: Session configuration loaded from YAML with built-in defaults
// ABOUTME: A validated Session is immutable for the whole playback session
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmstac/RC-Cockpit-Simulator/internal/transport"
)

// DefaultSerialNeutralHold gives the servos time to center before the port
// closes and the board resets
const DefaultSerialNeutralHold = time.Second

// Session is the complete configuration for one playback session
type Session struct {
	Input     string                 `yaml:"input"`    // blackbox CSV path
	LogFile   string                 `yaml:"log_file"` // debug log path
	Transport TransportConfig        `yaml:"transport"`
	Timing    TimingConfig           `yaml:"timing"`
	Shaping   map[string]ShapeConfig `yaml:"shaping"` // keyed by channel name
	Neutral   map[string]float64     `yaml:"neutral"` // keyed by channel name
	Video     VideoConfig            `yaml:"video"`
	HUD       HUDConfig              `yaml:"hud"`
	Cue       CueConfig              `yaml:"cue"`
}

// TransportConfig selects and addresses the output link
type TransportConfig struct {
	Kind             string `yaml:"kind"` // serial, udp
	Port             string `yaml:"port"`
	Baud             int    `yaml:"baud"`
	SettleMS         int    `yaml:"settle_ms"` // wait after opening before clearing buffers
	Addr             string `yaml:"addr"`      // host:port for udp
	Discover         bool   `yaml:"discover"`  // browse mDNS when addr is empty
	DiscoverTimeoutS int    `yaml:"discover_timeout_s"`
	NeutralHoldMS    *int   `yaml:"neutral_hold_ms"` // unset: 1000 for serial, 0 for udp
}

// TimingConfig controls resampling and pacing
type TimingConfig struct {
	RateHz       float64 `yaml:"rate_hz"`
	WindowMS     float64 `yaml:"window_ms"`      // resample bin width in log time
	TimeScale    float64 `yaml:"time_scale"`     // >1 stretches the log (plays longer)
	DataOffsetMS float64 `yaml:"data_offset_ms"` // leading log time skipped to line up with video
	GapPolicy    string  `yaml:"gap_policy"`     // ffill, drop
	ToleranceMS  float64 `yaml:"tolerance_ms"`
}

// ShapeConfig is the per-channel response rule
type ShapeConfig struct {
	Offset float64      `yaml:"offset"`
	Curve  *CurveConfig `yaml:"curve,omitempty"`
}

// CurveConfig is a signed quadratic response curve
type CurveConfig struct {
	Center float64 `yaml:"center"`
	Factor float64 `yaml:"factor"`
	Range  float64 `yaml:"range"`
}

// VideoConfig describes the external video player
type VideoConfig struct {
	Path           string   `yaml:"path"` // empty disables video
	Player         string   `yaml:"player"`
	Args           []string `yaml:"args"`
	StartupDelayMS int      `yaml:"startup_delay_ms"`
}

// HUDConfig controls the live displays
type HUDConfig struct {
	TUI      bool   `yaml:"tui"`
	FeedAddr string `yaml:"feed_addr"` // websocket listen address, empty disables
}

// CueConfig controls the audible start cue
type CueConfig struct {
	Enabled     bool    `yaml:"enabled"`
	File        string  `yaml:"file"` // MP3, empty plays a tone
	FrequencyHz float64 `yaml:"frequency_hz"`
	DurationMS  int     `yaml:"duration_ms"`
}

// Default returns the settings the bench rig was tuned with
func Default() Session {
	return Session{
		LogFile: "rc-cockpit.log",
		Transport: TransportConfig{
			Kind:             "serial",
			Port:             "/dev/ttyACM0",
			Baud:             115200,
			SettleMS:         2000,
			Addr:             "192.168.0.164:8888",
			DiscoverTimeoutS: 3,
		},
		Timing: TimingConfig{
			RateHz:      50,
			WindowMS:    20,
			TimeScale:   1,
			GapPolicy:   "ffill",
			ToleranceMS: 2,
		},
		Shaping: map[string]ShapeConfig{
			"roll":     {Offset: 1500, Curve: &CurveConfig{Center: 1500, Factor: -1.2, Range: 1000}},
			"pitch":    {Offset: 1500, Curve: &CurveConfig{Center: 1500, Factor: -1.2, Range: 1000}},
			"yaw":      {Offset: 1500},
			"throttle": {Curve: &CurveConfig{Center: 1450, Factor: -0.8, Range: 800}},
		},
		Neutral: map[string]float64{
			"roll":     1500,
			"pitch":    1500,
			"yaw":      1500,
			"throttle": 1000,
		},
		Video: VideoConfig{
			Player: "vlc",
			Args:   []string{"--fullscreen", "--no-video-title-show", "--zoom", "0.5", "--no-qt-fs-controller"},
		},
		HUD: HUDConfig{TUI: true},
		Cue: CueConfig{
			FrequencyHz: 880,
			DurationMS:  150,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// The shaping and neutral maps merge per channel: listing a channel
// replaces its default entry, and setting it to null (`roll: ~`) removes it.
func Load(path string) (Session, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Session{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := applyRemovals(data, &cfg); err != nil {
		return Session{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Session{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// removals picks out the map entries a file sets to null
type removals struct {
	Shaping map[string]yaml.Node `yaml:"shaping"`
	Neutral map[string]yaml.Node `yaml:"neutral"`
}

func applyRemovals(data []byte, cfg *Session) error {
	var r removals
	if err := yaml.Unmarshal(data, &r); err != nil {
		return err
	}
	for name, n := range r.Shaping {
		if isNull(n) {
			delete(cfg.Shaping, name)
		}
	}
	for name, n := range r.Neutral {
		if isNull(n) {
			delete(cfg.Neutral, name)
		}
	}
	return nil
}

func isNull(n yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// Interval is the wall time between frames
func (s Session) Interval() time.Duration {
	return time.Duration(float64(time.Second) / s.Timing.RateHz)
}

// Window is the resample bin width in log time
func (s Session) Window() time.Duration {
	return time.Duration(s.Timing.WindowMS * float64(time.Millisecond))
}

// Tolerance is the lateness still counted as on time
func (s Session) Tolerance() time.Duration {
	return time.Duration(s.Timing.ToleranceMS * float64(time.Millisecond))
}

// SkipFrames converts the data offset into whole frames
func (s Session) SkipFrames() int {
	return int(math.Round(s.Timing.DataOffsetMS / s.Timing.WindowMS))
}

// NeutralHold is how long the link stays open after the neutral frame
func (s Session) NeutralHold() time.Duration {
	if s.Transport.NeutralHoldMS != nil {
		return time.Duration(*s.Transport.NeutralHoldMS) * time.Millisecond
	}
	if s.Kind() == transport.KindSerial {
		return DefaultSerialNeutralHold
	}
	return 0
}

// StartupDelay is how long the video player gets before the anchor
func (s Session) StartupDelay() time.Duration {
	return time.Duration(s.Video.StartupDelayMS) * time.Millisecond
}
