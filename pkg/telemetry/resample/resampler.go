// ABOUTME: Window-mean resampler for irregular telemetry logs
// ABOUTME: Bins raw samples onto a uniform frame grid with an explicit gap policy
package resample

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
)

var (
	// ErrNoSamples is returned when there is nothing to resample
	ErrNoSamples = errors.New("no samples")

	// ErrNonMonotonic is returned when sample time goes backwards
	ErrNonMonotonic = errors.New("sample time is not monotonic")

	// ErrInvalidOptions is returned for a non-positive window or time scale
	ErrInvalidOptions = errors.New("invalid resample options")
)

// GapPolicy decides what happens to a grid window with no samples
type GapPolicy int

const (
	// GapForwardFill repeats the previous frame's values into empty windows,
	// so frame i always covers [i*Window, (i+1)*Window) of scaled log time.
	GapForwardFill GapPolicy = iota

	// GapDrop omits empty windows and renumbers the remaining frames.
	GapDrop
)

func (g GapPolicy) String() string {
	switch g {
	case GapForwardFill:
		return "ffill"
	case GapDrop:
		return "drop"
	default:
		return fmt.Sprintf("GapPolicy(%d)", int(g))
	}
}

// ParseGapPolicy parses "ffill" or "drop"; empty means ffill
func ParseGapPolicy(s string) (GapPolicy, error) {
	switch s {
	case "", "ffill", "forward-fill":
		return GapForwardFill, nil
	case "drop":
		return GapDrop, nil
	}
	return 0, fmt.Errorf("unknown gap policy %q", s)
}

// Options controls resampling
type Options struct {
	// Window is the grid interval
	Window time.Duration

	// TimeScale multiplies elapsed log time before binning
	TimeScale float64

	// Gap selects the empty-window policy
	Gap GapPolicy
}

func (o Options) validate() error {
	if o.Window <= 0 {
		return fmt.Errorf("%w: window %v", ErrInvalidOptions, o.Window)
	}
	if !(o.TimeScale > 0) || math.IsInf(o.TimeScale, 0) {
		return fmt.Errorf("%w: time scale %v", ErrInvalidOptions, o.TimeScale)
	}
	if o.Gap != GapForwardFill && o.Gap != GapDrop {
		return fmt.Errorf("%w: gap policy %v", ErrInvalidOptions, o.Gap)
	}
	return nil
}

// BinIndex returns the grid window a sample time falls into, relative to origin
func (o Options) BinIndex(t, origin time.Duration) int64 {
	elapsed := float64(t-origin) * o.TimeScale
	return int64(math.Floor(elapsed / float64(o.Window)))
}

// accumulator sums one window
type accumulator struct {
	sum   telemetry.Values
	count [telemetry.NumChannels]int
}

func (a *accumulator) add(v telemetry.Values) {
	for ch, x := range v {
		if math.IsNaN(x) {
			continue
		}
		a.sum[ch] += x
		a.count[ch]++
	}
}

// mean returns per-channel means, falling back to prev for channels that
// had no values in this window
func (a *accumulator) mean(prev telemetry.Values) telemetry.Values {
	var out telemetry.Values
	for ch := range out {
		if a.count[ch] > 0 {
			out[ch] = a.sum[ch] / float64(a.count[ch])
		} else {
			out[ch] = prev[ch]
		}
	}
	return out
}

// Resample converts an ordered sample sequence into contiguous grid frames.
// The origin is the first sample's time. Each frame holds the arithmetic
// mean of every sample whose scaled elapsed time falls inside its window.
func Resample(samples []telemetry.Sample, opts Options) ([]telemetry.Frame, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	origin := samples[0].Time
	last := opts.BinIndex(samples[len(samples)-1].Time, origin)

	capacity := len(samples)
	if opts.Gap == GapForwardFill && last >= 0 && last < int64(math.MaxInt32) {
		capacity = int(last) + 1
	}
	frames := make([]telemetry.Frame, 0, capacity)

	var (
		acc     accumulator
		prev    telemetry.Values
		curBin  = int64(0)
		prevT   = origin
		pending bool
	)

	emit := func(v telemetry.Values) {
		frames = append(frames, telemetry.Frame{Index: len(frames), Values: v})
		prev = v
	}

	for i, s := range samples {
		if s.Time < prevT {
			return nil, fmt.Errorf("%w: sample %d at %v precedes %v", ErrNonMonotonic, i, s.Time, prevT)
		}
		prevT = s.Time

		bin := opts.BinIndex(s.Time, origin)
		if bin != curBin {
			if pending {
				emit(acc.mean(prev))
			}
			if opts.Gap == GapForwardFill {
				for gap := curBin + 1; gap < bin; gap++ {
					emit(prev)
				}
			}
			acc = accumulator{}
			curBin = bin
		}

		acc.add(s.Values)
		pending = true
	}

	if pending {
		emit(acc.mean(prev))
	}

	return frames, nil
}
