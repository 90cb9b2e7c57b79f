// ABOUTME: Response shaping curves for stick and throttle channels
// ABOUTME: Signed quadratic blend around a center point, clamped to the input range
package shape

import (
	"math"

	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
)

// Curve describes a response curve around Center over a span of Range.
// A negative Factor flattens the center and steepens the extremes, a
// positive Factor sharpens center sensitivity.
type Curve struct {
	Center float64
	Factor float64
	Range  float64
}

// Apply shapes a single value. The result is always inside
// [Center-Range/2, Center+Range/2].
func (c Curve) Apply(value float64) float64 {
	half := c.Range / 2
	if half == 0 || math.IsNaN(value) {
		return c.Center
	}

	n := (value - c.Center) / half

	var shaped float64
	if n >= 0 {
		shaped = n*(1-c.Factor) + c.Factor*n*n
	} else {
		shaped = n*(1-c.Factor) - c.Factor*n*n
	}

	out := c.Center + shaped*half

	lo, hi := c.Center-math.Abs(half), c.Center+math.Abs(half)
	return math.Max(lo, math.Min(hi, out))
}

// Rule converts one channel into actuator units: Offset is added first,
// then the optional Curve is applied.
type Rule struct {
	Offset float64
	Curve  *Curve
}

// Apply runs the rule on a value
func (r Rule) Apply(value float64) float64 {
	v := value + r.Offset
	if r.Curve != nil {
		v = r.Curve.Apply(v)
	}
	return v
}

// Shaper applies per-channel rules to whole frames. The zero value passes
// frames through unchanged.
type Shaper struct {
	rules [telemetry.NumChannels]*Rule
}

// New builds a Shaper from a rule set. The map is copied.
func New(rules map[telemetry.ChannelID]Rule) *Shaper {
	s := &Shaper{}
	for ch, r := range rules {
		r := r
		if r.Curve != nil {
			c := *r.Curve
			r.Curve = &c
		}
		s.rules[ch] = &r
	}
	return s
}

// Shape returns a copy of f with every ruled channel transformed
func (s *Shaper) Shape(f telemetry.Frame) telemetry.Frame {
	if s == nil {
		return f
	}
	for ch, r := range s.rules {
		if r != nil {
			f.Values[ch] = r.Apply(f.Values[ch])
		}
	}
	return f
}

// Rule returns the rule registered for a channel, if any
func (s *Shaper) Rule(ch telemetry.ChannelID) (Rule, bool) {
	if s == nil || s.rules[ch] == nil {
		return Rule{}, false
	}
	return *s.rules[ch], true
}
