// ABOUTME: Response shaping package
// ABOUTME: Per-channel offsets and expo-style curves
// Package shape applies deterministic response curves to telemetry channels.
//
// The curve normalizes a value to [-1, 1] around its center, blends the
// linear term with a signed square, rescales and clamps:
//
//	n  = (v - center) / (range/2)
//	s  = n(1-f) + f·n²   (n ≥ 0)
//	s  = n(1-f) - f·n²   (n < 0)
//	v' = clamp(center + s·range/2)
//
// Example:
//
//	roll := shape.Curve{Center: 1500, Factor: -1.2, Range: 1000}
//	pwm := roll.Apply(1750)
package shape
