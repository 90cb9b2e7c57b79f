// ABOUTME: Telemetry resampling package
// ABOUTME: Converts irregular log samples to a uniform frame grid
// Package resample converts irregularly timed telemetry samples into
// frames on a uniform grid.
//
// Every frame is the per-channel mean of the samples in its window. The
// first sample defines the time origin; TimeScale stretches elapsed log
// time before binning to match an external timeline such as a video.
//
// Empty windows follow the GapPolicy in Options. GapForwardFill (default)
// keeps the grid aligned with log time by repeating the previous frame;
// GapDrop removes them and renumbers. Indices are contiguous from 0 either way.
//
// Example:
//
//	frames, err := resample.Resample(samples, resample.Options{
//		Window:    20 * time.Millisecond,
//		TimeScale: 1.003,
//	})
package resample
