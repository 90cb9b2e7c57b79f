// ABOUTME: Telemetry package documentation
// ABOUTME: Core data model shared by the playback pipeline
// Package telemetry defines the data model of the replay pipeline.
//
// Raw log records arrive as Samples keyed by elapsed source time. The
// resample package turns them into Frames on a uniform grid, the shape
// package applies per-channel response curves, and the encode package
// packs frames for a transport using a fixed Layout.
//
// Example:
//
//	frames, err := resample.Resample(samples, resample.Options{
//		Window:    20 * time.Millisecond,
//		TimeScale: 1.0,
//	})
//	enc := encode.NewText(telemetry.SerialLayout)
//	packet := enc.Append(nil, shaper.Shape(frames[0]))
package telemetry
