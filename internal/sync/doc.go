// ABOUTME: Playback timing package
// ABOUTME: Anchored timeline, hybrid waiter and timing quality
// Package sync provides the timing primitives of the pacing loop.
//
// A Timeline is anchored once at stream start; every frame's target is a
// pure multiple of the interval from that anchor, so scheduling error
// never compounds. HybridWaiter reaches each target with sub-millisecond
// precision by sleeping coarsely and spinning for the last stretch.
//
// Example:
//
//	tl := sync.NewTimeline(time.Now(), 20*time.Millisecond)
//	w := sync.NewHybridWaiter()
//	err := w.WaitUntil(ctx, tl.Target(i))
package sync
