// ABOUTME: Timing quality classification for the pacing loop
// ABOUTME: Turns per-frame lateness into a Good/Degraded/Lost signal
package sync

import "time"

// Quality represents pacing quality
type Quality int

const (
	QualityGood Quality = iota
	QualityDegraded
	QualityLost
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityDegraded:
		return "degraded"
	default:
		return "lost"
	}
}

// Classify rates a frame's lateness against the tolerance. Frames within
// tolerance are Good; frames up to one full interval late are Degraded
// (still caught up without skipping); anything later is Lost.
func Classify(lateness, tolerance, interval time.Duration) Quality {
	switch {
	case lateness <= tolerance:
		return QualityGood
	case lateness <= interval:
		return QualityDegraded
	default:
		return QualityLost
	}
}
