// ABOUTME: Playback session state machine
// ABOUTME: Idle -> Armed -> Streaming -> Draining -> Closed
package player

import "fmt"

// State is the scheduler lifecycle stage
type State int32

const (
	// StateIdle: constructed, transport not yet prepared
	StateIdle State = iota
	// StateArmed: transport reset, waiting for operator confirmation
	StateArmed
	// StateStreaming: pacing loop running
	StateStreaming
	// StateDraining: loop finished or aborted, neutral frame pending
	StateDraining
	// StateClosed: neutral frame sent and transport released
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
