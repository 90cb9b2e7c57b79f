// ABOUTME: Telemetry type definitions
// ABOUTME: Defines channel identifiers, raw samples, grid frames and wire layouts
package telemetry

import (
	"fmt"
	"math"
	"time"
)

// ChannelID identifies one telemetry channel. The set is fixed at compile time;
// which channels a deployment actually uses is configuration.
type ChannelID int

const (
	RollCmd ChannelID = iota
	PitchCmd
	YawCmd
	ThrottleCmd
	GyroX
	GyroY
	GyroZ
	Motor0
	Motor1
	Motor2
	Motor3

	// NumChannels is the size of the channel set
	NumChannels = int(Motor3) + 1
)

var channelNames = [NumChannels]string{
	"roll", "pitch", "yaw", "throttle",
	"gyro_x", "gyro_y", "gyro_z",
	"motor0", "motor1", "motor2", "motor3",
}

// String returns the configuration name of the channel
func (c ChannelID) String() string {
	if c < 0 || int(c) >= NumChannels {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// ParseChannel resolves a configuration name to a ChannelID
func ParseChannel(name string) (ChannelID, error) {
	for i, n := range channelNames {
		if n == name {
			return ChannelID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", name)
}

// Values holds one value per channel, indexed by ChannelID
type Values [NumChannels]float64

// Missing returns a Values with every channel marked absent (NaN)
func Missing() Values {
	var v Values
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

// Sample is one raw log record. Time is elapsed source time and must be
// non-decreasing across a sequence; several samples may share a Time.
// A NaN value means the channel was not present in this record.
type Sample struct {
	Time   time.Duration
	Values Values
}

// Frame is one slot of the uniform grid. Index is the 0-based grid position.
// Frames are passed by value and never mutated after creation.
type Frame struct {
	Index  int
	Values Values
}

// Get returns the value of a channel
func (f Frame) Get(c ChannelID) float64 {
	return f.Values[c]
}

// Layout fixes the order and count of channels on the wire
type Layout []ChannelID

var (
	// SerialLayout is the four-field actuator command: roll, pitch, yaw, throttle
	SerialLayout = Layout{RollCmd, PitchCmd, YawCmd, ThrottleCmd}

	// DatagramLayout carries every channel in ChannelID order
	DatagramLayout = Layout{
		RollCmd, PitchCmd, YawCmd, ThrottleCmd,
		GyroX, GyroY, GyroZ,
		Motor0, Motor1, Motor2, Motor3,
	}
)
