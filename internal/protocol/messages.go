// ABOUTME: HUD feed message definitions
// ABOUTME: JSON envelopes pushed to remote instrument displays over WebSocket
package protocol

// Message is the top-level wrapper for all feed messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Message types
const (
	TypeHello = "feed/hello"
	TypeFrame = "feed/frame"
	TypeState = "feed/state"
)

// Hello is sent once when a display connects
type Hello struct {
	ClientID   string     `json:"client_id"`
	SessionID  string     `json:"session_id"`
	RateHz     float64    `json:"rate_hz"`
	Channels   []string   `json:"channels"`
	DeviceInfo DeviceInfo `json:"device_info"`
}

// DeviceInfo identifies the simulator build
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// Frame carries one shaped frame and its pacing figures
type Frame struct {
	Index      int                `json:"index"`
	Sent       int                `json:"sent"`
	Total      int                `json:"total"`
	LogTimeMS  float64            `json:"log_time_ms"`
	ElapsedMS  float64            `json:"elapsed_ms"`
	LatenessUS int64              `json:"lateness_us"`
	Quality    string             `json:"quality"`
	Channels   map[string]float64 `json:"channels"`
}

// State reports a session lifecycle transition
type State struct {
	State string `json:"state"`
}
