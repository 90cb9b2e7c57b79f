// ABOUTME: WebSocket client for the HUD feed
// ABOUTME: Connects to a running session, waits for hello and routes frame and state messages
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmstac/RC-Cockpit-Simulator/internal/protocol"
)

const helloTimeout = 5 * time.Second

// ErrUnexpectedHello means the first message was not a feed hello
var ErrUnexpectedHello = errors.New("unexpected first message")

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Config holds client configuration
type Config struct {
	ServerAddr string // host:port of the feed
	Path       string // defaults to /feed
}

// Client is a connected feed display
type Client struct {
	config Config
	conn   *websocket.Conn
	hello  protocol.Hello
	mu     sync.RWMutex

	// Message channels
	Frames chan protocol.Frame
	States chan protocol.State

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewClient creates a feed client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = "/feed"
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		Frames: make(chan protocol.Frame, 100),
		States: make(chan protocol.State, 10),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Connect dials the feed and reads its hello
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()
	return nil
}

// Hello returns the session description received on connect
func (c *Client) Hello() protocol.Hello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hello
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) handshake() error {
	c.conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var hello protocol.Hello
	msgType, err := decode(data, &hello)
	if err != nil {
		return err
	}
	if msgType != protocol.TypeHello {
		return fmt.Errorf("%w: %s", ErrUnexpectedHello, msgType)
	}

	c.mu.Lock()
	c.hello = hello
	c.mu.Unlock()

	log.Printf("Joined session %s as %s (%.0f Hz, %d channels)",
		hello.SessionID, hello.ClientID, hello.RateHz, len(hello.Channels))
	return nil
}

// readMessages routes incoming messages until the connection drops
func (c *Client) readMessages() {
	defer close(c.done)
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				log.Printf("Read error: %v", err)
			}
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("Failed to parse feed message: %v", err)
		return
	}

	switch env.Type {
	case protocol.TypeFrame:
		var f protocol.Frame
		if err := json.Unmarshal(env.Payload, &f); err != nil {
			log.Printf("Bad frame payload: %v", err)
			return
		}
		// newest frames matter; drop when the reader is behind
		select {
		case c.Frames <- f:
		default:
		}

	case protocol.TypeState:
		var st protocol.State
		if err := json.Unmarshal(env.Payload, &st); err != nil {
			log.Printf("Bad state payload: %v", err)
			return
		}
		select {
		case c.States <- st:
		case <-c.ctx.Done():
		}

	default:
		log.Printf("Unknown message type: %s", env.Type)
	}
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func decode(data []byte, payload interface{}) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("failed to parse message: %w", err)
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return env.Type, fmt.Errorf("failed to parse %s payload: %w", env.Type, err)
	}
	return env.Type, nil
}
