// ABOUTME: WebSocket HUD feed for remote instrument displays
// ABOUTME: Fans shaped frames out to browsers without ever blocking the pacing loop
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mmstac/RC-Cockpit-Simulator/internal/player"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/protocol"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/version"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
)

const (
	sendBuffer    = 100
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Config holds feed settings
type Config struct {
	Addr      string // listen address, e.g. ":8090"
	SessionID string
	RateHz    float64
	Layout    telemetry.Layout // channels included in frame messages
}

// Server broadcasts snapshots to connected displays
type Server struct {
	config   Config
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	httpServer *http.Server
	listener   net.Listener

	clients   map[string]*Client
	clientsMu sync.RWMutex

	box     *player.Mailbox
	dropped atomic.Uint64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Client is one connected display
type Client struct {
	ID       string
	Conn     *websocket.Conn
	sendChan chan []byte
}

// New creates a feed server
func New(config Config) *Server {
	if config.SessionID == "" {
		config.SessionID = uuid.New().String()
	}
	if len(config.Layout) == 0 {
		config.Layout = telemetry.DatagramLayout
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// displays run on the local bench network
				return true
			},
		},
		clients:  make(map[string]*Client),
		box:      player.NewMailbox(),
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc("/feed", s.handleWebSocket)
	return s
}

// Handler exposes the feed endpoints
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured address and starts broadcasting
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = l
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.startBroadcast()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HUD feed server error: %v", err)
		}
	}()

	log.Printf("HUD feed listening on ws://%s/feed (session %s)", l.Addr(), s.config.SessionID)
	return nil
}

// Addr returns the bound listen address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

// Offer implements player.Display
func (s *Server) Offer(snap player.Snapshot) {
	s.box.Offer(snap)
}

// SetState broadcasts a lifecycle transition
func (s *Server) SetState(st player.State) {
	s.broadcast(protocol.TypeState, protocol.State{State: st.String()})
}

// ClientCount returns the number of connected displays
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Dropped returns messages discarded because a display fell behind
func (s *Server) Dropped() uint64 {
	return s.dropped.Load()
}

// Stop closes all connections and the listener
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.box.Close()

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				log.Printf("HUD feed shutdown: %v", err)
			}
		}

		s.clientsMu.Lock()
		for _, c := range s.clients {
			c.Conn.Close()
		}
		s.clientsMu.Unlock()
	})
	s.wg.Wait()
}

func (s *Server) startBroadcast() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			snap, ok := s.box.Next()
			if !ok {
				return
			}
			s.broadcast(protocol.TypeFrame, s.frameMessage(snap))
		}
	}()
}

func (s *Server) frameMessage(snap player.Snapshot) protocol.Frame {
	channels := make(map[string]float64, len(s.config.Layout))
	for _, ch := range s.config.Layout {
		channels[ch.String()] = snap.Frame.Get(ch)
	}

	return protocol.Frame{
		Index:      snap.Frame.Index,
		Sent:       snap.Sent,
		Total:      snap.Total,
		LogTimeMS:  float64(snap.LogTime) / float64(time.Millisecond),
		ElapsedMS:  float64(snap.Elapsed) / float64(time.Millisecond),
		LatenessUS: snap.Lateness.Microseconds(),
		Quality:    snap.Quality.String(),
		Channels:   channels,
	}
}

// broadcast queues msg for every client, dropping it for clients whose
// buffer is full
func (s *Server) broadcast(msgType string, payload interface{}) {
	data, err := json.Marshal(protocol.Message{Type: msgType, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling %s: %v", msgType, err)
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		select {
		case c.sendChan <- data:
		default:
			if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
				log.Printf("HUD client %s falling behind (%d messages dropped)", c.ID, n)
			}
		}
	}
}

// handleWebSocket registers a display and keeps it alive until it leaves
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.stopChan:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	client := &Client{
		ID:       uuid.New().String(),
		Conn:     conn,
		sendChan: make(chan []byte, sendBuffer),
	}

	hello, err := json.Marshal(protocol.Message{
		Type: protocol.TypeHello,
		Payload: protocol.Hello{
			ClientID:  client.ID,
			SessionID: s.config.SessionID,
			RateHz:    s.config.RateHz,
			Channels:  channelNames(s.config.Layout),
			DeviceInfo: protocol.DeviceInfo{
				ProductName:     version.Product,
				Manufacturer:    version.Manufacturer,
				SoftwareVersion: version.Version,
			},
		},
	})
	if err != nil {
		log.Printf("Error marshaling hello: %v", err)
		return
	}
	client.sendChan <- hello

	s.clientsMu.Lock()
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	log.Printf("HUD client connected: %s from %s", client.ID, r.RemoteAddr)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.clientWriter(client)
	}()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()
		close(client.sendChan)
		<-writerDone
		log.Printf("HUD client disconnected: %s", client.ID)
	}()

	// displays do not send anything; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

// clientWriter sends queued messages and keepalive pings
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.sendChan:
			if !ok {
				return
			}
			client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing to HUD client %s: %v", client.ID, err)
				client.Conn.Close()
				// drain until the handler unregisters and closes the channel
				for range client.sendChan {
				}
				return
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				client.Conn.Close()
				for range client.sendChan {
				}
				return
			}
		}
	}
}

func channelNames(layout telemetry.Layout) []string {
	names := make([]string, len(layout))
	for i, ch := range layout {
		names[i] = ch.String()
	}
	return names
}
