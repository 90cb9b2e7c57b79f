// ABOUTME: Bench receiver that stands in for the cockpit display device
// ABOUTME: Prints frame datagrams or a session's HUD feed, optionally advertising via mDNS
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mmstac/RC-Cockpit-Simulator/internal/client"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/discovery"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/version"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry/encode"
)

var (
	listen    = flag.String("listen", ":8888", "UDP listen address")
	name      = flag.String("name", "", "mDNS service name (default: hostname-cockpit)")
	noMDNS    = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	textMode  = flag.Bool("text", false, "Expect text command lines instead of binary datagrams")
	every     = flag.Int("every", 10, "Print every nth frame")
	quietFlag = flag.Bool("quiet", false, "Only print the summary")
	feedAddr  = flag.String("feed", "", "Watch a session's HUD feed at host:port instead of listening for datagrams")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *feedAddr != "" {
		if err := watchFeed(ctx, *feedAddr); err != nil {
			log.Fatalf("Feed error: %v", err)
		}
		return
	}

	conn, err := net.ListenPacket("udp", *listen)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", *listen, err)
	}
	defer conn.Close()

	localPort := conn.LocalAddr().(*net.UDPAddr).Port
	log.Printf("Cockpit monitor listening on %s", conn.LocalAddr())

	if !*noMDNS {
		serviceName := *name
		if serviceName == "" {
			hostname, err := os.Hostname()
			if err != nil {
				hostname = "unknown"
			}
			serviceName = fmt.Sprintf("%s-cockpit", hostname)
		}

		mgr := discovery.NewManager(discovery.Config{
			ServiceName: serviceName,
			Port:        localPort,
			Info:        []string{"version=" + version.Version, "fields=" + fmt.Sprint(telemetry.NumChannels)},
		})
		if err := mgr.Advertise(); err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		}
		defer mgr.Stop()
	}

	go func() {
		<-ctx.Done()
		conn.SetReadDeadline(time.Now())
	}()

	var (
		received  int
		malformed int
		first     time.Time
		last      time.Time
	)

	buf := make([]byte, 1500)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			log.Printf("Read error: %v", err)
			continue
		}

		fields, err := decode(buf[:n])
		if err != nil {
			malformed++
			log.Printf("Malformed packet from %s: %v", from, err)
			continue
		}

		now := time.Now()
		if received == 0 {
			first = now
			log.Printf("First frame from %s", from)
		}
		last = now
		received++

		if !*quietFlag && (*every <= 1 || received%*every == 0) {
			log.Printf("#%d %s", received, formatFields(fields))
		}
	}

	log.Printf("Received %d frames, %d malformed", received, malformed)
	if received > 1 {
		span := last.Sub(first)
		log.Printf("Span %v, mean interval %v", span, span/time.Duration(received-1))
	}
}

// watchFeed prints frames and state changes from a running session
func watchFeed(ctx context.Context, addr string) error {
	c := client.NewClient(client.Config{ServerAddr: addr})
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	hello := c.Hello()
	log.Printf("Session %s at %.0f Hz: %s", hello.SessionID, hello.RateHz, strings.Join(hello.Channels, ","))

	frames := 0
	for {
		select {
		case f := <-c.Frames:
			frames++
			if !*quietFlag && (*every <= 1 || frames%*every == 0) {
				log.Printf("FRAME %d/%d log %.3fs late %dus (%s) %v",
					f.Sent, f.Total, f.LogTimeMS/1000, f.LatenessUS, f.Quality, f.Channels)
			}
		case st := <-c.States:
			log.Printf("Session state: %s", st.State)
		case <-c.Done():
			log.Printf("Feed closed after %d frames", frames)
			return nil
		case <-ctx.Done():
			log.Printf("Stopped after %d frames", frames)
			return nil
		}
	}
}

func decode(packet []byte) ([]int32, error) {
	if *textMode {
		return encode.ParseText(packet, len(telemetry.SerialLayout))
	}
	return encode.DecodeBinary(packet, len(telemetry.DatagramLayout))
}

func formatFields(fields []int32) string {
	layout := telemetry.DatagramLayout
	if len(fields) == len(telemetry.SerialLayout) {
		layout = telemetry.SerialLayout
	}

	parts := make([]string, len(fields))
	for i, v := range fields {
		parts[i] = fmt.Sprintf("%s=%d", layout[i], v)
	}
	return strings.Join(parts, " ")
}
