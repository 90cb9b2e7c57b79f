// ABOUTME: Entry point for the RC cockpit simulator
// ABOUTME: Parses CLI flags over the YAML config and runs one playback session
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmstac/RC-Cockpit-Simulator/internal/app"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/config"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/transport"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/version"
)

var (
	configPath  = flag.String("config", "", "YAML session config (defaults are used when empty)")
	input       = flag.String("input", "", "Blackbox CSV log to play")
	logFile     = flag.String("log-file", "", "Log file path (default from config)")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, print progress lines instead")
	kind        = flag.String("transport", "", "Output link: serial or udp")
	port        = flag.String("port", "", "Serial port")
	baud        = flag.Int("baud", 0, "Serial baud rate")
	addr        = flag.String("addr", "", "UDP receiver host:port")
	discover    = flag.Bool("discover", false, "Find the UDP receiver via mDNS")
	rate        = flag.Float64("rate", 0, "Playback rate in frames per second")
	offset      = flag.Float64("offset", -1, "Data offset in milliseconds to line up with video")
	videoPath   = flag.String("video", "", "Video file to play alongside the data")
	feedAddr    = flag.String("feed", "", "Listen address for the websocket HUD feed, e.g. :8090")
	cueFlag     = flag.Bool("cue", false, "Play an audible cue when streaming starts")
	listPorts   = flag.Bool("list-ports", false, "List serial ports and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *listPorts {
		ports, err := transport.ListPorts()
		if err != nil {
			log.Fatalf("Failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	applyFlags(&cfg)

	if cfg.Input == "" {
		log.Fatalf("No input log: pass -input or set input in the config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Set up logging
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if cfg.HUD.TUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s", version.String())
	log.Printf("Logging to: %s", cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := app.New(cfg, os.Stdin, os.Stdout)
	if err := session.Run(ctx); err != nil {
		log.Printf("Session %s failed: %v", session.ID(), err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		_ = f.Close()
		os.Exit(1)
	}
}

// applyFlags overlays explicitly set flags onto the loaded config
func applyFlags(cfg *config.Session) {
	if *input != "" {
		cfg.Input = *input
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if *noTUI {
		cfg.HUD.TUI = false
	}
	if *kind != "" {
		cfg.Transport.Kind = *kind
	}
	if *port != "" {
		cfg.Transport.Port = *port
	}
	if *baud > 0 {
		cfg.Transport.Baud = *baud
	}
	if *addr != "" {
		cfg.Transport.Addr = *addr
	}
	if *discover {
		cfg.Transport.Discover = true
	}
	if *rate > 0 {
		cfg.Timing.RateHz = *rate
	}
	if *offset >= 0 {
		cfg.Timing.DataOffsetMS = *offset
	}
	if *videoPath != "" {
		cfg.Video.Path = *videoPath
	}
	if *feedAddr != "" {
		cfg.HUD.FeedAddr = *feedAddr
	}
	if *cueFlag {
		cfg.Cue.Enabled = true
	}
}
