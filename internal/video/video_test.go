//go:build !windows

// ABOUTME: Tests for the video player launcher
// ABOUTME: Uses sleep and true as stand-in players
package video

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestCommand(t *testing.T) {
	cfg := Config{
		Player: "vlc",
		Path:   "flight.mp4",
		Args:   []string{"--fullscreen", "--zoom", "0.5"},
	}

	want := []string{"vlc", "flight.mp4", "--fullscreen", "--zoom", "0.5"}
	if got := cfg.Command(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestLaunchAndStop(t *testing.T) {
	p, err := Launch(context.Background(), Config{
		Player:       "sleep",
		Path:         "30",
		StartupDelay: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	p.Stop()

	select {
	case <-p.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("player still running after Stop")
	}

	// second stop is a no-op
	p.Stop()
}

func TestLaunchDetectsEarlyExit(t *testing.T) {
	_, err := Launch(context.Background(), Config{
		Player:       "true",
		Path:         "ignored",
		StartupDelay: time.Second,
	})
	if err == nil {
		t.Fatal("expected error when the player exits during startup")
	}
}

func TestLaunchValidation(t *testing.T) {
	if _, err := Launch(context.Background(), Config{Player: "vlc"}); err == nil {
		t.Error("expected error without a video path")
	}
	if _, err := Launch(context.Background(), Config{Player: "/nonexistent/player", Path: "x"}); err == nil {
		t.Error("expected error for a missing executable")
	}
}

func TestLaunchCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Launch(ctx, Config{
		Player:       "sleep",
		Path:         "30",
		StartupDelay: 5 * time.Second,
	})
	if err == nil {
		t.Fatal("expected context error")
	}
}
