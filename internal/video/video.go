// ABOUTME: External video player launch and teardown
// ABOUTME: Starts the player before the stream anchor and kills it on session exit
package video

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"sync"
	"time"
)

// Config describes the player invocation
type Config struct {
	Player       string   // executable name or path
	Path         string   // video file
	Args         []string // extra player flags
	StartupDelay time.Duration
}

// Player is a running video process
type Player struct {
	cmd      *exec.Cmd
	done     chan struct{}
	waitErr  error
	stopOnce sync.Once
}

// Command builds the player command line: player, file, then args
func (c Config) Command() []string {
	argv := make([]string, 0, len(c.Args)+2)
	argv = append(argv, c.Player, c.Path)
	return append(argv, c.Args...)
}

// Launch starts the player and waits out the startup delay so playback
// has begun when the stream anchor is taken.
func Launch(ctx context.Context, cfg Config) (*Player, error) {
	if cfg.Player == "" || cfg.Path == "" {
		return nil, fmt.Errorf("video player and path are required")
	}

	argv := cfg.Command()
	cmd := exec.Command(argv[0], argv[1:]...)
	configureProcess(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start video player: %w", err)
	}
	log.Printf("Video player started (pid %d): %v", cmd.Process.Pid, argv)

	p := &Player{
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	if cfg.StartupDelay > 0 {
		timer := time.NewTimer(cfg.StartupDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-p.done:
			return nil, fmt.Errorf("video player exited during startup: %w", p.exitErr())
		case <-ctx.Done():
			p.Stop()
			return nil, ctx.Err()
		}
	}

	return p, nil
}

// Done is closed when the player process exits
func (p *Player) Done() <-chan struct{} {
	return p.done
}

// Stop kills the player and its children. Errors are logged, not returned.
func (p *Player) Stop() {
	p.stopOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}

		if err := killProcess(p.cmd); err != nil {
			log.Printf("Failed to stop video player: %v", err)
			return
		}

		select {
		case <-p.done:
			log.Printf("Video player stopped")
		case <-time.After(2 * time.Second):
			log.Printf("Video player did not exit after kill")
		}
	})
}

func (p *Player) exitErr() error {
	if p.waitErr == nil {
		return errors.New("exit status 0")
	}
	return p.waitErr
}
