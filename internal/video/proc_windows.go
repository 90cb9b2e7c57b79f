//go:build windows

// ABOUTME: Windows process handling for the video player
// ABOUTME: Uses taskkill so the player's child processes go too
package video

import (
	"os/exec"
	"strconv"
)

func configureProcess(cmd *exec.Cmd) {}

func killProcess(cmd *exec.Cmd) error {
	return exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(cmd.Process.Pid)).Run()
}
