package client

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/chatsync/internal/apiv1"
)

// DaemonBinary is the executable started by Ensure.
const DaemonBinary = "chatd"

// Probe checks if a daemon is running and responsive on the socket.
func Probe(socketPath string) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}
	c, err := New(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Session.GetStatus(ctx, &apiv1.GetStatusRequest{})
	return err == nil
}

// StartDaemon launches chatd for profile in the background. A chatd next to
// the running executable wins over one on PATH.
func StartDaemon(profile string) error {
	bin := DaemonBinary
	if executable, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(executable), DaemonBinary)
		if _, err := os.Stat(sibling); err == nil {
			bin = sibling
		}
	}

	cmd := exec.Command(bin, "--profile", profile)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// WaitReady polls the daemon with a real gRPC call, not just a socket connect.
func WaitReady(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if Probe(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}

// Ensure returns a client for the profile's daemon, starting one when
// autoStart is set and none answers.
func Ensure(profile, socketPath string, autoStart bool) (*Client, error) {
	if !Probe(socketPath) {
		if !autoStart {
			return nil, fmt.Errorf("daemon not running for profile %q (run %s or pass --start)", profile, DaemonBinary)
		}
		fmt.Fprintf(os.Stderr, "daemon not running for profile %q, starting...\n", profile)
		if err := StartDaemon(profile); err != nil {
			return nil, fmt.Errorf("start daemon: %w", err)
		}
		if !WaitReady(socketPath, 10*time.Second) {
			return nil, fmt.Errorf("daemon did not become ready")
		}
	}
	c, err := New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to daemon for profile %q: %w", profile, err)
	}
	return c, nil
}
