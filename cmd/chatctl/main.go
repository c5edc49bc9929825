package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/chatsync/internal/client"
	"github.com/matheus3301/chatsync/internal/session"
	"github.com/spf13/cobra"
)

var (
	profileFlag string
	jsonFlag    bool
	startFlag   bool
	timeoutFlag time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "chatctl",
	Short:         "Control a running chatd",
	Long:          "Command-line client for the chat sync daemon: list chats, read and send messages, search the archive.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&startFlag, "start", false, "start chatd if it is not running")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 10*time.Second, "request timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// dial resolves the profile and connects to its daemon, starting it first
// when --start is set.
func dial() (*client.Client, error) {
	name := session.Resolve(profileFlag)
	if err := session.ValidateName(name); err != nil {
		return nil, err
	}
	return client.Ensure(name, session.SocketPath(name), startFlag)
}

// run dials the daemon and calls fn with a request-scoped context.
func run(fn func(ctx context.Context, c *client.Client) error) error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()
	return fn(ctx, c)
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(unixMs int64) string {
	if unixMs == 0 {
		return "-"
	}
	t := time.UnixMilli(unixMs).Local()
	if time.Since(t) < 24*time.Hour {
		return t.Format("15:04")
	}
	return t.Format("2006-01-02")
}
