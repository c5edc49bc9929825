package main

import (
	"fmt"
	"os"

	"github.com/matheus3301/chatsync/internal/client"
	"github.com/matheus3301/chatsync/internal/session"
	"github.com/matheus3301/chatsync/internal/tui"
	"github.com/spf13/cobra"
)

var (
	profileFlag string
	startFlag   bool
)

var rootCmd = &cobra.Command{
	Use:           "chattui",
	Short:         "Terminal chat client for chatd",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := session.Resolve(profileFlag)
		if err := session.ValidateName(name); err != nil {
			return err
		}

		c, err := client.Ensure(name, session.SocketPath(name), startFlag)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		return tui.NewApp(c, name).Run()
	},
}

func main() {
	rootCmd.Flags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.Flags().BoolVar(&startFlag, "start", true, "start chatd if it is not running")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
