package main

import (
	"fmt"
	"os"

	"github.com/matheus3301/chatsync/internal/daemon"
	"github.com/matheus3301/chatsync/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var profileFlag string

var rootCmd = &cobra.Command{
	Use:   "chatd",
	Short: "Chat sync daemon",
	Long:  "Keeps one profile's chats in sync with the server and serves them to chatctl over a Unix socket.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := session.Resolve(profileFlag)
		if err := session.ValidateName(name); err != nil {
			return err
		}

		app := fx.New(
			daemon.Module(daemon.Params{ProfileName: name}),
			fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
				return &fxevent.ZapLogger{Logger: logger.Named("fx")}
			}),
		)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
