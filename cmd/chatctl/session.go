package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/matheus3301/chatsync/internal/apiv1"
	"github.com/matheus3301/chatsync/internal/client"
	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/credentials"
	"github.com/matheus3301/chatsync/internal/session"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Session.GetStatus(ctx, &apiv1.GetStatusRequest{})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(resp)
			}
			fmt.Printf("Profile:   %s\n", resp.Profile)
			fmt.Printf("User:      %s (%s)\n", resp.UserName, resp.UserID)
			fmt.Printf("State:     %s\n", resp.State)
			if resp.ActiveChat != "" {
				fmt.Printf("Active:    %s\n", resp.ActiveChat)
			}
			fmt.Printf("Uptime:    %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
			fmt.Printf("Chats:     %d\n", resp.ChatCount)
			if resp.QueuedSends > 0 {
				fmt.Printf("Queued:    %d unsent message(s)\n", resp.QueuedSends)
			}
			fmt.Printf("Archived:  %d chats, %d messages\n", resp.ArchivedChatCount, resp.ArchivedMessageCount)
			return nil
		})
	},
}

var reconnectCmd = &cobra.Command{
	Use:   "reconnect",
	Short: "Drop and re-establish the realtime connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Session.Reconnect(ctx, &apiv1.ReconnectRequest{})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(resp)
			}
			fmt.Printf("State: %s\n", resp.State)
			return nil
		})
	},
}

var (
	watchNamespace string
	watchChat      string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream session events until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		stream, err := c.Chat.WatchEvents(ctx, &apiv1.WatchEventsRequest{Namespace: watchNamespace, ChatID: watchChat})
		if err != nil {
			return err
		}
		for {
			evt, err := stream.Recv()
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			if err != nil {
				return err
			}
			if jsonFlag {
				if err := outputJSON(evt); err != nil {
					return err
				}
				continue
			}
			at := time.UnixMilli(evt.OccurredAtUnixMs).Format("15:04:05.000")
			fmt.Printf("%s  %-20s %-10s %s\n", at, evt.Kind, evt.ChatID, evt.Payload)
		}
	},
}

var (
	initAPIURL    string
	initSocketURL string
	initUserID    string
	initUserName  string
	initToken     string
	initDefault   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or update the profile settings and token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := session.Resolve(profileFlag)
		if err := session.ValidateName(name); err != nil {
			return err
		}
		if err := session.EnsureDir(name); err != nil {
			return err
		}

		p := &config.Profile{}
		if existing, err := config.LoadProfile(session.ProfilePath(name)); err == nil {
			p = existing
		}
		if initAPIURL != "" {
			p.APIURL = initAPIURL
		}
		if initSocketURL != "" {
			p.SocketURL = initSocketURL
		}
		if initUserID != "" {
			p.UserID = initUserID
		}
		if initUserName != "" {
			p.UserName = initUserName
		}
		if err := p.WithDefaults().Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		if err := config.SaveProfile(session.ProfilePath(name), p); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}

		if initToken != "" {
			resolved, err := session.LoadProfile(name)
			if err != nil {
				return err
			}
			if err := (credentials.File{Path: resolved.TokenFile}).Write(initToken); err != nil {
				return err
			}
		}
		if initDefault {
			if err := config.Save(session.ConfigPath(), &config.Config{DefaultProfile: name}); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
		}
		fmt.Printf("Profile %q written to %s\n", name, session.ProfilePath(name))
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchNamespace, "kind", "", "event kind prefix (message, chat, conn., session.)")
	watchCmd.Flags().StringVar(&watchChat, "chat", "", "only events of this chat")

	initCmd.Flags().StringVar(&initAPIURL, "api-url", "", "REST base URL")
	initCmd.Flags().StringVar(&initSocketURL, "socket-url", "", "realtime socket URL")
	initCmd.Flags().StringVar(&initUserID, "user-id", "", "signed-in user id")
	initCmd.Flags().StringVar(&initUserName, "user-name", "", "signed-in user display name")
	initCmd.Flags().StringVar(&initToken, "token", "", "bearer token to store in the profile token file")
	initCmd.Flags().BoolVar(&initDefault, "default", false, "make this the default profile")

	rootCmd.AddCommand(statusCmd, reconnectCmd, watchCmd, initCmd)
}
