package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/chatsync/internal/apiv1"
	"github.com/matheus3301/chatsync/internal/client"
	"github.com/spf13/cobra"
)

var (
	chatsArchived    bool
	chatsLimit       int
	messagesArchived bool
	messagesLimit    int
	searchChat       string
	searchLimit      int
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List chats, most recently active first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Chat.ListChats(ctx, &apiv1.ListChatsRequest{Archived: chatsArchived, Limit: chatsLimit})
			if err != nil {
				return err
			}
			return printChats(resp.Chats)
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload the chat list from the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Chat.RefreshChats(ctx, &apiv1.RefreshChatsRequest{})
			if err != nil {
				return err
			}
			return printChats(resp.Chats)
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start <user-id>",
	Short: "Open a chat with another user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Chat.StartChat(ctx, &apiv1.StartChatRequest{UserID: args[0]})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(resp)
			}
			fmt.Printf("Chat %s with %s\n", resp.Chat.ID, peerName(resp.Chat.Peer))
			return nil
		})
	},
}

var openCmd = &cobra.Command{
	Use:   "open <chat-id>",
	Short: "Make a chat active, load its newest page and mark it read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Message.OpenChat(ctx, &apiv1.OpenChatRequest{ChatID: args[0]})
			if err != nil {
				return err
			}
			return printPage(resp)
		})
	},
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Clear the active chat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client) error {
			_, err := c.Message.CloseChat(ctx, &apiv1.CloseChatRequest{})
			return err
		})
	},
}

var olderCmd = &cobra.Command{
	Use:   "older <chat-id>",
	Short: "Load the next older page of a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Message.LoadOlder(ctx, &apiv1.LoadOlderRequest{ChatID: args[0]})
			if err != nil {
				return err
			}
			return printPage(resp)
		})
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages <chat-id>",
	Short: "Show the messages held for a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Message.ListMessages(ctx, &apiv1.ListMessagesRequest{
				ChatID:   args[0],
				Archived: messagesArchived,
				Limit:    messagesLimit,
			})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(resp)
			}
			printMessages(resp.Messages)
			return nil
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <chat-id> <text>...",
	Short: "Send a text message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Message.SendText(ctx, &apiv1.SendTextRequest{
				ChatID: args[0],
				Text:   strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(resp)
			}
			if resp.Sent {
				fmt.Printf("Sent (%s)\n", resp.Message.ID)
			} else {
				fmt.Printf("Queued locally (%s): not connected\n", resp.Message.ID)
			}
			return nil
		})
	},
}

var readCmd = &cobra.Command{
	Use:   "read <chat-id>",
	Short: "Send read receipts for unread messages of a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Message.MarkRead(ctx, &apiv1.MarkReadRequest{ChatID: args[0]})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(resp)
			}
			fmt.Printf("Acknowledged %d message(s)\n", resp.Acknowledged)
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Full-text search over archived messages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, c *client.Client) error {
			resp, err := c.Message.Search(ctx, &apiv1.SearchRequest{
				Query:  strings.Join(args, " "),
				ChatID: searchChat,
				Limit:  searchLimit,
			})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(resp)
			}
			if len(resp.Results) == 0 {
				fmt.Println("No matches.")
				return nil
			}
			for _, r := range resp.Results {
				fmt.Printf("%-6s %-10s %-12s %s\n",
					formatTime(r.Message.CreatedAtUnixMs), r.Message.ChatID, r.Message.SenderName, r.Snippet)
			}
			return nil
		})
	},
}

func init() {
	chatsCmd.Flags().BoolVar(&chatsArchived, "archived", false, "list chats from the local archive")
	chatsCmd.Flags().IntVar(&chatsLimit, "limit", 0, "maximum number of chats")
	messagesCmd.Flags().BoolVar(&messagesArchived, "archived", false, "read from the local archive")
	messagesCmd.Flags().IntVar(&messagesLimit, "limit", 0, "maximum number of messages")
	searchCmd.Flags().StringVar(&searchChat, "chat", "", "restrict to one chat")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum number of results")

	rootCmd.AddCommand(chatsCmd, refreshCmd, startCmd, openCmd, closeCmd, olderCmd, messagesCmd, sendCmd, readCmd, searchCmd)
}

func printChats(chats []apiv1.Chat) error {
	if jsonFlag {
		return outputJSON(chats)
	}
	if len(chats) == 0 {
		fmt.Println("No chats.")
		return nil
	}
	for _, ch := range chats {
		unread := ""
		if ch.UnreadCount > 0 {
			unread = fmt.Sprintf("(%d)", ch.UnreadCount)
		}
		fmt.Printf("%-12s %-20s %-5s %-6s %s\n",
			ch.ID, peerName(ch.Peer), unread, formatTime(ch.LastMessageAtUnixMs), ch.LastMessagePreview)
	}
	return nil
}

func printPage(resp *apiv1.PageResponse) error {
	if jsonFlag {
		return outputJSON(resp)
	}
	switch {
	case resp.Coalesced:
		fmt.Println("A page load for this chat is already running.")
	case resp.Discarded:
		fmt.Println("Chat changed while loading; page discarded.")
	}
	printMessages(resp.Messages)
	more := "no older messages"
	if resp.HasMore {
		more = "older messages available"
	}
	fmt.Printf("-- page %d, %d new, %s\n", resp.Page, resp.Added, more)
	return nil
}

func printMessages(msgs []apiv1.Message) {
	for _, m := range msgs {
		mark := " "
		if m.Pending {
			mark = "~"
		}
		fmt.Printf("%s %-6s %-12s %s\n", mark, formatTime(m.CreatedAtUnixMs), m.SenderName, m.Content)
	}
}

func peerName(p apiv1.Participant) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}
