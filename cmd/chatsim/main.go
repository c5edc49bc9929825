package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/matheus3301/chatsync/internal/devserver"
	"github.com/matheus3301/chatsync/internal/logging"
	"github.com/matheus3301/chatsync/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	addrFlag     string
	usersFlag    []string
	logLevelFlag string
	seedFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "chatsim",
	Short: "Run an in-memory chat backend",
	Long: `Serves the REST and realtime socket protocol from memory so chatd can be
exercised without a real backend. Users are given as token=id:name.`,
	Args:         cobra.NoArgs,
	RunE:         runSim,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&addrFlag, "addr", ":8080", "listen address")
	rootCmd.Flags().StringSliceVar(&usersFlag, "user", []string{"ana-token=u1:Ana", "bruno-token=u2:Bruno"}, "user as token=id:name (repeatable)")
	rootCmd.Flags().StringVar(&logLevelFlag, "log-level", "info", "log level")
	rootCmd.Flags().BoolVar(&seedFlag, "seed", true, "open a chat between the first two users")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runSim(cmd *cobra.Command, args []string) error {
	logger, err := logging.NewConsole(logLevelFlag)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	backend := devserver.New(logger)
	var users []store.Participant
	for _, spec := range usersFlag {
		token, p, err := parseUser(spec)
		if err != nil {
			return err
		}
		backend.AddUser(token, p)
		users = append(users, p)
		logger.Info("user registered", zap.String("user_id", p.ID), zap.String("name", p.Name))
	}
	if seedFlag && len(users) >= 2 {
		chat := backend.SeedChat(users[0], users[1])
		logger.Info("chat seeded", zap.String("chat_id", chat.ID))
	}

	srv := &http.Server{
		Addr:              addrFlag,
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("chatsim listening", zap.String("addr", addrFlag))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("chatsim shutting down", zap.Int("sockets_closed", backend.DropConnections()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseUser(spec string) (string, store.Participant, error) {
	token, rest, ok := strings.Cut(spec, "=")
	if !ok || token == "" {
		return "", store.Participant{}, fmt.Errorf("user %q: want token=id:name", spec)
	}
	id, name, _ := strings.Cut(rest, ":")
	if id == "" {
		return "", store.Participant{}, fmt.Errorf("user %q: missing id", spec)
	}
	if name == "" {
		name = id
	}
	return token, store.Participant{ID: id, Name: name}, nil
}
