package daemon

import (
	"context"
	"errors"

	"github.com/matheus3301/chatsync/internal/api"
	"github.com/matheus3301/chatsync/internal/archive"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/conn"
	"github.com/matheus3301/chatsync/internal/credentials"
	"github.com/matheus3301/chatsync/internal/lock"
	"github.com/matheus3301/chatsync/internal/logging"
	"github.com/matheus3301/chatsync/internal/pagination"
	"github.com/matheus3301/chatsync/internal/receipts"
	"github.com/matheus3301/chatsync/internal/rest"
	"github.com/matheus3301/chatsync/internal/session"
	"github.com/matheus3301/chatsync/internal/status"
	"github.com/matheus3301/chatsync/internal/store"
	intsync "github.com/matheus3301/chatsync/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string // optional override for testing; empty = use default
	// Settings replaces profile.toml when set. Defaults are still applied.
	Settings *config.Profile
	// Logger replaces the file logger when set.
	Logger *zap.Logger
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideSettings,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideArchive,
			provideRecorder,
			provideTokens,
			provideRESTClient,
			provideStore,
			provideConnManager,
			providePages,
			provideTracker,
			provideEngine,
			provideSessionService,
			provideChatService,
			provideMessageService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideSettings(p Params) (config.Profile, error) {
	if p.Settings != nil {
		s := p.Settings.WithDefaults()
		return s, s.Validate()
	}
	return session.LoadProfile(p.ProfileName)
}

func provideLogger(p Params, s config.Profile) (*zap.Logger, error) {
	if p.Logger != nil {
		return p.Logger, nil
	}
	return logging.New(session.LogPath(p.ProfileName), p.ProfileName, s.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(session.Dir(p.ProfileName), p.ProfileName)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideArchive(p Params, logger *zap.Logger) (*archive.DB, error) {
	path := session.ArchiveDBPath(p.ProfileName)
	db, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("archive initialized", zap.String("path", path))
	return db, nil
}

func provideRecorder(db *archive.DB, b *bus.Bus, logger *zap.Logger) *archive.Recorder {
	return archive.NewRecorder(db, b, logger.Named("archive"))
}

func provideTokens(s config.Profile) credentials.TokenSource {
	return credentials.File{Path: s.TokenFile}
}

func provideRESTClient(s config.Profile, tokens credentials.TokenSource, logger *zap.Logger) *rest.Client {
	return rest.NewClient(s.APIURL, tokens, nil, logger.Named("rest"))
}

func provideStore(client *rest.Client, b *bus.Bus, logger *zap.Logger) *store.Store {
	return store.New(client, b, logger.Named("store"))
}

func provideConnManager(s config.Profile, m *status.Machine, b *bus.Bus, logger *zap.Logger) *conn.Manager {
	return conn.NewManager(
		&conn.WebsocketDialer{URL: s.SocketURL},
		conn.Config{
			MaxRetries:       s.ReconnectAttempts,
			RetryDelay:       s.ReconnectDelay.Duration,
			HandshakeTimeout: s.HandshakeTimeout.Duration,
		},
		m, b, logger.Named("conn"),
	)
}

func providePages(client *rest.Client, st *store.Store, s config.Profile, logger *zap.Logger) *pagination.Controller {
	return pagination.NewController(client, st, s.PageSize, logger.Named("pages"))
}

func provideTracker(cm *conn.Manager, st *store.Store, s config.Profile, logger *zap.Logger) *receipts.Tracker {
	return receipts.NewTracker(cm, st, s.UserID, logger.Named("receipts"))
}

func provideEngine(
	s config.Profile,
	cm *conn.Manager,
	tokens credentials.TokenSource,
	client *rest.Client,
	st *store.Store,
	pages *pagination.Controller,
	tracker *receipts.Tracker,
	b *bus.Bus,
	logger *zap.Logger,
) *intsync.Engine {
	user := store.Participant{ID: s.UserID, Name: s.UserName}
	return intsync.NewEngine(user, cm, tokens, client, st, pages, tracker, b, logger.Named("engine"))
}

func provideSessionService(p Params, engine *intsync.Engine, db *archive.DB) *api.SessionService {
	return api.NewSessionService(p.ProfileName, engine, db)
}

func provideChatService(p Params, engine *intsync.Engine, db *archive.DB, b *bus.Bus) *api.ChatService {
	return api.NewChatService(engine, db, b, p.ProfileName)
}

func provideMessageService(engine *intsync.Engine, db *archive.DB) *api.MessageService {
	return api.NewMessageService(engine, db)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *archive.DB, recorder *archive.Recorder, engine *intsync.Engine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// The recorder subscribes first so the initial chat load is archived.
			recorder.Start(context.Background())

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			// A missing token keeps the daemon up: status stays reachable and
			// the session.unauthorized event has been published.
			if err := engine.Start(context.Background()); err != nil {
				if errors.Is(err, credentials.ErrEmptyToken) {
					logger.Warn("token file is empty, sign in and reconnect")
				} else {
					logger.Error("engine start failed", zap.Error(err))
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			engine.Stop()
			srv.Stop(ctx)
			recorder.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing archive", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
