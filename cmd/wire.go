package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/hms-project/hmsctl/internal/adapters/hmsapi"
	noticesadapter "github.com/hms-project/hmsctl/internal/adapters/render/notices"
	chainstore "github.com/hms-project/hmsctl/internal/adapters/storage/chain"
	filestore "github.com/hms-project/hmsctl/internal/adapters/storage/file"
	passstore "github.com/hms-project/hmsctl/internal/adapters/storage/pass"
	redisstore "github.com/hms-project/hmsctl/internal/adapters/storage/redis"
	tomlstore "github.com/hms-project/hmsctl/internal/adapters/storage/toml"
	"github.com/hms-project/hmsctl/internal/adapters/token/jwtclaims"
	"github.com/hms-project/hmsctl/internal/application"
	"github.com/hms-project/hmsctl/internal/config"
	"github.com/hms-project/hmsctl/internal/domain"
	"github.com/hms-project/hmsctl/internal/ports"
)

type app struct {
	config         config.Config
	logger         *slog.Logger
	store          ports.KeyValueStore
	session        *application.SessionManager
	exclusions     *application.ExclusionStore
	engine         *application.NotificationEngine
	noticeRenderer func([]domain.Notice, noticesadapter.RenderOptions) (string, error)
	decodeToken    application.TokenDecoder
	now            func() time.Time
	closers        []func() error
}

func wireApp(ctx context.Context, logOutput io.Writer) (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	v, err := config.New(homeDir)
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}
	cfg, err := config.Load(v, homeDir)
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: cfg.LogLevel}))

	a := &app{
		config:         cfg,
		logger:         logger,
		noticeRenderer: noticesadapter.Render,
		decodeToken:    jwtclaims.Decode,
		now:            time.Now,
	}

	store, err := a.wireStore(ctx, v)
	if err != nil {
		return nil, err
	}
	a.store = store

	a.session = application.NewSessionManager(store, jwtclaims.Decode, logger.With("component", "session"))
	a.session.Initialize(ctx)
	a.exclusions = application.NewExclusionStore(store, logger.With("component", "exclusions"))

	api := hmsapi.Client{
		BaseURL:        cfg.APIBaseURL,
		HTTPClient:     http.DefaultClient,
		RequestTimeout: cfg.APITimeout,
		Token:          a.session.Token,
		OnUnauthorized: func(ctx context.Context) {
			logger.Warn("backend rejected the session token, signing out")
			a.session.TerminateSession(ctx)
		},
	}
	a.engine = application.NewNotificationEngine(a.session, api, ports.SystemClock{}, logger.With("component", "notices"))

	return a, nil
}

func (a *app) wireStore(ctx context.Context, v *viper.Viper) (ports.KeyValueStore, error) {
	switch a.config.StorageBackend {
	case config.StorageFile:
		return filestore.NewStore(a.config.StorageDir), nil
	case config.StoragePass:
		fallback, err := tomlstore.NewStore(v)
		if err != nil {
			return nil, fmt.Errorf("wire toml store: %w", err)
		}
		store, err := chainstore.NewStoreChecked(passstore.NewStore(a.config.PassPrefix), fallback)
		if err != nil {
			return nil, fmt.Errorf("wire state store chain: %w", err)
		}
		return store, nil
	case config.StorageRedis:
		store, err := redisstore.NewStore(ctx, a.config.RedisURL, a.config.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("wire redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.StorageChain:
		fallback, err := tomlstore.NewStore(v)
		if err != nil {
			return nil, fmt.Errorf("wire toml store: %w", err)
		}
		primary, err := redisstore.NewStore(ctx, a.config.RedisURL, a.config.RedisPrefix)
		if err != nil {
			a.logger.Warn("redis unavailable, using local state only", "error", err)
			return fallback, nil
		}
		a.closers = append(a.closers, primary.Close)
		store, err := chainstore.NewStoreChecked(primary, fallback)
		if err != nil {
			return nil, fmt.Errorf("wire state store chain: %w", err)
		}
		return store, nil
	default:
		store, err := tomlstore.NewStore(v)
		if err != nil {
			return nil, fmt.Errorf("wire toml store: %w", err)
		}
		return store, nil
	}
}

func (a *app) close() {
	if a.engine != nil {
		a.engine.Stop()
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Debug("close resource failed", "error", err)
		}
	}
}
