// Package app assembles the drive client: every component is constructed
// here and handed its dependencies explicitly, and the lifecycle of the
// realtime connection and the upload engine is tied to the session
// identity loaded at startup.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/viktors2008/mediadrive/internal/client/api"
	"github.com/viktors2008/mediadrive/internal/client/cache"
	"github.com/viktors2008/mediadrive/internal/client/config"
	"github.com/viktors2008/mediadrive/internal/client/dashboard"
	"github.com/viktors2008/mediadrive/internal/client/identity"
	"github.com/viktors2008/mediadrive/internal/client/realtime"
	"github.com/viktors2008/mediadrive/internal/client/registry"
	"github.com/viktors2008/mediadrive/internal/client/services"
	"github.com/viktors2008/mediadrive/internal/client/store"
	"github.com/viktors2008/mediadrive/internal/client/uploader"
	"github.com/viktors2008/mediadrive/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config *config.Config
	log    logging.Logger
	who    *identity.Identity

	repos     *store.Repositories
	api       *api.Client
	cache     *cache.FileCache
	registry  *registry.Registry
	dashboard *dashboard.Store
	bridge    *realtime.Bridge
	engine    *uploader.Engine
	media     *services.MediaService
	sessions  *services.SessionService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	who, err := identity.FromToken(cfg.SessionToken)
	if err != nil {
		return nil, fmt.Errorf("resolving identity: %w", err)
	}

	repos, err := store.InitDatabase(ctx, cfg.CacheDSN)
	if err != nil {
		return nil, fmt.Errorf("initializing local cache: %w", err)
	}

	apiClient, err := api.New(api.Config{
		BaseURL:        cfg.APIBaseURL,
		Token:          cfg.SessionToken,
		ProgressBuffer: cfg.ProgressBuffer,
	}, log)
	if err != nil {
		return nil, err
	}

	fileCache := cache.New(repos.Files, log)
	reg := registry.New()
	dash := dashboard.NewStore(apiClient, log)

	bridge := realtime.NewBridge(cfg.RealtimeURL, who, reg, dash, fileCache, log, realtime.Options{})
	engine := uploader.NewEngine(apiClient, reg, dash, bridge, log, uploader.Options{
		CompletedTTL: cfg.CompletedTaskTTL,
		Cache:        fileCache,
	})

	return &App{
		config:    cfg,
		log:       log,
		who:       who,
		repos:     repos,
		api:       apiClient,
		cache:     fileCache,
		registry:  reg,
		dashboard: dash,
		bridge:    bridge,
		engine:    engine,
		media:     services.NewMediaService(apiClient, fileCache, reg, dash, bridge, log),
		sessions:  services.NewSessionService(apiClient, repos.Sessions, repos, fileCache, log),
	}, nil
}

// Run verifies the session, connects the realtime channel, loads the first
// listing page and hands control to the command loop. The realtime
// connection is best-effort; the client stays usable without it.
func (a *App) Run(ctx context.Context) error {
	defer a.Shutdown()

	if err := a.sessions.Verify(ctx); err != nil {
		return fmt.Errorf("verifying session: %w", err)
	}

	if err := a.bridge.Connect(ctx); err != nil {
		a.log.Warn(ctx, "realtime unavailable, continuing without sync", "error", err)
	}

	if err := a.dashboard.Initialize(ctx); err != nil {
		a.log.Warn(ctx, "dashboard unavailable", "error", err)
	}
	if _, err := a.media.LoadPage(ctx); err != nil {
		a.log.Warn(ctx, "loading first page", "error", err)
	}

	a.Root(ctx)
	return nil
}

// Shutdown stops the upload engine, tears the realtime connection down and
// closes the local cache. Safe to call more than once.
func (a *App) Shutdown() {
	a.engine.Close()
	if err := a.bridge.Close(); err != nil {
		a.log.Warn(context.Background(), "closing realtime connection", "error", err)
	}
	if a.repos != nil {
		if err := a.repos.Close(); err != nil {
			a.log.Warn(context.Background(), "closing local cache", "error", err)
		}
		a.repos = nil
	}
}
