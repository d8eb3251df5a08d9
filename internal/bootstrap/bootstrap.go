package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"streamgate-go/internal/domain/eventbus"
	"streamgate-go/internal/domain/issuer"
	issuerstore "streamgate-go/internal/domain/issuer/store"
	"streamgate-go/internal/domain/playlist"
	"streamgate-go/internal/domain/token"
	platformconfig "streamgate-go/internal/platform/config"
	platformerrors "streamgate-go/internal/platform/errors"
	platformlogging "streamgate-go/internal/platform/logging"
	platformstorage "streamgate-go/internal/platform/storage"
	httptransport "streamgate-go/internal/transport/http"
	"streamgate-go/internal/transport/ws"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger
	db         *gorm.DB
	bus        eventbus.Bus
	store      issuerstore.Store
	issuer     *issuer.Service
	manager    *token.Manager
	gateway    *playlist.Gateway
}

// Run drives the whole service lifecycle: configuration, dependency
// initialisation, serving and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}

	defer func() {
		if state.issuer != nil {
			if closeErr := state.issuer.Close(); closeErr != nil {
				logger.ErrorTag("BOOT", "issuer did not close cleanly: %v", closeErr)
			}
		}
		logger.Close()
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	feed, err := ws.NewFeed(state.bus, logger)
	if err != nil {
		cancel()
		return platformerrors.Wrap(
			platformerrors.KindBootstrap, "events:init-feed", "failed to create event feed", err)
	}
	defer feed.Close()

	if err := startHTTPServer(state, feed, group, groupCtx); err != nil {
		cancel()
		return err
	}

	return waitForShutdown(signalCtx, cancel, logger, group)
}

// InitGraph declares the ordered initialisation steps and their dependencies.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"config:load", "logging:init"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "issuer:init",
			Title:     "Initialise token issuer",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initIssuerStep,
		},
		{
			ID:        "gateway:init",
			Title:     "Initialise playlist gateway",
			DependsOn: []string{"issuer:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initGatewayStep,
		},
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap, "execute init steps", "nil bootstrap state")
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap, step.ID, "missing execute function")
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap, "logging:init", "config not loaded")
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(
			platformerrors.KindBootstrap, "logging:init", "failed to initialise logging", err)
	}
	state.logger = logger

	origin := state.configPath
	if origin == "" {
		origin = "defaults"
	}
	logger.InfoTag("BOOT", "logging ready [%s] config=%s", state.config.Log.Level, origin)

	state.bus = eventbus.New()
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	driver := strings.ToLower(strings.TrimSpace(state.config.Store.Driver))
	if driver != issuerstore.DriverSQLite {
		return nil
	}

	dsn := state.config.Store.SQLite.DSN
	if dsn == "" {
		dsn = "streamgate.db"
	}
	db, err := platformstorage.Open(dsn)
	if err != nil {
		return platformerrors.Wrap(
			platformerrors.KindStorage, "storage:init-database", "failed to open database", err)
	}
	state.db = db
	state.logger.InfoTag("BOOT", "sqlite database ready at %s", dsn)
	return nil
}

func initIssuerStep(_ context.Context, state *appState) error {
	cfg := state.config

	storeCfg := issuerstore.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Store.Driver)),
		TTL:    cfg.Store.TTL.Std(),
	}
	switch storeCfg.Driver {
	case issuerstore.DriverRedis:
		if cfg.Store.Redis.Addr == "" {
			return platformerrors.New(
				platformerrors.KindBootstrap, "issuer:init", "redis store addr is required")
		}
		storeCfg.Redis = &issuerstore.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Username: cfg.Store.Redis.Username,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		}
	case issuerstore.DriverSQLite:
		storeCfg.SQLite = &issuerstore.SQLiteConfig{DSN: cfg.Store.SQLite.DSN}
	default:
		storeCfg.Driver = issuerstore.DriverMemory
		storeCfg.Memory = &issuerstore.MemoryConfig{
			GCInterval: cfg.Store.Memory.GCInterval.Std(),
		}
	}

	st, err := issuerstore.New(storeCfg, issuerstore.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return platformerrors.Wrap(
			platformerrors.KindBootstrap, "issuer:init", "failed to create token store", err)
	}
	state.store = st

	secret := cfg.Issuer.Secret
	if secret == "" {
		secret = uuid.NewString()
		state.logger.WarnTag("BOOT",
			"no issuer secret configured, generated an ephemeral one; tokens will not survive restarts")
	}

	svc, err := issuer.NewService(issuer.Options{
		Secret:   secret,
		TTL:      cfg.Issuer.TTL.Std(),
		Audience: cfg.Issuer.Audience,
		Store:    st,
		Logger:   state.logger,
		Bus:      state.bus,
	})
	if err != nil {
		return platformerrors.Wrap(
			platformerrors.KindBootstrap, "issuer:init", "failed to create issuer", err)
	}
	state.issuer = svc
	state.logger.InfoTag("BOOT", "issuer ready, store=%s ttl=%s", storeCfg.Driver, cfg.Issuer.TTL.Std())
	return nil
}

func initGatewayStep(_ context.Context, state *appState) error {
	cfg := state.config

	state.manager = token.NewManager(token.Options{
		Fetcher:          state.issuer.Fetcher("gateway"),
		RefreshThreshold: cfg.Token.RefreshThreshold.Std(),
		Subject:          "gateway",
		Bus:              state.bus,
		Logger:           state.logger,
	})

	gw, err := playlist.NewGateway(playlist.Options{
		Manager:      state.manager,
		AllowedHosts: cfg.Upstream.AllowedHosts,
		Timeout:      cfg.Upstream.Timeout.Std(),
		Logger:       state.logger,
	})
	if err != nil {
		return platformerrors.Wrap(
			platformerrors.KindBootstrap, "gateway:init", "failed to create playlist gateway", err)
	}
	state.gateway = gw
	return nil
}

func startHTTPServer(state *appState, feed *ws.Feed, g *errgroup.Group, groupCtx context.Context) error {
	config := state.config
	logger := state.logger

	router, err := httptransport.Build(httptransport.Options{
		Config:         config,
		Logger:         logger,
		AuthMiddleware: httptransport.APIKeyMiddleware(config.Server.APIKey, logger),
	})
	if err != nil {
		return err
	}

	httptransport.NewService(state.issuer, state.gateway, logger).Register(router)
	router.API.GET("/events", feed.Handle)

	router.Engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httptransport.APIResponse{
			Success: false,
			Data:    gin.H{},
			Message: "not found",
			Code:    http.StatusNotFound,
		})
	})

	httpServer := &http.Server{
		Addr:    config.Server.IP + ":" + strconv.Itoa(config.Server.Port),
		Handler: router.Engine,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on http://%s", httpServer.Addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server shut down cleanly")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "received %v, cleaning up", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return errors.New("shutdown timed out")
	}
	return nil
}
