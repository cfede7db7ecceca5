package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql (goose)
	"github.com/pressly/goose/v3"
	"golang.org/x/sync/errgroup"

	"github.com/substratehq/substrate/internal/adapter/postgres"
	auditrepo "github.com/substratehq/substrate/internal/adapter/postgres/audit"
	moduledefrepo "github.com/substratehq/substrate/internal/adapter/postgres/moduledef"
	objectrepo "github.com/substratehq/substrate/internal/adapter/postgres/object"
	objecttyperepo "github.com/substratehq/substrate/internal/adapter/postgres/objecttype"
	relationrepo "github.com/substratehq/substrate/internal/adapter/postgres/relation"
	timelinerepo "github.com/substratehq/substrate/internal/adapter/postgres/timeline"
	"github.com/substratehq/substrate/internal/audit"
	"github.com/substratehq/substrate/internal/auth"
	"github.com/substratehq/substrate/internal/config"
	"github.com/substratehq/substrate/internal/processor"
	"github.com/substratehq/substrate/internal/schema"
	"github.com/substratehq/substrate/internal/service/marketplace"
	"github.com/substratehq/substrate/internal/service/moduledef"
	"github.com/substratehq/substrate/internal/service/object"
	"github.com/substratehq/substrate/internal/service/objecttype"
	"github.com/substratehq/substrate/internal/service/relation"
	"github.com/substratehq/substrate/internal/service/timeline"
	"github.com/substratehq/substrate/internal/transport/middleware"
	"github.com/substratehq/substrate/internal/transport/rest"
	"github.com/substratehq/substrate/migrations"
)

// Run is the application entry point. It loads configuration, connects to
// the database, applies migrations, wires repositories, services, and the
// HTTP server, then blocks until the process receives a shutdown signal.
func Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting substrate",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	if cfg.Database.Migrate {
		if err := runMigrations(ctx, cfg.Database.DSN); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("migrations applied")
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	// Repositories.
	moduleRepo := moduledefrepo.New(pool)
	typeRepo := objecttyperepo.New(pool)
	objRepo := objectrepo.New(pool)
	relRepo := relationrepo.New(pool)
	tlRepo := timelinerepo.New(pool)
	auditRepo := auditrepo.New(pool)
	txm := postgres.NewTxManager(pool)

	// Audit records are written asynchronously; Stop drains the queue.
	dispatcher := audit.NewDispatcher(auditRepo, logger, cfg.Engine.AuditQueueSize)
	defer dispatcher.Stop()

	schemas := schema.NewCache()

	registry := processor.NewRegistry()
	for _, p := range []processor.Processor{
		processor.NewRevenue(),
		processor.NewTicket(),
		processor.NewHealth(),
	} {
		if err := registry.Register(p); err != nil {
			return fmt.Errorf("register processor: %w", err)
		}
	}

	// Services.
	moduleSvc := moduledef.NewService(logger, moduleRepo, dispatcher)
	typeSvc := objecttype.NewService(logger, typeRepo, moduleRepo, relRepo, txm, dispatcher)
	objectSvc := object.NewService(logger, objRepo, typeRepo, moduleRepo, tlRepo,
		schemas, nil, registry, txm, dispatcher, cfg.Engine.ProcessorTimeout)
	relationSvc := relation.NewService(logger, relRepo, objRepo, typeRepo, tlRepo, dispatcher)
	timelineSvc := timeline.NewService(logger, tlRepo, objRepo)
	marketSvc := marketplace.NewService(logger, objRepo, typeRepo, moduleRepo, relRepo,
		schemas, txm, dispatcher)

	jwtMgr := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)

	mux := rest.NewRouter(rest.Handlers{
		Health:      rest.NewHealthHandler(pool, BuildVersion()),
		Modules:     rest.NewModuleHandler(moduleSvc, logger),
		Types:       rest.NewTypeHandler(typeSvc, logger),
		Objects:     rest.NewObjectHandler(objectSvc, logger),
		Relations:   rest.NewRelationHandler(relationSvc, logger),
		Timeline:    rest.NewTimelineHandler(timelineSvc, logger),
		Marketplace: rest.NewMarketplaceHandler(marketSvc, logger),
	})

	mws := []middleware.Middleware{
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
		middleware.Auth(jwtMgr),
	}

	if cfg.Server.RateLimitPerMin > 0 {
		limiter := middleware.NewRateLimiter(time.Minute)
		defer limiter.Stop()
		mws = append(mws, limiter.Limit(cfg.Server.RateLimitPerMin))
	}

	handler := middleware.Chain(mws...)(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// runMigrations applies the embedded goose migrations. goose requires a
// *sql.DB, so this opens a short-lived stdlib connection next to the pool.
func runMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
