package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/config"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/db"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/handler"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/repository/memory"
	mongorepo "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/repository/mongodb"
	repo "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/repository/postgres"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/repository/redisstream"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/service"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/ratelimit"
)

const (
	auditStreamMaxLen = 100000
	shutdownTimeout   = 10 * time.Second
)

// stores groups the adapters selected by STORE_BACKEND and AUDIT_SINK.
type stores struct {
	accounts domain.AccountRepository
	tenants  domain.TenantDirectory
	audit    domain.AuditStore
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open stores", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer st.close()

	tokenService, err := service.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessExpiryMin, cfg.RefreshExpiryMin)
	if err != nil {
		logger.Error("invalid token configuration", "error", err)
		os.Exit(1)
	}

	metrics, err := service.NewMetrics(nil)
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	recorder := service.NewAuditRecorder(st.audit, service.AuditConfig{
		Async:      cfg.AuditAsync,
		BufferSize: cfg.AuditBufferSize,
		DropIfFull: cfg.AuditDropIfFull,
	}, logger, metrics)
	defer recorder.Close()

	authService := service.NewAuthService(service.Dependencies{
		Accounts:     st.accounts,
		Tenants:      st.tenants,
		Hasher:       service.NewBcryptHasher(cfg.BcryptCost),
		TokenService: tokenService,
		Guard:        service.NewLockGuard(cfg.LockoutThreshold, time.Duration(cfg.LockoutDurationSec)*time.Second, nil),
		Audit:        recorder,
		Metrics:      metrics,
		Logger:       logger,
	}, cfg)

	limiter := ratelimit.NewRateLimiter(cfg.LoginRateLimitRPS, cfg.LoginRateLimitBurst)
	go limiter.StartCleanupWorker(ctx, time.Minute)

	authHandler := handler.NewAuthHandler(authService, tokenService, limiter, logger)

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.IsProduction()})
	handler.RegisterRoutes(app, authHandler)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("auth service listening", "port", cfg.Port, "store", cfg.StoreBackend, "audit_sink", cfg.AuditSink)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "error", err)
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	st := &stores{}

	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pool, err := db.NewPostgresPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)

		r := repo.NewPostgresRepository(pool)
		if err := r.EnsureSchema(ctx); err != nil {
			st.close()
			return nil, err
		}
		st.accounts, st.tenants, st.audit = r, r, r

	case config.StoreBackendMongo:
		client, err := db.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error("mongo disconnect failed", "error", err)
			}
		})

		r := mongorepo.NewRepository(client.Database(cfg.MongoDatabase))
		if err := r.EnsureIndexes(ctx); err != nil {
			st.close()
			return nil, err
		}
		st.accounts, st.tenants, st.audit = r, r, r

	default:
		r := memory.NewRepository()
		for _, code := range cfg.SeedSchools {
			r.AddTenant(domain.Tenant{ID: uuid.NewString(), Code: code, Name: code})
		}
		logger.Warn("using in-memory store; data is lost on restart", "schools", len(cfg.SeedSchools))
		st.accounts, st.tenants, st.audit = r, r, r
	}

	if cfg.AuditSink == config.AuditSinkRedis {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = rdb.Close() })
		st.audit = redisstream.NewAuditSink(rdb, redisstream.DefaultStream, auditStreamMaxLen)
	}

	return st, nil
}
