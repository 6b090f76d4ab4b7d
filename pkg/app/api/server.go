// Package api implements app.Runner for the wallet API server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apphttp "github.com/crypvault/wallet-api/pkg/app/http"
	"github.com/crypvault/wallet-api/pkg/auth"
	"github.com/crypvault/wallet-api/pkg/config"
	"github.com/crypvault/wallet-api/pkg/credstore"
	"github.com/crypvault/wallet-api/pkg/ledgerstore"
	"github.com/crypvault/wallet-api/pkg/notify"
	"github.com/crypvault/wallet-api/pkg/pgutil"
	pinservice "github.com/crypvault/wallet-api/pkg/pin/service"
	"github.com/crypvault/wallet-api/pkg/settings"
	walletservice "github.com/crypvault/wallet-api/pkg/wallet/service"
)

const defaultRequestTimeout = 60

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new api server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting wallet API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	if cfg.Wallet.PreferencesFile != "" {
		applyPreferences(&cfg.Wallet, settings.NewFileStore(cfg.Wallet.PreferencesFile), logger)
	}

	publisher, closePublisher := s.openPublisher(logger)
	defer closePublisher()

	ledgerStore := ledgerstore.NewStore(db)
	credStore := credstore.NewStore(db)

	transferService := walletservice.NewService(ledgerStore, publisher, cfg.Wallet, logger)
	pinService := pinservice.NewService(credStore, logger)

	router := s.setupRouter(
		walletservice.NewLog(transferService, logger),
		pinService,
		logger,
	)

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

// applyPreferences overlays stored display preferences onto the wallet
// config. A load failure keeps the configured values; preferences are
// cosmetic and must never block startup.
func applyPreferences(cfg *config.WalletConfig, store settings.Store, logger *zap.Logger) {
	prefs, err := store.Load()
	if err != nil {
		logger.Warn("Failed to load display preferences, using configured defaults", zap.Error(err))
		return
	}

	cfg.TestnetDisplay = prefs.TestnetDisplay
	logger.Info("Loaded display preferences",
		zap.Bool("testnet_display", prefs.TestnetDisplay),
		zap.String("theme", prefs.Theme),
	)
}

// openPublisher connects the Redis change-notification channel, falling back
// to a no-op publisher when disabled or unreachable. Notifications are
// best-effort; the API must come up without Redis.
func (s *Server) openPublisher(logger *zap.Logger) (notify.Publisher, func()) {
	if !s.cfg.Redis.Enabled {
		return notify.NopPublisher{}, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.cfg.Redis.Addr,
		Password: s.cfg.Redis.Password,
		DB:       s.cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, change notifications disabled", zap.Error(err))
		_ = client.Close()
		return notify.NopPublisher{}, func() {}
	}

	logger.Info("Connected to Redis", zap.String("addr", s.cfg.Redis.Addr))
	return notify.NewRedisPublisher(client, logger), func() { _ = client.Close() }
}

func (s *Server) setupRouter(
	transferService walletservice.Service,
	pinService pinservice.Service,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Second * defaultRequestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	validator := auth.NewJWTValidator(s.cfg.Auth.JWTSecret, s.cfg.Auth.Issuer)

	// Authenticated API
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(validator, logger))
		r.Use(walletservice.EnsureProfileMiddleware(transferService))

		pinservice.RegisterRoutes(r, pinService, logger)

		// The PIN gate wraps only the money-moving routes; reads and the
		// PIN endpoints themselves stay reachable with an unverified session.
		walletservice.RegisterRoutes(r, transferService, s.cfg.Wallet.TestnetDisplay,
			pinservice.RequireVerified(pinService), logger)
	})

	return r
}
