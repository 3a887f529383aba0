package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HammerMeetNail/cotravels/internal/config"
	"github.com/HammerMeetNail/cotravels/internal/database"
	"github.com/HammerMeetNail/cotravels/internal/events"
	"github.com/HammerMeetNail/cotravels/internal/handlers"
	"github.com/HammerMeetNail/cotravels/internal/logging"
	"github.com/HammerMeetNail/cotravels/internal/middleware"
	"github.com/HammerMeetNail/cotravels/internal/services"
	"github.com/HammerMeetNail/cotravels/internal/storage"
	"github.com/HammerMeetNail/cotravels/migrations"
)

const (
	purgeInterval = 10 * time.Minute
	localBlobDir  = "uploads"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", logging.Fields{"env": cfg.Server.Environment})
	}

	logger.Info("Starting cotravels server...")

	logger.Info("Connecting to PostgreSQL", logging.Fields{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), migrations.FS)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	logger.Info("Connecting to Redis", logging.Fields{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	blobs, err := newBlobStore(cfg.Storage, logger)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Queue.Enabled() {
		logger.Info("Publishing notifications to AMQP", logging.Fields{"queue": cfg.Queue.Queue})
		publisher = events.NewAMQPPublisher(cfg.Queue.URL, cfg.Queue.Queue)
	}
	defer func() { _ = publisher.Close() }()

	// Services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	userService := services.NewUserService(dbAdapter, blobs)
	ledger := services.NewSessionLedger(dbAdapter, redisAdapter)
	authService := services.NewAuthService(
		dbAdapter,
		userService,
		services.NewCredentialStore(cfg.Auth.BcryptCost),
		services.NewTokenCodec(cfg.Auth.JWTSecret),
		ledger,
		services.AuthOptions{
			AccessTTL:  cfg.Auth.AccessTokenTTL,
			RefreshTTL: cfg.Auth.RefreshTokenTTL,
		},
	)
	notificationService := services.NewNotificationService(dbAdapter, publisher)
	friendService := services.NewFriendService(dbAdapter, notificationService)
	blockService := services.NewBlockService(dbAdapter)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	authHandler := handlers.NewAuthHandler(authService, cfg.Server.Secure, cfg.Auth.RefreshTokenTTL)
	userHandler := handlers.NewUserHandler(userService)
	friendHandler := handlers.NewFriendHandler(friendService)
	blockHandler := handlers.NewBlockHandler(blockService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, userService)
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger)

	protected := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuth(h)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)

	// Auth endpoints
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/auth/signin", authHandler.Signin)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.Handle("POST /api/auth/logout", protected(authHandler.Logout))
	mux.Handle("POST /api/auth/change-password", protected(authHandler.ChangePassword))
	mux.Handle("DELETE /api/auth/account", protected(authHandler.DeleteAccount))

	// User endpoints
	mux.Handle("GET /api/users/me", protected(userHandler.Me))
	mux.Handle("PATCH /api/users/me", protected(userHandler.UpdateMe))
	mux.Handle("POST /api/users/me/picture", protected(userHandler.UploadPicture))
	mux.Handle("PUT /api/users/me/privacy", protected(friendHandler.UpdatePrivacy))
	mux.Handle("GET /api/users/{id}", protected(userHandler.Get))
	mux.Handle("GET /api/users/{id}/friends", protected(friendHandler.ListFriends))

	// Friend endpoints
	mux.Handle("POST /api/friends/requests", protected(friendHandler.SendRequest))
	mux.Handle("GET /api/friends/requests", protected(friendHandler.ListPendingRequests))
	mux.Handle("GET /api/friends/requests/sent", protected(friendHandler.ListSentRequests))
	mux.Handle("POST /api/friends/requests/{id}/accept", protected(friendHandler.AcceptRequest))
	mux.Handle("POST /api/friends/requests/{id}/reject", protected(friendHandler.RejectRequest))
	mux.Handle("GET /api/friends/suggestions", protected(friendHandler.Suggestions))
	mux.Handle("DELETE /api/friends/{id}", protected(friendHandler.Remove))

	// Block endpoints
	mux.Handle("GET /api/blocks", protected(blockHandler.List))
	mux.Handle("POST /api/blocks/{id}", protected(blockHandler.Block))
	mux.Handle("DELETE /api/blocks/{id}", protected(blockHandler.Unblock))

	// Notification endpoints
	mux.Handle("GET /api/notifications", protected(notificationHandler.List))
	mux.Handle("GET /api/notifications/unread-count", protected(notificationHandler.UnreadCount))
	mux.Handle("POST /api/notifications/read-all", protected(notificationHandler.MarkAllRead))
	mux.Handle("POST /api/notifications/{id}/read", protected(notificationHandler.MarkRead))

	// Middleware chain, outermost last
	var handler http.Handler = mux
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go purgeLedger(ctx, authService, logger)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Could not gracefully shutdown the server", logging.Fields{"error": err.Error()})
		}
		close(done)
	}()

	logger.Info("Server listening", logging.Fields{"addr": addr})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

func newBlobStore(cfg config.StorageConfig, logger *logging.Logger) (services.BlobStore, error) {
	if cfg.Enabled() {
		logger.Info("Storing profile pictures in object storage", logging.Fields{
			"endpoint": cfg.Endpoint,
			"bucket":   cfg.Bucket,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := storage.NewMinioStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connecting to object storage: %w", err)
		}
		return store, nil
	}

	logger.Warn("STORAGE_ENDPOINT not set, storing profile pictures on local disk", logging.Fields{"dir": localBlobDir})
	store, err := storage.NewDiskStore(localBlobDir)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// purgeLedger drops expired ledger rows until ctx is cancelled.
func purgeLedger(ctx context.Context, auth *services.AuthService, logger *logging.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := auth.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("Ledger purge failed", logging.Fields{"error": err.Error()})
				continue
			}
			logger.Debug("Ledger purged", logging.Fields{
				"access_sessions": result.AccessSessions,
				"refresh_tokens":  result.RefreshTokens,
				"blacklisted":     result.Blacklisted,
			})
		}
	}
}
