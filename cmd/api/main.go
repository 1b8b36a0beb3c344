package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/book-search-service/internal/auth"
	"github.com/Dan9191/book-search-service/internal/config"
	"github.com/Dan9191/book-search-service/internal/handler"
	"github.com/Dan9191/book-search-service/internal/integrations/googlebooks"
	"github.com/Dan9191/book-search-service/internal/middleware"
	"github.com/Dan9191/book-search-service/internal/notify"
	"github.com/Dan9191/book-search-service/internal/repository"
	"github.com/Dan9191/book-search-service/internal/service"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	if cfg.UsesDevelopmentSecret() {
		logger.Warn("JWT_SECRET_KEY is not set, signing tokens with the development placeholder")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closeStore()

	// Initialize layers
	creds := auth.NewCredentials(cfg.JWTSecret, cfg.TokenTTL, auth.WithBcryptCost(cfg.BcryptCost))
	books := googlebooks.NewClient(cfg, logger)
	mailer := notify.NewSender(cfg, logger)
	svc := service.NewService(repo, creds, books, mailer, logger)
	h := handler.NewHandler(svc, logger)

	// Setup router
	r := handler.NewRouter(h,
		middleware.RequestLogger(logger),
		middleware.Authenticate(creds, repo, logger),
	)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.ProviderTimeout + 10*time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}

// openStore connects the user repository selected by DB_CONN
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	switch cfg.StoreKind() {
	case config.StoreMemory:
		logger.Warn("Using in-memory user store, data is lost on restart")
		return repository.NewMemoryRepository(), func() {}, nil

	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.DBConn))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		disconnect := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Errorf("Failed to disconnect MongoDB: %v", err)
			}
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			disconnect()
			return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}

		repo := repository.NewMongoRepository(client.Database(cfg.MongoDB))
		if err := repo.EnsureIndexes(connectCtx); err != nil {
			disconnect()
			return nil, nil, err
		}
		logger.Infof("Connected to MongoDB database %s", cfg.MongoDB)
		return repo, disconnect, nil

	default:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}

		repo := repository.NewPostgresRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Connected to PostgreSQL")
		return repo, func() { db.Close() }, nil
	}
}
