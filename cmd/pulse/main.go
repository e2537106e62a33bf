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

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/config"
	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/handler"
	"github.com/pulse-social/pulse/internal/media"
	"github.com/pulse-social/pulse/internal/realtime"
	"github.com/pulse-social/pulse/internal/reconciler"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/internal/repository/fixtures"
	"github.com/pulse-social/pulse/internal/search"
	"github.com/pulse-social/pulse/internal/service"
	"github.com/pulse-social/pulse/pkg/database"
	"github.com/pulse-social/pulse/pkg/jwt"
	pkglog "github.com/pulse-social/pulse/pkg/log"
	"github.com/pulse-social/pulse/pkg/middleware"
	"github.com/pulse-social/pulse/pkg/pubsub"
	"github.com/pulse-social/pulse/pkg/storage"
)

func main() {
	// 1. Load configuration; log level changes apply live
	cfg, err := config.LoadAndWatch("./config", func(next *config.Config) {
		pkglog.SetLevel(next.Log.Level)
		l := pkglog.L()
		l.Info().Str("level", next.Log.Level).Msg("config reloaded")
	})
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "pulse",
	})
	logger := pkglog.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Open the backend: seeded in-memory fixtures or a real database
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("mode", cfg.Backend.Mode).Msg("failed to open database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get underlying sql.DB")
	}
	defer sqlDB.Close()

	// 4. Repositories
	userRepo := repository.NewGormUserRepository(db)
	postRepo := repository.NewGormPostRepository(db)
	commentRepo := repository.NewGormCommentRepository(db)
	followRepo := repository.NewGormFollowRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	notificationRepo := repository.NewGormNotificationRepository(db)

	// 5. Optional Redis user cache
	var userCache cache.UserCache = cache.NopCache{}
	if cfg.Redis.Address != "" {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, user cache disabled")
		} else {
			userCache = cache.NewRedisUserCache(client, cfg.Cache.Prefix)
			logger.Info().Str("addr", cfg.Redis.Address).Msg("redis user cache enabled")
		}
	}
	defer userCache.Close()

	// 6. Event bus for realtime delivery
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to create pubsub")
	}
	defer bus.Close()

	// 7. Avatar storage
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to create storage")
	}
	avatars := media.NewAvatarProcessor(store, media.Config{
		Prefix:      cfg.Media.AvatarPrefix,
		JpegQuality: cfg.Media.JpegQuality,
		URLExpiry:   cfg.Media.URLExpiry,
	})

	// 8. Optional Elasticsearch user index
	var userIndex search.UserIndex
	if len(cfg.Search.Addresses) > 0 {
		userIndex, err = openUserIndex(ctx, cfg.Search, userRepo)
		if err != nil {
			logger.Warn().Err(err).Msg("elasticsearch unavailable, user search falls back to the database")
			userIndex = nil
		}
	}

	// 9. Services
	tokens, err := jwt.NewManager(cfg.JWT)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token manager")
	}

	deps := service.UserDeps{
		Repo:      userRepo,
		Tokens:    tokens,
		Cache:     userCache,
		Index:     userIndex,
		Avatars:   avatars,
		CacheTTL:  cfg.Cache.TTL,
		SearchTTL: cfg.Cache.SearchTTL,
	}
	users := service.NewUserService(deps)
	notifications := service.NewNotificationService(notificationRepo, userRepo, bus)
	notifier := service.NewNotifier(notifications, userRepo)
	posts := service.NewPostService(postRepo, userRepo, followRepo, notifier, userCache)
	comments := service.NewCommentService(commentRepo, postRepo, userRepo, followRepo, notifier)
	follows := service.NewFollowService(followRepo, userRepo, notifier, userCache)
	messages := service.NewMessageService(messageRepo, userRepo, bus)
	pages := service.NewPageService(users, posts, comments, follows, notifications)

	// 10. Realtime hub
	hub := realtime.NewHub(cfg.WebSocket, bus)
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("realtime hub stopped")
		}
	}()

	// 11. Counter reconciler
	var rec *reconciler.Reconciler
	if cfg.Reconciler.Enabled {
		rec = reconciler.New(repository.NewGormCounterRepository(db), cfg.Reconciler)
		rec.Start(ctx)
		logger.Info().Dur("interval", cfg.Reconciler.Interval).Msg("reconciler started")
	}

	// 12. Router
	httpHandler := handler.NewHandler(handler.Services{
		Users:         users,
		Posts:         posts,
		Comments:      comments,
		Follows:       follows,
		Messages:      messages,
		Notifications: notifications,
		Pages:         pages,
	}, hub, middleware.NewAuthMiddleware(tokens), cfg.Media.MaxUploadBytes)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	if cfg.RateLimit.Enabled {
		r.Use(middleware.NewRateLimiter(cfg.RateLimit).Middleware())
	}
	local, serveMedia := store.(*storage.LocalStorage)
	serveMedia = serveMedia && cfg.Storage.Local.BaseURL != ""
	skipGzip := []string{"/api/v1/ws"}
	if serveMedia {
		skipGzip = append(skipGzip, cfg.Storage.Local.BaseURL)
	}
	r.Use(middleware.Compression(skipGzip...))
	if serveMedia {
		r.Static(cfg.Storage.Local.BaseURL, local.Dir())
	}
	httpHandler.RegisterRoutes(r)

	// 13. Start server goroutine
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Str("backend", cfg.Backend.Mode).Msg("pulse starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 14. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		// Stop the hub and the reconciler ticker first.
		cancel()

		if rec != nil {
			rec.Stop()
			<-rec.Done()
		}
		<-hub.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("pulse stopped")
	case <-time.After(timeout):
		logger.Warn().Dur("timeout", timeout).Msg("shutdown timed out")
	}
}

func openDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	if cfg.IsMock() {
		db, err := fixtures.OpenMemory(ctx, "pulse")
		if err != nil {
			return nil, err
		}
		if err := db.Use(&database.Latency{Delay: cfg.Backend.MockDelay}); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
		SlowThreshold:   cfg.Database.SlowThreshold,
	})
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return db, nil
}

// openUserIndex connects to Elasticsearch and indexes every stored user, so
// accounts created before the index existed are searchable.
func openUserIndex(ctx context.Context, cfg config.SearchConfig, users repository.UserRepository) (search.UserIndex, error) {
	client, err := search.NewClient(cfg.Addresses)
	if err != nil {
		return nil, err
	}
	idx, err := search.NewESUserIndex(ctx, client, cfg.IndexUsers)
	if err != nil {
		return nil, err
	}

	all, err := users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users for backfill: %w", err)
	}
	n, err := search.Backfill(ctx, idx, all)
	if err != nil {
		return nil, err
	}
	l := pkglog.L()
	l.Info().Int("users", n).Str("index", cfg.IndexUsers).Msg("user index backfilled")
	return idx, nil
}
