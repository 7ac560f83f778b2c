package main

import (
	"context"
	"fmt"
	"log"

	"convo-chat/config"
	"convo-chat/internal/handler"
	"convo-chat/internal/metrics"
	"convo-chat/internal/ratelimit"
	"convo-chat/internal/redis"
	"convo-chat/internal/repository"
	"convo-chat/internal/repository/memory"
	"convo-chat/internal/server"
	"convo-chat/internal/services"
	"convo-chat/internal/storage"
	"convo-chat/internal/token"
	"convo-chat/pkg/database"
	"convo-chat/pkg/events"
	"convo-chat/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg := config.LoadConfig()

	logMode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		logMode = logger.ProductionMode
	}
	l := logger.New(logMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.StorageDriver, err)
	}
	defer st.close()
	l.Infof("Using %s storage", cfg.StorageDriver)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	users, messages, replies := st.users, st.messages, st.replies

	var cache services.DirectoryCache
	var publisher events.Publisher
	var broadcastLimiter ratelimit.Limiter = ratelimit.NewLocal(cfg.RateLimitBroadcast, cfg.RateLimitWindow)
	var tokenLimiter ratelimit.Limiter = ratelimit.NewLocal(cfg.RateLimitToken, cfg.RateLimitWindow)

	if cfg.RedisEnabled() {
		client := redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()

		if err := redis.Ping(ctx, client); err != nil {
			l.Warn("redis unreachable, using in-process cache and limiters", zap.Error(err))
		} else {
			cache = redis.NewDirectoryCache(client, cfg.DirectoryCacheTTL)
			broadcastLimiter = redis.NewRateLimiter(client, "broadcast", cfg.RateLimitBroadcast, cfg.RateLimitWindow)
			tokenLimiter = redis.NewRateLimiter(client, "token", cfg.RateLimitToken, cfg.RateLimitWindow)
			publisher = events.NewRedisBroker(client)
			l.Infof("Connected to redis at %s:%s", cfg.RedisHost, cfg.RedisPort)
		}
	}

	var presigner services.Presigner
	if cfg.S3Enabled() {
		s3Client, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
			PresignTTL: cfg.S3PresignTTL,
		})
		if err != nil {
			l.Warn("s3 client unavailable, avatar uploads disabled", zap.Error(err))
		} else {
			presigner = s3Client
		}
	}

	issuer, err := token.NewIssuer(cfg.TokenFormat)
	if err != nil {
		log.Fatalf("Invalid token format: %v", err)
	}

	userService := services.NewUserService(users, messages, cache, l)
	broadcastService := services.NewBroadcastService(users, messages, replies, l,
		services.WithMetrics(m),
		services.WithEvents(publisher),
		services.WithPacer(ratelimit.NewPacer(cfg.BroadcastBatchesPerSec)))
	tokenService := services.NewTokenService(cfg.ZegoAppID, cfg.ZegoAppSecret, cfg.TokenTTL, issuer)
	avatarService := services.NewAvatarService(presigner)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		User:      handler.NewUserHandler(userService),
		Broadcast: handler.NewBroadcastHandler(broadcastService),
		Token:     handler.NewTokenHandler(tokenService),
		Upload:    handler.NewUploadHandler(avatarService),
	}, server.RouteOptions{
		Metrics:          m,
		Gatherer:         reg,
		Health:           st.health,
		BroadcastLimiter: broadcastLimiter,
		TokenLimiter:     tokenLimiter,
	})

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %s", err)
	}
}

type store struct {
	users    repository.UserRepository
	messages repository.MessageRepository
	replies  repository.BotReplyRepository
	health   func(ctx context.Context) error
	close    func()
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		mem := memory.New()
		if _, err := database.Seed(ctx, mem.Users(), mem.BotReplies(), nil); err != nil {
			return nil, err
		}
		return &store{
			users:    mem.Users(),
			messages: mem.Messages(),
			replies:  mem.BotReplies(),
			close:    func() {},
		}, nil
	case config.StorageDriverPostgres:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("apply GORM migrations: %w", err)
		}
		return &store{
			users:    repository.NewUserRepository(db),
			messages: repository.NewMessageRepository(db),
			replies:  repository.NewBotReplyRepository(db),
			health:   healthCheck(db),
			close:    func() { _ = database.Close(db) },
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func healthCheck(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return database.HealthCheck(ctx, db)
	}
}
