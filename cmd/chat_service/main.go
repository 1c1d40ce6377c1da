package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collab_chat_service/internal/chat/app"
	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/internal/chat/repository"
	"collab_chat_service/internal/chat/router"
	"collab_chat_service/pkg/config"
	"collab_chat_service/pkg/database"
	"collab_chat_service/pkg/logger"
	"collab_chat_service/pkg/token"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()
	logger.Log.SetDebugMode(!config.IsProduction())
	token.SetSecret(config.EnvConfig.JWTSecret)

	cfg, err := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	if err != nil {
		logger.Log.Fatal("load config failed", zap.String("path", config.EnvConfig.ChatServiceYAMLPath), zap.Error(err))
	}
	realtime := cfg.Realtime.WithDefaults()
	if err := realtime.Validate(); err != nil {
		logger.Log.Fatal("invalid realtime config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. PostgreSQL (thread / message / cursor)
	pg := cfg.PostgreSQL
	pgConn := database.Connection{
		ConnectStr:    database.PostgresDSN(pg.Host, pg.Port, pg.User, pg.Password, pg.Database, pg.SSLMode),
		RetryCount:    pg.RetryCount,
		RetryInterval: time.Duration(pg.RetryInterval) * time.Second,
	}
	db, err := database.NewGormDB(pgConn)
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgres after retries", zap.String("host", pg.Host), zap.Error(err))
	}
	if err := repository.AutoMigrate(db); err != nil {
		logger.Log.Fatal("auto migrate failed", zap.Error(err))
	}

	// 2. MongoDB (翻譯快取), 沒設定時用記憶體
	transRepo := repository.NewMemoryTranslationRepository()
	if cfg.MongoSQL.Host != "" {
		m := cfg.MongoSQL
		uri := database.MongoURI(m.Host, m.Port, m.User, m.Password)
		mongo, err := database.NewMongoDB(ctx, database.Connection{
			ConnectStr:    uri,
			RetryCount:    m.RetryCount,
			RetryInterval: time.Duration(m.RetryInterval) * time.Second,
		}, m.Database)
		if err != nil {
			logger.Log.Fatal("Unable to connect to mongoDB after retries", zap.String("address", fmt.Sprintf("[%s:%d]", m.Host, m.Port)), zap.Error(err))
		}
		defer mongo.Close(context.Background())

		if err := repository.EnsureTranslationIndexes(ctx, mongo.Database); err != nil {
			logger.Log.Warn("translation index create failed", zap.Error(err))
		}
		transRepo = repository.NewMongoTranslationRepository(mongo.Database)
	} else {
		logger.Log.Warn("mongo host not set, translation cache is process local")
	}

	// 3. Redis (Pub/Sub + profile cache)
	var (
		redisClient *redis.Client
		pub         repository.PubSub
		userRepo    = repository.NewUserRepository(db)
	)
	if realtime.Transport == config.TransportRedis {
		masterName, sentinels := config.GetRedisSetting()
		redisClient, err = database.NewRedisClient(ctx, database.RedisConnection{
			Addr:          cfg.Redis.Addr,
			MasterName:    masterName,
			SentinelAddrs: sentinels,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.RedisDB,
		})
		if err != nil {
			logger.Log.Fatal("connect redis failed", zap.Error(err))
		}
		defer redisClient.Close()

		pub = repository.NewRedisPubSub(redisClient)
		userRepo = repository.NewCachedUserRepository(userRepo, database.NewRedisRepository[domain.User](redisClient), cfg.Redis.AuthorTTL)
	} else {
		logger.Log.Info("realtime transport is local, events stay in this process")
		pub = repository.NewLocalPubSub()
	}

	// 4. row-insert feed, realtime broadcast 的備援來源
	feed := newInsertFeed(ctx, realtime.InsertFeed, cfg, db)
	go func() {
		if err := feed.Run(ctx); err != nil {
			logger.Log.Error("insert feed stopped", zap.Error(err))
		}
	}()

	// 5. 初始化 UseCases
	threadRepo := repository.NewThreadRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	unreadUC := app.NewUnreadUseCase(threadRepo, msgRepo)
	svc := app.Services{
		Threads:   app.NewThreadUseCase(threadRepo, msgRepo, userRepo, transRepo, unreadUC),
		Messages:  app.NewSendMessageUseCase(threadRepo, msgRepo, userRepo, unreadUC, pub),
		Unread:    unreadUC,
		Translate: app.NewTranslateUseCase(threadRepo, msgRepo, transRepo, app.NewHTTPTranslator(cfg.Translator)),
		Profiles:  userRepo,
		PubSub:    pub,
		Feed:      feed,
	}

	// 6. 啟動 Fiber
	r := fiber.New(fiber.Config{DisableStartupMessage: config.IsProduction()})
	// local 環境 access log 直接印在 console
	accessLog := os.Stdout
	if !config.IsLocal() {
		file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logger.Log.Fatal("Failed to open access log", zap.Error(err))
		}
		defer file.Close()
		accessLog = file
	}

	r.Use(fiber_log.New(fiber_log.Config{
		Output: accessLog, // 将日志输出到文件
	}))

	router.RegisterRoutes(r, app.NewChatWebsocketHandler(svc, realtime))

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down chat service")
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Error("fiber shutdown failed", zap.Error(err))
		}
	}()

	port := ":" + cfg.Port
	if config.EnvConfig.ChatServicePort != "" {
		port = ":" + config.EnvConfig.ChatServicePort
	}
	logger.Log.Info("Chat Service listening", zap.String("port", port), zap.String("transport", realtime.Transport), zap.String("insert_feed", realtime.InsertFeed))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}

// newInsertFeed pick the row-insert source, any failure degrades to no fallback
func newInsertFeed(ctx context.Context, kind string, cfg config.Chat, db *gorm.DB) repository.InsertFeed {
	switch kind {
	case config.FeedPostgres:
		if db.Dialector.Name() != "postgres" {
			logger.Log.Warn("postgres insert feed needs a postgres database")
			return repository.NopInsertFeed{}
		}
		pg := cfg.PostgreSQL
		pool, err := database.NewDatabaseConnection(ctx, database.Connection{
			ConnectStr:    database.PostgresDSN(pg.Host, pg.Port, pg.User, pg.Password, pg.Database, pg.SSLMode),
			RetryCount:    pg.RetryCount,
			RetryInterval: time.Duration(pg.RetryInterval) * time.Second,
		})
		if err != nil {
			logger.Log.Error("insert feed pool failed, fallback disabled", zap.Error(err))
			return repository.NopInsertFeed{}
		}
		return repository.NewPgInsertFeed(pool)

	case config.FeedKafka:
		reader, err := database.NewKafkaReaderWithRetry(ctx, database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			GroupID:       cfg.Kafka.GroupID,
			RetryCount:    5,
			RetryInterval: 3 * time.Second,
		})
		if err != nil {
			logger.Log.Error("insert feed kafka failed, fallback disabled", zap.Error(err))
			return repository.NopInsertFeed{}
		}
		return repository.NewKafkaInsertFeed(reader)
	}
	return repository.NopInsertFeed{}
}
