package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"uthread_service/internal/realtime/app"
	"uthread_service/internal/realtime/domain"
	"uthread_service/internal/realtime/repository"
	"uthread_service/internal/realtime/router"
	"uthread_service/pkg/config"
	"uthread_service/pkg/database"
	"uthread_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.RealtimeService, config.EnvConfig.RealtimeServiceLogPath)
	cfg := config.LoadConfig[config.Realtime](config.EnvConfig.RealtimeService, config.EnvConfig.RealtimeServiceYAMLPath)

	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host, cfg.Mongo.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.Mongo.RetryCount,
			RetryInterval: time.Duration(cfg.Mongo.RetryInterval),
		},
		cfg.Mongo.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	if err := repository.EnsureConversationIndexes(ctx, mongo.Database); err != nil {
		logger.Log.Fatal("ensure conversation indexes", zap.Error(err))
	}
	if err := repository.EnsureSubscriptionIndexes(ctx, mongo.Database); err != nil {
		logger.Log.Fatal("ensure subscription indexes", zap.Error(err))
	}

	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	convRepo := repository.NewMongoConversationRepository(mongo.Database)
	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	notifRepo := repository.NewMongoNotificationRepository(mongo.Database)
	subRepo := repository.NewMongoSubscriptionRepository(mongo.Database)

	profileCacheTTL := cfg.ProfileCacheTTL
	if profileCacheTTL <= 0 {
		profileCacheTTL = 5 * time.Minute
	}
	profiles := repository.NewCachedProfileRepository(
		repository.NewMongoProfileRepository(mongo.Database),
		database.NewRedisRepository[domain.Profile](redisClient),
		profileCacheTTL,
	)

	registry := app.NewSessionRegistry()
	pushUC := app.NewPushUseCase(subRepo, repository.NewWebPushSender(cfg.WebPush), cfg.WebPush.PublicKey)
	messageUC := app.NewSendMessageUseCase(convRepo, msgRepo, profiles, registry, pushUC)
	notifUC := app.NewNotificationUseCase(notifRepo, registry, pushUC)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.RealtimeServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		app.NewRealtimeWebsocketHandler(registry, messageUC, notifUC, profiles),
		app.NewMessagingHTTPHandler(registry, messageUC, notifUC, pushUC),
	)

	port := ":" + cfg.Port
	log.Printf("Realtime Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
