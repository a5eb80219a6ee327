package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"chat_roster_service/internal/roster/app"
	"chat_roster_service/internal/roster/domain"
	"chat_roster_service/internal/roster/repository"
	"chat_roster_service/internal/roster/router"
	"chat_roster_service/pkg/config"
	"chat_roster_service/pkg/database"
	"chat_roster_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.RosterService, config.EnvConfig.RosterServiceLogPath)
	cfg := config.LoadConfig[config.Roster](config.EnvConfig.RosterService, config.EnvConfig.RosterServiceYAMLPath)

	// 1. chat schema, bulk reads
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database, cfg.PostgreSQL.Port)
	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    dsn,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s]", dsn)),
			zap.Error(err),
		)
	}
	defer pool.Close()

	// 2. contacts schema, profiles and nickname overrides
	contactsDSN := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.ContactsDB.Host, cfg.ContactsDB.User, cfg.ContactsDB.Password, cfg.ContactsDB.Database, cfg.ContactsDB.Port)
	contactsDB, err := database.NewGormConnection(database.Connection{
		ConnectStr:    contactsDSN,
		RetryCount:    cfg.ContactsDB.RetryCount,
		RetryInterval: time.Duration(cfg.ContactsDB.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to contacts database after retries",
			zap.String("address", fmt.Sprintf("[%s]", contactsDSN)),
			zap.Error(err),
		)
	}
	if err := repository.AutoMigrateContacts(contactsDB); err != nil {
		logger.Log.Fatal(fmt.Sprintf("contacts migrate err : %v", err))
	}

	// 3. redis, live feed and contact cache
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// 4. repositories
	bulkRepo := repository.NewBulkReadRepository(pool)
	contactRepo := repository.NewCachedContactRepository(
		repository.NewContactRepository(contactsDB),
		database.NewRedisRepository[map[string]domain.ProfileOverride](redisClient),
		database.NewRedisRepository[map[string]domain.Profile](redisClient),
		5*time.Minute,
	)
	feed := repository.NewRedisFeed(redisClient, cfg.Feed.ChannelPrefix)
	presencePub := repository.NewPresencePublisher(feed, cfg.Presence.PublishDebounce)
	defer presencePub.Close()

	// 5. use cases
	buildUC := app.NewBuildRosterUseCase(bulkRepo, contactRepo)

	// 6. fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.RosterServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, app.NewRosterWebsocketHandler(
		buildUC,
		feed,
		bulkRepo,
		presencePub,
		cfg.Feed.RetryInterval,
		cfg.Feed.RetryCount,
	))

	port := ":" + cfg.Port
	log.Printf("Roster Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
