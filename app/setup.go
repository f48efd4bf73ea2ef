package app

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/acadex/acadex-api/api"
	"github.com/acadex/acadex-api/config"
	"github.com/acadex/acadex-api/database"
	"github.com/acadex/acadex-api/router"
	"github.com/acadex/acadex-api/services"
	"github.com/acadex/acadex-api/services/cron"
	"github.com/acadex/acadex-api/utils/auth"
	"github.com/acadex/acadex-api/utils/cache"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		return err
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		db, ok := store.GetDB().(*gorm.DB)
		if !ok {
			print("Warning: Failed to get database connection for cron jobs\n")
		} else {
			var redisCache *cache.RedisCache
			if getEnv.REDIS_URL != "" {
				redisCache, _ = cache.NewRedisCache(getEnv.REDIS_URL)
			}
			audit := services.NewAuditService(db)
			aggregation := services.NewAggregationService(db)
			analytics := services.NewAnalyticsService(db, redisCache, aggregation)
			blacklist := auth.NewBlacklistService(db)

			cronManager = cron.NewCronManager(db, blacklist, audit, analytics)
			if err := cronManager.Start(); err != nil {
				print("Warning: Failed to start cron jobs\n")
				print("Error: ", err.Error(), "\n")
				// Don't fail the app, just log the warning
			}
		}
	}

	// Defer Closing DB and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Attach Middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Setup Routes
	router.SetupRoutes(app, store)

	// Get the PORT & Start the Server
	return server.Run()
}
