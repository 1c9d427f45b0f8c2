package app

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/NikFin25/deanery-bot/api"
	"github.com/NikFin25/deanery-bot/bot"
	"github.com/NikFin25/deanery-bot/config"
	"github.com/NikFin25/deanery-bot/database"
	"github.com/NikFin25/deanery-bot/router"
	"github.com/NikFin25/deanery-bot/services"
	"github.com/NikFin25/deanery-bot/services/cron"
	"github.com/NikFin25/deanery-bot/services/session"
	"github.com/NikFin25/deanery-bot/utils/cache"
)

// BuildDispatcher wires the full service graph behind the bot's update
// dispatcher. The transport adapter supplies the Notifier it implements;
// tests pass a fake.
func BuildDispatcher(db *gorm.DB, cfg *config.EnviornmentVariable, sessions session.Store, notifier services.Notifier) *bot.Dispatcher {
	registration := services.NewRegistrationService(db, cfg.ALLOW_LIST_ENABLED)
	notifications := services.NewNotificationService(db, notifier)

	return bot.NewDispatcher(
		registration,
		services.NewScheduleService(db),
		services.NewApplicationService(db, notifications),
		services.NewEventService(db),
		services.NewAdminService(db, registration),
		sessions,
	)
}

// newSessionStore prefers redis so form state survives restarts, and falls
// back to the in-memory store when redis is unreachable. The second return is
// the sweeper for the cron manager; it is nil for redis, which expires keys
// itself.
func newSessionStore(redisURL string) (session.Store, cron.SessionSweeper) {
	if redisURL != "" {
		redisCache, err := cache.NewRedisCache(redisURL)
		if err == nil {
			log.Println("Using redis form session store")
			return session.NewRedisStore(redisCache, session.DefaultTTL), nil
		}
		log.Printf("Warning: Failed to connect to Redis: %v. Falling back to in-memory sessions.", err)
	}

	memory := session.NewMemoryStore(session.DefaultTTL)
	return memory, memory
}

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

	db := store.GetDB()
	sessions, sweeper := newSessionStore(getEnv.REDIS_URL)

	// The chat transport lives in a separate process and forwards updates
	// through the gateway endpoint, so no Notifier is attached here and
	// retried notifications stay queued until that process picks them up.
	notifications := services.NewNotificationService(db, nil)
	dispatcher := BuildDispatcher(db, getEnv, sessions, nil)

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		cronManager = cron.NewCronManager(db, sweeper, notifications)
		if err := cronManager.Start(); err != nil {
			print("Warning: Failed to start cron jobs\n")
			print("Error: ", err.Error(), "\n")
			// Don't fail the app, just log the warning
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
	router.SetupRoutes(app, store, dispatcher)

	// Get the PORT & Start the Server
	return server.Run()
}
