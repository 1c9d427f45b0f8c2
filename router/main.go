package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/NikFin25/deanery-bot/bot"
	"github.com/NikFin25/deanery-bot/database"
	"github.com/NikFin25/deanery-bot/handlers"
	gateway_handlers "github.com/NikFin25/deanery-bot/handlers/gateway"
	importer_handlers "github.com/NikFin25/deanery-bot/handlers/importer"
	"github.com/NikFin25/deanery-bot/utils/auth"
	"github.com/NikFin25/deanery-bot/utils/middleware"
)

// SetupRoutes wires the HTTP surface: a health probe, the JWT-guarded bulk
// import endpoints used by the deanery's export job, and the update gateway
// the chat transport forwards to.
func SetupRoutes(app *fiber.App, store database.Storage, dispatcher *bot.Dispatcher) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "deanery-bot"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: jwtSecret,
		Expiry: 24 * time.Hour,
		Issuer: jwtIssuer,
	})
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	app.Get("/health", func(c *fiber.Ctx) error {
		return handlers.HandleCheckHealth(c, store)
	})

	db := store.GetDB()
	setupImportRoutes(app, db, authMiddleware)
	setupGatewayRoutes(app, dispatcher, authMiddleware)
}

func setupGatewayRoutes(app *fiber.App, dispatcher *bot.Dispatcher, authMiddleware *middleware.AuthMiddleware) {
	gatewayHandler := gateway_handlers.NewGatewayHandler(dispatcher)

	api := app.Group("/api/v1")
	api.Post("/gateway/updates", authMiddleware.Required(), gatewayHandler.HandleUpdate)
}

func setupImportRoutes(app *fiber.App, db *gorm.DB, authMiddleware *middleware.AuthMiddleware) {
	importHandler := importer_handlers.NewImportHandler(db)

	api := app.Group("/api/v1")
	imports := api.Group("/import", authMiddleware.Required())
	imports.Post("/schedule", importHandler.ImportSchedule)
	imports.Post("/semesters", importHandler.ImportSemesters)
}
