package api

import (
	"net/http"

	"rag-assistant/docs"
	"rag-assistant/internal/api/handlers"
	"rag-assistant/pkg/config"
	"rag-assistant/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	docHandler *handlers.DocumentHandler,
	chatHandler *handlers.ChatHandler,
	toolsHandler *handlers.ToolsHandler,
	metrics http.Handler,
	cfg config.ServerConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))
	app.Use(middleware.RequestLogger(appLogger))

	// the docs package registers the OpenAPI document in init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	api := app.Group("/api/v1")

	kb := api.Group("/knowledge-base")
	kb.Post("", docHandler.CreateKnowledgeBase)
	kb.Get("", docHandler.Info)
	kb.Delete("", docHandler.Reset)
	kb.Post("/backup", docHandler.Backup)
	kb.Get("/documents", docHandler.ListDocuments)
	kb.Post("/documents", docHandler.AddDocuments)
	kb.Delete("/documents/:name", docHandler.DeleteDocument)

	api.Post("/chat", chatHandler.Chat)
	api.Post("/ask", chatHandler.Ask)

	api.Get("/tools", toolsHandler.ListTools)
	api.Post("/tools/link-budget", toolsHandler.LinkBudget)
	api.Post("/documents/:name/summary", toolsHandler.Summarize)
	api.Post("/documents/:name/specifications", toolsHandler.ExtractSpecifications)

	return app
}
