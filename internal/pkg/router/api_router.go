package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/match3rewards/payout-relay/app/controllers"
	"github.com/match3rewards/payout-relay/internal/pkg/database"
	"github.com/match3rewards/payout-relay/internal/pkg/middleware"
	"github.com/match3rewards/payout-relay/internal/pkg/payout"
	"github.com/match3rewards/payout-relay/internal/pkg/paypal"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	pc := controllers.NewPayoutController(
		paypal.NewClientFromEnv(),
		payout.NewServiceFromDB(database.GetDB()),
	)
	v1.Post("/payouts", middleware.APIKeyAuthMiddleware(), pc.HandleRequestPayout)
	v1.Get("/payouts/items/:id", middleware.APIKeyAuthMiddleware(), pc.HandleGetPayoutItem)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
