package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/match3rewards/payout-relay/app/controllers"
	"github.com/match3rewards/payout-relay/internal/pkg/database"
	"github.com/match3rewards/payout-relay/internal/pkg/payout"
	"github.com/match3rewards/payout-relay/internal/pkg/paypal"
)

type WebhookRouter struct {
}

// InstallRouter registers the public provider-facing endpoint. It is
// unauthenticated by design; every request is verified against PayPal before
// anything is trusted.
func (h WebhookRouter) InstallRouter(app *fiber.App) {
	pc := controllers.NewPayoutController(
		paypal.NewClientFromEnv(),
		payout.NewServiceFromDB(database.GetDB()),
	)
	app.Post("/webhooks/paypal", pc.HandlePayPalWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
