package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"reeflog_backend/pkg/billing"
)

type WebhookController struct {
	processor *billing.Processor
}

func NewWebhookController(processor *billing.Processor) *WebhookController {
	return &WebhookController{processor: processor}
}

// HandleStripeWebhook is the single entry point for payment processor
// events. Signature failures and undecodable payloads answer 4xx; store
// failures answer 5xx so Stripe redelivers against our idempotent handlers.
func (ctrl *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	err := ctrl.processor.Handle(c.Context(), c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidSignature):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid webhook signature",
			})
		case errors.Is(err, billing.ErrMalformedPayload):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Malformed event payload",
			})
		default:
			log.Printf("Webhook processing failed, requesting redelivery: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Event processing failed",
			})
		}
	}

	return c.JSON(fiber.Map{"received": true})
}
