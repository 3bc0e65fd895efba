package controller

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"reeflog_backend/pkg/email"
	"reeflog_backend/pkg/payout"
	"reeflog_backend/pkg/promo"
)

// PromoController is the admin surface for partner codes, summaries and
// payouts.
type PromoController struct {
	registry *promo.Registry
	payouts  *payout.Processor
	email    *email.Service
}

func NewPromoController(registry *promo.Registry, payouts *payout.Processor, emailService *email.Service) *PromoController {
	return &PromoController{
		registry: registry,
		payouts:  payouts,
		email:    emailService,
	}
}

func (ctrl *PromoController) CreatePromoCode(c *fiber.Ctx) error {
	input := new(promo.CreateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.PartnerName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Partner name is required",
		})
	}

	code, err := ctrl.registry.Create(*input)
	if err != nil {
		if errors.Is(err, promo.ErrCodeExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Promo code already exists",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create promo code",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(code)
}

func (ctrl *PromoController) ListPromoCodes(c *fiber.Ctx) error {
	codes, err := ctrl.registry.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch promo codes",
		})
	}
	return c.JSON(codes)
}

func (ctrl *PromoController) ActivatePromoCode(c *fiber.Ctx) error {
	return ctrl.setActive(c, true)
}

func (ctrl *PromoController) DeactivatePromoCode(c *fiber.Ctx) error {
	return ctrl.setActive(c, false)
}

func (ctrl *PromoController) setActive(c *fiber.Ctx, active bool) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid promo code id",
		})
	}

	if err := ctrl.registry.SetActive(id, active); err != nil {
		if errors.Is(err, promo.ErrCodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Promo code not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update promo code",
		})
	}

	return c.JSON(fiber.Map{"id": id, "active": active})
}

func (ctrl *PromoController) DeletePromoCode(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid promo code id",
		})
	}

	if err := ctrl.registry.Delete(id); err != nil {
		switch {
		case errors.Is(err, promo.ErrCodeNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Promo code not found",
			})
		case errors.Is(err, promo.ErrCodeHasEarnings):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Promo code has commission entries; deactivate it instead",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete promo code",
		})
	}

	return c.JSON(fiber.Map{"message": "Promo code deleted"})
}

func (ctrl *PromoController) ListPartnerSummaries(c *fiber.Ctx) error {
	summaries, err := ctrl.payouts.ListSummaries()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not build partner summaries",
		})
	}
	return c.JSON(summaries)
}

func (ctrl *PromoController) GetPartnerSummary(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid partner id",
		})
	}

	summary, err := ctrl.payouts.Summary(id)
	if err != nil {
		if errors.Is(err, payout.ErrPartnerNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Partner not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not build partner summary",
		})
	}
	return c.JSON(summary)
}

type PayoutInput struct {
	Method    string `json:"method" validate:"required"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
}

func (ctrl *PromoController) TriggerPayout(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid partner id",
		})
	}

	input := new(PayoutInput)
	if err := c.BodyParser(input); err != nil || input.Method == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Payout method is required",
		})
	}

	result, err := ctrl.payouts.Payout(id, input.Method, input.Reference, input.Notes)
	if err != nil {
		switch {
		case errors.Is(err, payout.ErrPartnerNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Partner not found",
			})
		case errors.Is(err, payout.ErrNothingToPayout):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No pending earnings to pay out",
			})
		case errors.Is(err, payout.ErrPayoutConflict):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A concurrent payout is in progress, please retry",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not process payout",
		})
	}

	if ctrl.email != nil {
		if partner, err := ctrl.registry.Get(id); err == nil && partner.PartnerEmail != "" {
			amount := fmt.Sprintf("$%d.%02d", result.AmountPaid/100, result.AmountPaid%100)
			err := ctrl.email.SendPayoutConfirmation(
				partner.PartnerEmail, partner.PartnerName,
				amount, result.EntryCount, input.Method, result.Reference,
			)
			if err != nil {
				log.Printf("Could not send payout confirmation email: %v", err)
			}
		}
	}

	return c.JSON(result)
}

func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return uint(id), nil
}
