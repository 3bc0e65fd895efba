package controller

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74"
	checkoutsession "github.com/stripe/stripe-go/v74/checkout/session"
	stripesub "github.com/stripe/stripe-go/v74/subscription"
	"gorm.io/gorm"

	"reeflog_backend/internal/model"
	"reeflog_backend/pkg/billing"
	"reeflog_backend/pkg/config"
	"reeflog_backend/pkg/email"
	"reeflog_backend/pkg/promo"
	"reeflog_backend/pkg/subscription"
	"reeflog_backend/pkg/utils/jwt"
)

type SubscriptionController struct {
	db     *gorm.DB
	promos *promo.Registry
	email  *email.Service
	cfg    config.StripeConfig
}

func NewSubscriptionController(db *gorm.DB, promos *promo.Registry, emailService *email.Service, cfg config.StripeConfig) *SubscriptionController {
	stripe.Key = cfg.SecretKey
	return &SubscriptionController{
		db:     db,
		promos: promos,
		email:  emailService,
		cfg:    cfg,
	}
}

type CheckoutInput struct {
	Tier      string `json:"tier" validate:"required"`
	PromoCode string `json:"promo_code"`
}

// CreateCheckoutSession starts a Stripe checkout for a paid tier. The user
// id, tier and promo code ride along as session metadata so the webhook can
// build the subscription row without any server-side session state.
func (ctrl *SubscriptionController) CreateCheckoutSession(c *fiber.Ctx) error {
	input := new(CheckoutInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	claims := c.Locals("user").(*jwt.Claims)

	priceID, err := ctrl.priceForTier(model.Tier(input.Tier))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown subscription tier",
		})
	}

	var user model.User
	if err := ctrl.db.First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	if input.PromoCode != "" {
		if _, err := ctrl.promos.Redeem(input.PromoCode, user.ID); err != nil {
			return ctrl.promoError(c, err)
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(user.Email),
		SuccessURL:    stripe.String(ctrl.cfg.SuccessURL),
		CancelURL:     stripe.String(ctrl.cfg.CancelURL),
	}
	params.AddMetadata(billing.MetaUserID, fmt.Sprintf("%d", user.ID))
	params.AddMetadata(billing.MetaTier, input.Tier)
	if input.PromoCode != "" {
		params.AddMetadata(billing.MetaPromoCode, input.PromoCode)
	}

	session, err := checkoutsession.New(params)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create checkout session",
		})
	}

	return c.JSON(fiber.Map{
		"checkout_url": session.URL,
		"session_id":   session.ID,
	})
}

func (ctrl *SubscriptionController) GetMySubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var sub model.Subscription
	if err := ctrl.db.Where("user_id = ?", claims.UserID).First(&sub).Error; err != nil {
		return c.JSON(fiber.Map{
			"tier":           model.TierFree,
			"effective_tier": model.TierFree,
			"status":         model.SubscriptionStatusActive,
		})
	}

	return c.JSON(fiber.Map{
		"tier":                 sub.Tier,
		"effective_tier":       subscription.EffectiveTier(&sub, time.Now()),
		"status":               sub.Status,
		"current_period_start": sub.CurrentPeriodStart,
		"current_period_end":   sub.CurrentPeriodEnd,
	})
}

// CancelSubscription asks Stripe to stop renewing at the period end. The
// subscription row itself is only mutated by the webhook events that follow.
func (ctrl *SubscriptionController) CancelSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var sub model.Subscription
	err := ctrl.db.Where("user_id = ? AND status = ?", claims.UserID, model.SubscriptionStatusActive).
		Preload("User").
		First(&sub).Error
	if err != nil || sub.StripeSubID == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active subscription found",
		})
	}

	_, err = stripesub.Update(*sub.StripeSubID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not cancel Stripe subscription",
		})
	}

	if ctrl.email != nil && sub.CurrentPeriodEnd != nil {
		err := ctrl.email.SendSubscriptionCancelledEmail(
			sub.User.Email,
			sub.User.GetFullName(),
			string(sub.Tier),
			*sub.CurrentPeriodEnd,
		)
		if err != nil {
			log.Printf("Could not send subscription cancellation email: %v", err)
		}
	}

	return c.JSON(fiber.Map{
		"message": "Subscription will be cancelled at the end of the current period",
	})
}

func (ctrl *SubscriptionController) HandleSubscriptionSuccess(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Payment successful. Your subscription will be activated shortly.",
	})
}

func (ctrl *SubscriptionController) HandleSubscriptionCancel(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Payment cancelled. No changes were made to your subscription.",
	})
}

func (ctrl *SubscriptionController) priceForTier(tier model.Tier) (string, error) {
	switch tier {
	case model.TierPremium:
		return ctrl.cfg.PricePremium, nil
	case model.TierSuperPremium:
		return ctrl.cfg.PriceSuperPremium, nil
	}
	return "", fmt.Errorf("no price configured for tier %q", tier)
}

func (ctrl *SubscriptionController) promoError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, promo.ErrCodeNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Promo code not found",
		})
	case errors.Is(err, promo.ErrCodeInactive), errors.Is(err, promo.ErrCodeExpired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Promo code is no longer valid",
		})
	case errors.Is(err, promo.ErrUsageLimitExceeded):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Promo code has reached its usage limit",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Could not apply promo code",
	})
}
