package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"reeflog_backend/internal/model"
	"reeflog_backend/pkg/subscription"
	"reeflog_backend/pkg/utils/jwt"
)

// effectiveTier resolves the caller's tier through the grace-period
// contract: a canceled subscription keeps its tier only while the paid
// period is still running.
func effectiveTier(db *gorm.DB, userID uint) model.Tier {
	var sub model.Subscription
	if err := db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return model.TierFree
	}
	return subscription.EffectiveTier(&sub, time.Now())
}

func CheckFeatureAccess(db *gorm.DB, feature subscription.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		tier := effectiveTier(db, claims.UserID)
		if !subscription.CanUseFeature(tier, feature) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "This feature requires a higher subscription tier",
			})
		}

		return c.Next()
	}
}

func CheckTankLimit(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		limits := subscription.GetTierLimits(effectiveTier(db, claims.UserID))

		var tankCount int64
		db.Model(&model.Tank{}).Where("user_id = ?", claims.UserID).Count(&tankCount)

		if int(tankCount) >= limits.MaxTanks {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":         "You have reached your tank limit. Please upgrade your plan.",
				"current_count": tankCount,
				"max_limit":     limits.MaxTanks,
			})
		}

		return c.Next()
	}
}

func CheckTankOwnership(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)
		tankID := c.Params("id")
		if tankID == "" {
			tankID = c.Params("tank_id")
		}

		var tank model.Tank
		if err := db.First(&tank, tankID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Tank not found",
			})
		}

		if tank.UserID != claims.UserID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You don't have permission to access this tank",
			})
		}

		return c.Next()
	}
}
