package model

import (
	"time"

	"gorm.io/gorm"
)

// Subscription tiers
type Tier string

const (
	TierFree         Tier = "free"
	TierPremium      Tier = "premium"
	TierSuperPremium Tier = "super-premium"
)

// Subscription statuses
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
)

// Subscription holds the single billing state row per user. Rows are never
// deleted; a terminated subscription is downgraded to the free tier instead.
type Subscription struct {
	gorm.Model
	UserID uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	Tier   Tier   `json:"tier" gorm:"not null;default:'free'"`
	Status string `json:"status" gorm:"not null;default:'active'"`

	// StripeSubID must be non-null while Status is active.
	StripeSubID      *string `json:"stripe_subscription_id" gorm:"index"`
	StripeCustomerID string  `json:"stripe_customer_id"`

	CurrentPeriodStart *time.Time `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`

	// PromoCodeID links the referral used at checkout, nil when the user
	// subscribed without a partner code.
	PromoCodeID *uint `json:"promo_code_id" gorm:"index"`

	User      User       `json:"-" gorm:"foreignKey:UserID"`
	PromoCode *PromoCode `json:"-" gorm:"foreignKey:PromoCodeID"`
}

func ValidTier(t Tier) bool {
	switch t {
	case TierFree, TierPremium, TierSuperPremium:
		return true
	}
	return false
}
