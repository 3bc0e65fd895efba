package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Discount kinds
const (
	DiscountTypePercent = "percent"
	DiscountTypeFixed   = "fixed"
)

// PromoCode is a partner referral code. The code string is stored lowercase
// and is immutable after creation; lookups are case-insensitive.
type PromoCode struct {
	gorm.Model
	Code         string `json:"code" gorm:"uniqueIndex;not null"`
	PartnerName  string `json:"partner_name" gorm:"not null"`
	PartnerEmail string `json:"partner_email"`

	DiscountType  string `json:"discount_type" gorm:"not null;default:'percent'"`
	DiscountValue int64  `json:"discount_value" gorm:"not null"`

	// AppliesTo is the list of tiers the discount applies to, e.g.
	// ["premium","super-premium"]. Empty means all paid tiers.
	AppliesTo datatypes.JSON `json:"applies_to"`

	// MaxUses nil means unlimited redemptions.
	MaxUses   *int       `json:"max_uses"`
	UsesCount int        `json:"uses_count" gorm:"not null;default:0"`
	ExpiresAt *time.Time `json:"expires_at"`

	// No column default here: GORM skips zero-valued fields that carry a
	// default tag on insert, which would turn Active=false into active rows.
	// Registry.Create sets the flag explicitly.
	Active bool `json:"active" gorm:"not null"`

	Earnings []AffiliateEarning `json:"-" gorm:"foreignKey:PromoCodeID"`
}
