package model

import (
	"time"

	"gorm.io/gorm"
)

// AffiliateEarning statuses
const (
	EarningStatusPending = "pending"
	EarningStatusPaid    = "paid"
)

// AffiliateEarning is an append-only commission ledger entry. StripeInvoiceID
// is the natural idempotency key: a given invoice produces at most one entry
// no matter how often Stripe redelivers the event. The only mutation a row
// ever sees is the pending -> paid flip applied by the payout processor.
type AffiliateEarning struct {
	gorm.Model
	PromoCodeID uint `json:"promo_code_id" gorm:"index;not null"`
	UserID      uint `json:"user_id" gorm:"not null"`

	StripeInvoiceID string `json:"stripe_invoice_id" gorm:"uniqueIndex;not null"`
	StripePaymentID string `json:"stripe_payment_id"`

	// Amounts are integer minor currency units (cents).
	AmountPaid       int64   `json:"amount_paid" gorm:"not null"`
	CommissionRate   float64 `json:"commission_rate" gorm:"not null"`
	CommissionAmount int64   `json:"commission_amount" gorm:"not null"`

	Tier   Tier   `json:"tier" gorm:"not null"`
	Status string `json:"status" gorm:"not null;default:'pending';index"`

	PaidAt          *time.Time `json:"paid_at"`
	PayoutMethod    string     `json:"payout_method"`
	PayoutReference string     `json:"payout_reference"`
	PayoutNotes     string     `json:"payout_notes"`

	PromoCode PromoCode `json:"-" gorm:"foreignKey:PromoCodeID"`
}
