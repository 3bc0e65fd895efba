package promo

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"reeflog_backend/internal/model"
)

var (
	ErrCodeNotFound       = errors.New("promo code not found")
	ErrCodeInactive       = errors.New("promo code is not active")
	ErrCodeExpired        = errors.New("promo code has expired")
	ErrUsageLimitExceeded = errors.New("promo code usage limit exceeded")
	ErrCodeExists         = errors.New("promo code already exists")
	ErrCodeHasEarnings    = errors.New("promo code has commission entries and cannot be deleted")
)

// DiscountInfo is what a successful validation returns to the checkout flow.
type DiscountInfo struct {
	PromoCodeID   uint           `json:"promo_code_id"`
	Code          string         `json:"code"`
	DiscountType  string         `json:"discount_type"`
	DiscountValue int64          `json:"discount_value"`
	AppliesTo     datatypes.JSON `json:"applies_to"`
}

// Registry manages partner promo codes.
type Registry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Validate looks a code up case-insensitively without mutating anything.
func (r *Registry) Validate(code string) (*DiscountInfo, error) {
	var promo model.PromoCode
	err := r.db.Where("code = ?", strings.ToLower(code)).First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}

	if !promo.Active {
		return nil, ErrCodeInactive
	}
	if promo.ExpiresAt != nil && !promo.ExpiresAt.After(time.Now()) {
		return nil, ErrCodeExpired
	}
	if promo.MaxUses != nil && promo.UsesCount >= *promo.MaxUses {
		return nil, ErrUsageLimitExceeded
	}

	return &DiscountInfo{
		PromoCodeID:   promo.ID,
		Code:          promo.Code,
		DiscountType:  promo.DiscountType,
		DiscountValue: promo.DiscountValue,
		AppliesTo:     promo.AppliesTo,
	}, nil
}

// Redeem increments the usage count with a single guarded UPDATE so two
// concurrent redemptions can never jointly exceed the cap. The increment and
// the cap check happen in the store, not in application code.
func (r *Registry) Redeem(code string, userID uint) (*DiscountInfo, error) {
	info, err := r.Validate(code)
	if err != nil {
		return nil, err
	}

	result := r.db.Model(&model.PromoCode{}).
		Where("id = ? AND active = ?", info.PromoCodeID, true).
		Where("max_uses IS NULL OR uses_count < max_uses").
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Update("uses_count", gorm.Expr("uses_count + 1"))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost the race against a concurrent redemption or a deactivation.
		return nil, ErrUsageLimitExceeded
	}

	log.Printf("Promo code %s redeemed by user %d", info.Code, userID)
	return info, nil
}

type CreateInput struct {
	Code          string     `json:"code"`
	PartnerName   string     `json:"partner_name" validate:"required"`
	PartnerEmail  string     `json:"partner_email"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue int64      `json:"discount_value"`
	AppliesTo     []string   `json:"applies_to"`
	MaxUses       *int       `json:"max_uses"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

// Create registers a new partner code. A blank code is derived from the
// partner name. The stored code is lowercase and immutable afterwards.
func (r *Registry) Create(input CreateInput) (*model.PromoCode, error) {
	code := strings.ToLower(strings.TrimSpace(input.Code))
	if code == "" {
		code = slug.Make(input.PartnerName)
	}

	discountType := input.DiscountType
	if discountType == "" {
		discountType = model.DiscountTypePercent
	}

	promo := model.PromoCode{
		Code:          code,
		PartnerName:   input.PartnerName,
		PartnerEmail:  input.PartnerEmail,
		DiscountType:  discountType,
		DiscountValue: input.DiscountValue,
		MaxUses:       input.MaxUses,
		ExpiresAt:     input.ExpiresAt,
		Active:        true,
	}

	if len(input.AppliesTo) > 0 {
		raw, err := json.Marshal(input.AppliesTo)
		if err != nil {
			return nil, fmt.Errorf("could not encode applies_to: %w", err)
		}
		promo.AppliesTo = datatypes.JSON(raw)
	}

	var existing model.PromoCode
	if err := r.db.Where("code = ?", code).First(&existing).Error; err == nil {
		return nil, ErrCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.db.Create(&promo).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *Registry) List() ([]model.PromoCode, error) {
	var codes []model.PromoCode
	if err := r.db.Order("created_at DESC").Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *Registry) Get(id uint) (*model.PromoCode, error) {
	var promo model.PromoCode
	err := r.db.First(&promo, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *Registry) SetActive(id uint, active bool) error {
	result := r.db.Model(&model.PromoCode{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCodeNotFound
	}
	return nil
}

// Delete removes a code that was never used for commission. Codes with
// ledger entries stay forever so the earnings keep a valid reference;
// deactivation is the way to retire them.
func (r *Registry) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var promo model.PromoCode
		err := tx.First(&promo, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeNotFound
		}
		if err != nil {
			return err
		}

		var earnings int64
		if err := tx.Model(&model.AffiliateEarning{}).
			Where("promo_code_id = ?", id).
			Count(&earnings).Error; err != nil {
			return err
		}
		if earnings > 0 {
			return ErrCodeHasEarnings
		}

		return tx.Delete(&promo).Error
	})
}

// DeactivateExpired flips active off for every code past its expiry. Run
// from the daily cron.
func (r *Registry) DeactivateExpired() (int64, error) {
	result := r.db.Model(&model.PromoCode{}).
		Where("active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, time.Now()).
		Update("active", false)
	return result.RowsAffected, result.Error
}
