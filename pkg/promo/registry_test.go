package promo_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"reeflog_backend/internal/model"
	"reeflog_backend/pkg/promo"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&model.PromoCode{}, &model.AffiliateEarning{}))
	return db
}

func TestCreateNormalizesAndRejectsDuplicates(t *testing.T) {
	db := setupTestDB(t)
	r := promo.NewRegistry(db)

	created, err := r.Create(promo.CreateInput{
		Code:          "  REEF20 ",
		PartnerName:   "Reef Builders",
		DiscountValue: 20,
		AppliesTo:     []string{"premium", "super-premium"},
	})
	require.NoError(t, err)
	assert.Equal(t, "reef20", created.Code)
	assert.Equal(t, model.DiscountTypePercent, created.DiscountType)
	assert.True(t, created.Active)

	_, err = r.Create(promo.CreateInput{Code: "reef20", PartnerName: "Someone Else"})
	assert.ErrorIs(t, err, promo.ErrCodeExists)
}

func TestCreateDerivesCodeFromPartnerName(t *testing.T) {
	db := setupTestDB(t)
	r := promo.NewRegistry(db)

	created, err := r.Create(promo.CreateInput{PartnerName: "Coral Club NYC"})
	require.NoError(t, err)
	assert.Equal(t, "coral-club-nyc", created.Code)
}

func TestValidatePaths(t *testing.T) {
	db := setupTestDB(t)
	r := promo.NewRegistry(db)

	yesterday := time.Now().AddDate(0, 0, -1)
	one := 1
	require.NoError(t, db.Create(&model.PromoCode{Code: "good", PartnerName: "P", Active: true}).Error)
	require.NoError(t, db.Create(&model.PromoCode{Code: "off", PartnerName: "P", Active: false}).Error)
	require.NoError(t, db.Create(&model.PromoCode{Code: "old", PartnerName: "P", Active: true, ExpiresAt: &yesterday}).Error)
	require.NoError(t, db.Create(&model.PromoCode{Code: "used", PartnerName: "P", Active: true, MaxUses: &one, UsesCount: 1}).Error)

	info, err := r.Validate("GOOD") // lookup is case-insensitive
	require.NoError(t, err)
	assert.Equal(t, "good", info.Code)

	_, err = r.Validate("nope")
	assert.ErrorIs(t, err, promo.ErrCodeNotFound)

	_, err = r.Validate("off")
	assert.ErrorIs(t, err, promo.ErrCodeInactive)

	_, err = r.Validate("old")
	assert.ErrorIs(t, err, promo.ErrCodeExpired)

	_, err = r.Validate("used")
	assert.ErrorIs(t, err, promo.ErrUsageLimitExceeded)
}

func TestValidateDoesNotConsumeUses(t *testing.T) {
	db := setupTestDB(t)
	r := promo.NewRegistry(db)

	require.NoError(t, db.Create(&model.PromoCode{Code: "peek", PartnerName: "P", Active: true}).Error)

	for i := 0; i < 5; i++ {
		_, err := r.Validate("peek")
		require.NoError(t, err)
	}

	var code model.PromoCode
	require.NoError(t, db.Where("code = ?", "peek").First(&code).Error)
	assert.Zero(t, code.UsesCount)
}

func TestRedeemEnforcesUsageCap(t *testing.T) {
	db := setupTestDB(t)
	r := promo.NewRegistry(db)

	one := 1
	require.NoError(t, db.Create(&model.PromoCode{
		Code: "single", PartnerName: "P", Active: true, MaxUses: &one,
	}).Error)

	info, err := r.Redeem("single", 1)
	require.NoError(t, err)
	assert.Equal(t, "single", info.Code)

	_, err = r.Redeem("single", 2)
	assert.ErrorIs(t, err, promo.ErrUsageLimitExceeded)

	var code model.PromoCode
	require.NoError(t, db.Where("code = ?", "single").First(&code).Error)
	assert.Equal(t, 1, code.UsesCount, "the cap can never be exceeded")
}

func TestRedeemUnlimitedCode(t *testing.T) {
	db := setupTestDB(t)
	r := promo.NewRegistry(db)

	require.NoError(t, db.Create(&model.PromoCode{Code: "open", PartnerName: "P", Active: true}).Error)

	for i := 0; i < 10; i++ {
		_, err := r.Redeem("open", uint(i+1))
		require.NoError(t, err)
	}

	var code model.PromoCode
	require.NoError(t, db.Where("code = ?", "open").First(&code).Error)
	assert.Equal(t, 10, code.UsesCount)
}

func TestSetActive(t *testing.T) {
	db := setupTestDB(t)
	r := promo.NewRegistry(db)

	code := model.PromoCode{Code: "toggle", PartnerName: "P", Active: true}
	require.NoError(t, db.Create(&code).Error)

	require.NoError(t, r.SetActive(code.ID, false))
	_, err := r.Validate("toggle")
	assert.ErrorIs(t, err, promo.ErrCodeInactive)

	require.NoError(t, r.SetActive(code.ID, true))
	_, err = r.Validate("toggle")
	assert.NoError(t, err)

	assert.ErrorIs(t, r.SetActive(9999, false), promo.ErrCodeNotFound)
}

func TestDeleteBlockedByEarnings(t *testing.T) {
	db := setupTestDB(t)
	r := promo.NewRegistry(db)

	code := model.PromoCode{Code: "earned", PartnerName: "P", Active: true}
	require.NoError(t, db.Create(&code).Error)
	require.NoError(t, db.Create(&model.AffiliateEarning{
		PromoCodeID:      code.ID,
		UserID:           1,
		StripeInvoiceID:  "in_1",
		AmountPaid:       499,
		CommissionRate:   0.05,
		CommissionAmount: 25,
		Tier:             model.TierPremium,
		Status:           model.EarningStatusPending,
	}).Error)

	assert.ErrorIs(t, r.Delete(code.ID), promo.ErrCodeHasEarnings)

	clean := model.PromoCode{Code: "unused", PartnerName: "P", Active: true}
	require.NoError(t, db.Create(&clean).Error)
	require.NoError(t, r.Delete(clean.ID))
	assert.ErrorIs(t, r.Delete(clean.ID), promo.ErrCodeNotFound)
}

func TestDeactivateExpired(t *testing.T) {
	db := setupTestDB(t)
	r := promo.NewRegistry(db)

	past := time.Now().AddDate(0, 0, -1)
	future := time.Now().AddDate(0, 1, 0)
	require.NoError(t, db.Create(&model.PromoCode{Code: "stale", PartnerName: "P", Active: true, ExpiresAt: &past}).Error)
	require.NoError(t, db.Create(&model.PromoCode{Code: "fresh", PartnerName: "P", Active: true, ExpiresAt: &future}).Error)
	require.NoError(t, db.Create(&model.PromoCode{Code: "forever", PartnerName: "P", Active: true}).Error)

	n, err := r.DeactivateExpired()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var stale model.PromoCode
	require.NoError(t, db.Where("code = ?", "stale").First(&stale).Error)
	assert.False(t, stale.Active)

	var fresh model.PromoCode
	require.NoError(t, db.Where("code = ?", "fresh").First(&fresh).Error)
	assert.True(t, fresh.Active)
}
