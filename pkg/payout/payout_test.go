package payout_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"reeflog_backend/internal/model"
	"reeflog_backend/pkg/payout"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Subscription{},
		&model.PromoCode{},
		&model.AffiliateEarning{},
	))
	return db
}

func seedPartner(t *testing.T, db *gorm.DB) *model.PromoCode {
	t.Helper()
	promo := model.PromoCode{
		Code:         "reefbuilders",
		PartnerName:  "Reef Builders",
		PartnerEmail: "partners@reefbuilders.example",
		Active:       true,
	}
	require.NoError(t, db.Create(&promo).Error)
	return &promo
}

func seedEarning(t *testing.T, db *gorm.DB, promoID uint, invoiceID string, amount, commission int64, status string) {
	t.Helper()
	require.NoError(t, db.Create(&model.AffiliateEarning{
		PromoCodeID:      promoID,
		UserID:           1,
		StripeInvoiceID:  invoiceID,
		AmountPaid:       amount,
		CommissionRate:   0.05,
		CommissionAmount: commission,
		Tier:             model.TierPremium,
		Status:           status,
	}).Error)
}

func TestPayoutClaimsAllPendingEntries(t *testing.T) {
	db := setupTestDB(t)
	p := payout.NewProcessor(db)
	promo := seedPartner(t, db)

	seedEarning(t, db, promo.ID, "in_1", 499, 25, model.EarningStatusPending)
	seedEarning(t, db, promo.ID, "in_2", 10000, 500, model.EarningStatusPending)
	seedEarning(t, db, promo.ID, "in_3", 499, 25, model.EarningStatusPaid)

	result, err := p.Payout(promo.ID, "paypal", "batch-2026-08", "august run")
	require.NoError(t, err)
	assert.EqualValues(t, 525, result.AmountPaid)
	assert.Equal(t, 2, result.EntryCount)
	assert.Equal(t, "batch-2026-08", result.Reference)
	assert.Equal(t, "Reef Builders", result.PartnerName)

	var paid []model.AffiliateEarning
	require.NoError(t, db.Where("promo_code_id = ? AND status = ?", promo.ID, model.EarningStatusPaid).
		Find(&paid).Error)
	assert.Len(t, paid, 3)
	for _, entry := range paid {
		if entry.StripeInvoiceID == "in_3" {
			continue
		}
		require.NotNil(t, entry.PaidAt)
		assert.Equal(t, "paypal", entry.PayoutMethod)
		assert.Equal(t, "batch-2026-08", entry.PayoutReference)
		assert.Equal(t, "august run", entry.PayoutNotes)
	}
}

func TestPayoutSecondRunHasNothingLeft(t *testing.T) {
	db := setupTestDB(t)
	p := payout.NewProcessor(db)
	promo := seedPartner(t, db)

	seedEarning(t, db, promo.ID, "in_1", 499, 25, model.EarningStatusPending)

	_, err := p.Payout(promo.ID, "bank", "", "")
	require.NoError(t, err)

	_, err = p.Payout(promo.ID, "bank", "", "")
	assert.ErrorIs(t, err, payout.ErrNothingToPayout)
}

func TestPayoutGeneratesReferenceWhenBlank(t *testing.T) {
	db := setupTestDB(t)
	p := payout.NewProcessor(db)
	promo := seedPartner(t, db)

	seedEarning(t, db, promo.ID, "in_1", 499, 25, model.EarningStatusPending)

	result, err := p.Payout(promo.ID, "bank", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Reference)

	var entry model.AffiliateEarning
	require.NoError(t, db.Where("stripe_invoice_id = ?", "in_1").First(&entry).Error)
	assert.Equal(t, result.Reference, entry.PayoutReference)
}

func TestPayoutConcurrentRunsClaimOnce(t *testing.T) {
	db := setupTestDB(t)
	p := payout.NewProcessor(db)
	promo := seedPartner(t, db)

	seedEarning(t, db, promo.ID, "in_1", 499, 25, model.EarningStatusPending)
	seedEarning(t, db, promo.ID, "in_2", 10000, 500, model.EarningStatusPending)

	type attempt struct {
		result *payout.Result
		err    error
	}
	results := make(chan attempt, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := p.Payout(promo.ID, "bank", "", "")
			results <- attempt{result, err}
		}()
	}
	wg.Wait()
	close(results)

	var winners []*payout.Result
	for a := range results {
		if a.err == nil {
			winners = append(winners, a.result)
			continue
		}
		// The loser either saw no pending rows left or lost the claim race.
		ok := errors.Is(a.err, payout.ErrNothingToPayout) ||
			errors.Is(a.err, payout.ErrPayoutConflict)
		assert.True(t, ok, "unexpected loser error: %v", a.err)
	}

	require.Len(t, winners, 1, "exactly one payout may claim the pending set")
	assert.EqualValues(t, 525, winners[0].AmountPaid)
	assert.Equal(t, 2, winners[0].EntryCount)

	var entries []model.AffiliateEarning
	require.NoError(t, db.Where("promo_code_id = ?", promo.ID).Find(&entries).Error)
	for _, entry := range entries {
		assert.Equal(t, model.EarningStatusPaid, entry.Status)
		assert.Equal(t, winners[0].Reference, entry.PayoutReference,
			"every entry carries the single winning batch reference")
	}
}

func TestPayoutUnknownPartner(t *testing.T) {
	db := setupTestDB(t)
	p := payout.NewProcessor(db)

	_, err := p.Payout(12345, "bank", "", "")
	assert.ErrorIs(t, err, payout.ErrPartnerNotFound)
}

func TestPayoutOnlyTouchesOnePartner(t *testing.T) {
	db := setupTestDB(t)
	p := payout.NewProcessor(db)

	first := seedPartner(t, db)
	other := model.PromoCode{Code: "coralclub", PartnerName: "Coral Club", Active: true}
	require.NoError(t, db.Create(&other).Error)

	seedEarning(t, db, first.ID, "in_1", 499, 25, model.EarningStatusPending)
	seedEarning(t, db, other.ID, "in_2", 499, 25, model.EarningStatusPending)

	_, err := p.Payout(first.ID, "bank", "", "")
	require.NoError(t, err)

	var entry model.AffiliateEarning
	require.NoError(t, db.Where("stripe_invoice_id = ?", "in_2").First(&entry).Error)
	assert.Equal(t, model.EarningStatusPending, entry.Status)
}

func TestSummaryAggregates(t *testing.T) {
	db := setupTestDB(t)
	p := payout.NewProcessor(db)
	promo := seedPartner(t, db)

	require.NoError(t, db.Model(&model.PromoCode{}).
		Where("id = ?", promo.ID).Update("uses_count", 3).Error)

	subID := "sub_ref"
	require.NoError(t, db.Create(&model.Subscription{
		UserID:      9,
		Tier:        model.TierPremium,
		Status:      model.SubscriptionStatusActive,
		StripeSubID: &subID,
		PromoCodeID: &promo.ID,
	}).Error)

	seedEarning(t, db, promo.ID, "in_1", 499, 25, model.EarningStatusPending)
	seedEarning(t, db, promo.ID, "in_2", 10000, 500, model.EarningStatusPaid)

	summary, err := p.Summary(promo.ID)
	require.NoError(t, err)
	assert.Equal(t, "reefbuilders", summary.Code)
	assert.Equal(t, 3, summary.UsesCount)
	assert.EqualValues(t, 1, summary.ReferredCount)
	assert.EqualValues(t, 10499, summary.TotalRevenue)
	assert.EqualValues(t, 25, summary.PendingCommission)
	assert.EqualValues(t, 500, summary.PaidCommission)

	_, err = p.Summary(9999)
	assert.ErrorIs(t, err, payout.ErrPartnerNotFound)
}

func TestListSummariesCoversEveryPartner(t *testing.T) {
	db := setupTestDB(t)
	p := payout.NewProcessor(db)

	seedPartner(t, db)
	other := model.PromoCode{Code: "coralclub", PartnerName: "Coral Club", Active: true}
	require.NoError(t, db.Create(&other).Error)

	summaries, err := p.ListSummaries()
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}
