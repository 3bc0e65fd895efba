package billing_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"reeflog_backend/internal/model"
	"reeflog_backend/pkg/billing"
)

const testWebhookSecret = "whsec_test_secret"

type fakeFetcher struct {
	detail *billing.SubscriptionDetail
	err    error
}

func (f *fakeFetcher) FetchSubscription(id string) (*billing.SubscriptionDetail, error) {
	return f.detail, f.err
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Subscription{},
		&model.PromoCode{},
		&model.AffiliateEarning{},
	))
	return db
}

func newProcessor(t *testing.T, db *gorm.DB, fetcher billing.SubscriptionFetcher) *billing.Processor {
	t.Helper()
	return billing.NewProcessor(db, fetcher, billing.Config{
		WebhookSecret:  testWebhookSecret,
		CommissionRate: 0.05,
	})
}

func activeDetail(periodEnd time.Time) *billing.SubscriptionDetail {
	return &billing.SubscriptionDetail{
		Status:             "active",
		CustomerID:         "cus_123",
		CurrentPeriodStart: periodEnd.AddDate(0, -1, 0),
		CurrentPeriodEnd:   periodEnd,
	}
}

func eventPayload(t *testing.T, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_test_1",
		"object":      "event",
		"api_version": stripe.APIVersion,
		"type":        eventType,
		"data":        map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return payload
}

func signedHeader(t *testing.T, payload []byte) string {
	t.Helper()
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, payload, testWebhookSecret)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}

func TestHandleRejectsInvalidSignature(t *testing.T) {
	db := setupTestDB(t)
	p := newProcessor(t, db, &fakeFetcher{})

	payload := eventPayload(t, billing.EventCheckoutCompleted, map[string]interface{}{
		"id": "cs_test_1",
	})

	err := p.Handle(context.Background(), payload, "t=12345,v1=deadbeef")
	assert.ErrorIs(t, err, billing.ErrInvalidSignature)

	var count int64
	db.Model(&model.Subscription{}).Count(&count)
	assert.Zero(t, count, "a rejected event must not mutate anything")
}

func TestHandleDispatchesCheckoutCompleted(t *testing.T) {
	db := setupTestDB(t)
	periodEnd := time.Now().AddDate(0, 1, 0)
	p := newProcessor(t, db, &fakeFetcher{detail: activeDetail(periodEnd)})

	payload := eventPayload(t, billing.EventCheckoutCompleted, map[string]interface{}{
		"id":           "cs_test_1",
		"customer":     "cus_123",
		"subscription": "sub_123",
		"metadata": map[string]string{
			"user_id": "42",
			"tier":    "premium",
		},
	})

	require.NoError(t, p.Handle(context.Background(), payload, signedHeader(t, payload)))

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 42).First(&sub).Error)
	assert.Equal(t, model.TierPremium, sub.Tier)
	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
	require.NotNil(t, sub.StripeSubID)
	assert.Equal(t, "sub_123", *sub.StripeSubID)
}

func TestHandleAcknowledgesUnknownEventType(t *testing.T) {
	db := setupTestDB(t)
	p := newProcessor(t, db, &fakeFetcher{})

	payload := eventPayload(t, "customer.created", map[string]interface{}{"id": "cus_9"})
	assert.NoError(t, p.Handle(context.Background(), payload, signedHeader(t, payload)))
}

func TestCheckoutCompletedIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	periodEnd := time.Now().AddDate(0, 1, 0)
	p := newProcessor(t, db, &fakeFetcher{detail: activeDetail(periodEnd)})

	ev := &billing.CheckoutCompleted{
		SessionID:      "cs_test_1",
		SubscriptionID: "sub_123",
		CustomerID:     "cus_123",
		Metadata: map[string]string{
			"user_id": "7",
			"tier":    "super-premium",
		},
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, p.HandleCheckoutCompleted(context.Background(), ev))
	}

	var count int64
	db.Model(&model.Subscription{}).Count(&count)
	assert.EqualValues(t, 1, count, "replays must converge to a single row")

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 7).First(&sub).Error)
	assert.Equal(t, model.TierSuperPremium, sub.Tier)
	assert.Equal(t, "cus_123", sub.StripeCustomerID)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.WithinDuration(t, periodEnd, *sub.CurrentPeriodEnd, time.Second)
}

func TestCheckoutCompletedSkipsBadMetadata(t *testing.T) {
	db := setupTestDB(t)
	p := newProcessor(t, db, &fakeFetcher{detail: activeDetail(time.Now().AddDate(0, 1, 0))})

	cases := []map[string]string{
		{},
		{"tier": "premium"},
		{"user_id": "5"},
		{"user_id": "not-a-number", "tier": "premium"},
		{"user_id": "5", "tier": "platinum"},
		{"user_id": "5", "tier": "free"},
	}

	for _, metadata := range cases {
		ev := &billing.CheckoutCompleted{
			SessionID:      "cs_bad",
			SubscriptionID: "sub_123",
			Metadata:       metadata,
		}
		assert.NoError(t, p.HandleCheckoutCompleted(context.Background(), ev))
	}

	var count int64
	db.Model(&model.Subscription{}).Count(&count)
	assert.Zero(t, count)
}

func TestCheckoutCompletedResolvesPromoCode(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&model.PromoCode{
		Code:          "reef20",
		PartnerName:   "Reef Partner",
		DiscountType:  model.DiscountTypePercent,
		DiscountValue: 20,
		Active:        true,
	}).Error)

	p := newProcessor(t, db, &fakeFetcher{detail: activeDetail(time.Now().AddDate(0, 1, 0))})

	ev := &billing.CheckoutCompleted{
		SessionID:      "cs_promo",
		SubscriptionID: "sub_promo",
		CustomerID:     "cus_1",
		Metadata: map[string]string{
			"user_id":    "11",
			"tier":       "premium",
			"promo_code": "REEF20", // lookup is case-insensitive
		},
	}
	require.NoError(t, p.HandleCheckoutCompleted(context.Background(), ev))

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 11).First(&sub).Error)
	require.NotNil(t, sub.PromoCodeID)

	var promo model.PromoCode
	require.NoError(t, db.First(&promo, *sub.PromoCodeID).Error)
	assert.Equal(t, "reef20", promo.Code)
}

func TestCheckoutCompletedToleratesUnknownPromoCode(t *testing.T) {
	db := setupTestDB(t)
	p := newProcessor(t, db, &fakeFetcher{detail: activeDetail(time.Now().AddDate(0, 1, 0))})

	ev := &billing.CheckoutCompleted{
		SessionID:      "cs_promo",
		SubscriptionID: "sub_promo",
		Metadata: map[string]string{
			"user_id":    "12",
			"tier":       "premium",
			"promo_code": "no-such-code",
		},
	}
	require.NoError(t, p.HandleCheckoutCompleted(context.Background(), ev))

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 12).First(&sub).Error)
	assert.Nil(t, sub.PromoCodeID, "unknown codes drop referral tracking, nothing else")
}

func seedSubscription(t *testing.T, db *gorm.DB, userID uint, tier model.Tier, stripeSubID string, periodEnd *time.Time, promoCodeID *uint) {
	t.Helper()
	sub := model.Subscription{
		UserID:           userID,
		Tier:             tier,
		Status:           model.SubscriptionStatusActive,
		StripeSubID:      &stripeSubID,
		StripeCustomerID: "cus_seed",
		CurrentPeriodEnd: periodEnd,
		PromoCodeID:      promoCodeID,
	}
	require.NoError(t, db.Create(&sub).Error)
}

func TestSubscriptionUpdatedOverwritesStatusAndPeriod(t *testing.T) {
	db := setupTestDB(t)
	p := newProcessor(t, db, &fakeFetcher{})

	oldEnd := time.Now().AddDate(0, 1, 0)
	seedSubscription(t, db, 1, model.TierPremium, "sub_upd", &oldEnd, nil)

	newStart := time.Now()
	newEnd := time.Now().AddDate(0, 2, 0)
	ev := &billing.SubscriptionUpdated{
		SubscriptionID: "sub_upd",
		Status:         "active",
		PeriodStart:    newStart,
		PeriodEnd:      newEnd,
	}
	require.NoError(t, p.HandleSubscriptionUpdated(context.Background(), ev))

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 1).First(&sub).Error)
	assert.Equal(t, model.TierPremium, sub.Tier, "tier never changes on update")
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.WithinDuration(t, newEnd, *sub.CurrentPeriodEnd, time.Second)
}

func TestSubscriptionUpdatedUnknownSubscriptionIsAcknowledged(t *testing.T) {
	db := setupTestDB(t)
	p := newProcessor(t, db, &fakeFetcher{})

	ev := &billing.SubscriptionUpdated{
		SubscriptionID: "sub_missing",
		Status:         "active",
		PeriodStart:    time.Now(),
		PeriodEnd:      time.Now().AddDate(0, 1, 0),
	}
	assert.NoError(t, p.HandleSubscriptionUpdated(context.Background(), ev))
}

func TestSubscriptionDeletedGracePeriodKeepsTier(t *testing.T) {
	db := setupTestDB(t)
	p := newProcessor(t, db, &fakeFetcher{})

	futureEnd := time.Now().AddDate(0, 0, 14)
	seedSubscription(t, db, 2, model.TierPremium, "sub_del", &futureEnd, nil)

	ev := &billing.SubscriptionDeleted{SubscriptionID: "sub_del"}
	require.NoError(t, p.HandleSubscriptionDeleted(context.Background(), ev))

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 2).First(&sub).Error)
	assert.Equal(t, model.TierPremium, sub.Tier, "paid features stay during grace")
	assert.Equal(t, model.SubscriptionStatusCanceled, sub.Status)
	assert.Nil(t, sub.StripeSubID)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.WithinDuration(t, futureEnd, *sub.CurrentPeriodEnd, time.Second)
}

func TestSubscriptionDeletedExpiredDowngradesToFree(t *testing.T) {
	db := setupTestDB(t)
	p := newProcessor(t, db, &fakeFetcher{})

	pastEnd := time.Now().AddDate(0, 0, -1)
	seedSubscription(t, db, 3, model.TierSuperPremium, "sub_exp", &pastEnd, nil)

	ev := &billing.SubscriptionDeleted{SubscriptionID: "sub_exp"}
	require.NoError(t, p.HandleSubscriptionDeleted(context.Background(), ev))

	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", 3).First(&sub).Error)
	assert.Equal(t, model.TierFree, sub.Tier)
	assert.Equal(t, model.SubscriptionStatusCanceled, sub.Status)
	assert.Nil(t, sub.StripeSubID)
	assert.Empty(t, sub.StripeCustomerID)
	assert.Nil(t, sub.CurrentPeriodStart)
	assert.Nil(t, sub.CurrentPeriodEnd)
}

func TestInvoicePaidIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	p := newProcessor(t, db, &fakeFetcher{})

	promo := model.PromoCode{Code: "reef5", PartnerName: "Partner", Active: true}
	require.NoError(t, db.Create(&promo).Error)

	end := time.Now().AddDate(0, 1, 0)
	seedSubscription(t, db, 4, model.TierPremium, "sub_inv", &end, &promo.ID)

	ev := &billing.InvoicePaid{
		InvoiceID:       "in_1001",
		SubscriptionID:  "sub_inv",
		PaymentIntentID: "pi_1001",
		AmountPaid:      499,
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, p.HandleInvoicePaid(context.Background(), ev))
	}

	var entries []model.AffiliateEarning
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1, "one invoice id, one ledger row, no matter how often delivered")

	entry := entries[0]
	assert.Equal(t, promo.ID, entry.PromoCodeID)
	assert.EqualValues(t, 499, entry.AmountPaid)
	assert.EqualValues(t, 25, entry.CommissionAmount, "round(499 * 0.05) = 25")
	assert.Equal(t, model.EarningStatusPending, entry.Status)
	assert.Equal(t, model.TierPremium, entry.Tier)
}

func TestInvoicePaidNoReferralNoCommission(t *testing.T) {
	db := setupTestDB(t)
	p := newProcessor(t, db, &fakeFetcher{})

	end := time.Now().AddDate(0, 1, 0)
	seedSubscription(t, db, 5, model.TierPremium, "sub_noref", &end, nil)

	ev := &billing.InvoicePaid{
		InvoiceID:      "in_2001",
		SubscriptionID: "sub_noref",
		AmountPaid:     10000,
	}
	require.NoError(t, p.HandleInvoicePaid(context.Background(), ev))

	var count int64
	db.Model(&model.AffiliateEarning{}).Count(&count)
	assert.Zero(t, count)
}

func TestInvoicePaidIgnoresZeroAndUnknownSubscription(t *testing.T) {
	db := setupTestDB(t)
	p := newProcessor(t, db, &fakeFetcher{})

	assert.NoError(t, p.HandleInvoicePaid(context.Background(), &billing.InvoicePaid{
		InvoiceID:      "in_zero",
		SubscriptionID: "sub_any",
		AmountPaid:     0,
	}))
	assert.NoError(t, p.HandleInvoicePaid(context.Background(), &billing.InvoicePaid{
		InvoiceID:      "in_orphan",
		SubscriptionID: "sub_never_seen",
		AmountPaid:     500,
	}))

	var count int64
	db.Model(&model.AffiliateEarning{}).Count(&count)
	assert.Zero(t, count)
}

func TestCommissionAmount(t *testing.T) {
	cases := []struct {
		amount int64
		rate   float64
		want   int64
	}{
		{499, 0.05, 25},
		{10000, 0.05, 500},
		{1, 0.05, 0},
		{999, 0.05, 50},
		{0, 0.05, 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, billing.CommissionAmount(tc.amount, tc.rate),
			"amount=%d rate=%v", tc.amount, tc.rate)
	}
}
