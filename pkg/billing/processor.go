package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74/webhook"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reeflog_backend/internal/model"
)

// Config carries the processor's knobs; it is injected, never read from
// package state.
type Config struct {
	WebhookSecret  string
	CommissionRate float64
}

// Processor verifies, decodes and applies Stripe webhook events. Every
// handler is idempotent and runs inside its own transaction, so the caller
// may safely answer 5xx on failure and let Stripe redeliver.
type Processor struct {
	db      *gorm.DB
	fetcher SubscriptionFetcher
	cfg     Config
}

func NewProcessor(db *gorm.DB, fetcher SubscriptionFetcher, cfg Config) *Processor {
	return &Processor{
		db:      db,
		fetcher: fetcher,
		cfg:     cfg,
	}
}

// Handle authenticates the raw payload and dispatches it by event type.
func (p *Processor) Handle(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEvent(payload, sigHeader, p.cfg.WebhookSecret)
	if err != nil {
		return ErrInvalidSignature
	}

	log.Printf("Processing Stripe webhook event: %s", event.Type)

	switch event.Type {
	case EventCheckoutCompleted:
		ev, err := decodeCheckoutCompleted(event.Data.Raw)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return p.HandleCheckoutCompleted(ctx, ev)

	case EventSubscriptionUpdated:
		ev, err := decodeSubscriptionUpdated(event.Data.Raw)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return p.HandleSubscriptionUpdated(ctx, ev)

	case EventSubscriptionDeleted:
		ev, err := decodeSubscriptionDeleted(event.Data.Raw)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return p.HandleSubscriptionDeleted(ctx, ev)

	case EventInvoicePaid:
		ev, err := decodeInvoicePaid(event.Data.Raw)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return p.HandleInvoicePaid(ctx, ev)

	case EventInvoicePaymentFailed:
		log.Printf("Invoice payment failed event received, no action taken")
		return nil

	default:
		// Unrecognized types are acknowledged so Stripe stops resending.
		return nil
	}
}

// HandleCheckoutCompleted creates or overwrites the user's subscription row.
// The upsert keyed on user_id makes replays converge to the same row.
func (p *Processor) HandleCheckoutCompleted(ctx context.Context, ev *CheckoutCompleted) error {
	userID, tier, ok := parseCheckoutMetadata(ev.Metadata)
	if !ok {
		// Garbage metadata must not cause a redelivery storm: log and ack.
		log.Printf("Checkout session %s has missing or invalid metadata, skipping", ev.SessionID)
		return nil
	}

	detail, err := p.fetcher.FetchSubscription(ev.SubscriptionID)
	if err != nil {
		return fmt.Errorf("could not fetch subscription detail: %w", err)
	}

	customerID := ev.CustomerID
	if customerID == "" {
		customerID = detail.CustomerID
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var promoCodeID *uint
		if code := ev.Metadata[MetaPromoCode]; code != "" {
			var promo model.PromoCode
			err := tx.Where("code = ?", strings.ToLower(code)).First(&promo).Error
			switch {
			case err == nil:
				promoCodeID = &promo.ID
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Unknown codes are tolerated, the referral is simply not tracked.
				log.Printf("Checkout session %s references unknown promo code %q", ev.SessionID, code)
			default:
				return err
			}
		}

		subID := ev.SubscriptionID
		periodStart := detail.CurrentPeriodStart
		periodEnd := detail.CurrentPeriodEnd

		row := model.Subscription{
			UserID:             userID,
			Tier:               tier,
			Status:             subscriptionStatus(detail.Status),
			StripeSubID:        &subID,
			StripeCustomerID:   customerID,
			CurrentPeriodStart: &periodStart,
			CurrentPeriodEnd:   &periodEnd,
			PromoCodeID:        promoCodeID,
		}

		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"tier", "status", "stripe_sub_id", "stripe_customer_id",
				"current_period_start", "current_period_end", "promo_code_id",
				"updated_at",
			}),
		}).Create(&row).Error
	})
}

// HandleSubscriptionUpdated overwrites status and period bounds. Tier never
// changes here; it is only set at checkout or on downgrade.
func (p *Processor) HandleSubscriptionUpdated(ctx context.Context, ev *SubscriptionUpdated) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub model.Subscription
		err := tx.Where("stripe_sub_id = ?", ev.SubscriptionID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Subscription update for unknown subscription %s, skipping", ev.SubscriptionID)
			return nil
		}
		if err != nil {
			return err
		}

		return tx.Model(&sub).Updates(map[string]interface{}{
			"status":               subscriptionStatus(ev.Status),
			"current_period_start": ev.PeriodStart,
			"current_period_end":   ev.PeriodEnd,
		}).Error
	})
}

// HandleSubscriptionDeleted applies the terminal transitions of the
// lifecycle: active -> canceled(grace) -> free. If the paid period already
// ran out at processing time the row drops straight to free; otherwise the
// tier and period end stay so the user keeps paid features until the period
// lapses. No job promotes a grace row to free later; readers go through
// subscription.EffectiveTier.
func (p *Processor) HandleSubscriptionDeleted(ctx context.Context, ev *SubscriptionDeleted) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub model.Subscription
		err := tx.Where("stripe_sub_id = ?", ev.SubscriptionID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Subscription deletion for unknown subscription %s, skipping", ev.SubscriptionID)
			return nil
		}
		if err != nil {
			return err
		}

		if sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(time.Now()) {
			// Grace period: keep the tier and period end.
			return tx.Model(&sub).Updates(map[string]interface{}{
				"status":        model.SubscriptionStatusCanceled,
				"stripe_sub_id": nil,
			}).Error
		}

		// Already expired, downgrade immediately.
		return tx.Model(&sub).Updates(map[string]interface{}{
			"tier":                 model.TierFree,
			"status":               model.SubscriptionStatusCanceled,
			"stripe_sub_id":        nil,
			"stripe_customer_id":   "",
			"current_period_start": nil,
			"current_period_end":   nil,
		}).Error
	})
}

// HandleInvoicePaid accrues partner commission for referred subscriptions.
// The unique invoice id guards the insert, so redelivered events never write
// a second ledger row. A payment during the canceled grace period does not
// re-activate the subscription; the commission still accrues because the
// money was collected.
func (p *Processor) HandleInvoicePaid(ctx context.Context, ev *InvoicePaid) error {
	if ev.AmountPaid <= 0 {
		return nil
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub model.Subscription
		err := tx.Where("stripe_sub_id = ?", ev.SubscriptionID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Invoice %s paid for unknown subscription %s, skipping", ev.InvoiceID, ev.SubscriptionID)
			return nil
		}
		if err != nil {
			return err
		}

		if sub.PromoCodeID == nil {
			// No referral, no commission.
			return nil
		}

		entry := model.AffiliateEarning{
			PromoCodeID:      *sub.PromoCodeID,
			UserID:           sub.UserID,
			StripeInvoiceID:  ev.InvoiceID,
			StripePaymentID:  ev.PaymentIntentID,
			AmountPaid:       ev.AmountPaid,
			CommissionRate:   p.cfg.CommissionRate,
			CommissionAmount: CommissionAmount(ev.AmountPaid, p.cfg.CommissionRate),
			Tier:             sub.Tier,
			Status:           model.EarningStatusPending,
		}

		outcome, err := InsertEarning(tx, &entry)
		if err != nil {
			return err
		}
		if outcome == AlreadyRecorded {
			log.Printf("Invoice %s already has a commission entry, skipping", ev.InvoiceID)
		}
		return nil
	})
}

func parseCheckoutMetadata(metadata map[string]string) (uint, model.Tier, bool) {
	rawUserID, okUser := metadata[MetaUserID]
	rawTier, okTier := metadata[MetaTier]
	if !okUser || !okTier {
		return 0, "", false
	}

	userID, err := strconv.ParseUint(rawUserID, 10, 32)
	if err != nil || userID == 0 {
		return 0, "", false
	}

	tier := model.Tier(rawTier)
	if !model.ValidTier(tier) || tier == model.TierFree {
		return 0, "", false
	}

	return uint(userID), tier, true
}

// subscriptionStatus folds Stripe's status vocabulary into ours: the row is
// either still billable or it is canceled.
func subscriptionStatus(stripeStatus string) string {
	if stripeStatus == "canceled" {
		return model.SubscriptionStatusCanceled
	}
	return model.SubscriptionStatusActive
}
