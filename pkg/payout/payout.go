package payout

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reeflog_backend/internal/model"
)

var (
	ErrPartnerNotFound = errors.New("partner promo code not found")
	ErrNothingToPayout = errors.New("no pending earnings to pay out")

	// ErrPayoutConflict means a concurrent payout claimed some of the rows
	// first; the whole transaction rolls back and nothing is double-paid.
	ErrPayoutConflict = errors.New("pending earnings were claimed by a concurrent payout")
)

// Result summarizes one completed payout.
type Result struct {
	PromoCodeID uint   `json:"promo_code_id"`
	PartnerName string `json:"partner_name"`
	AmountPaid  int64  `json:"amount_paid"`
	EntryCount  int    `json:"entry_count"`
	Reference   string `json:"reference"`
}

// PartnerSummary aggregates a partner's referral performance for the admin
// surface.
type PartnerSummary struct {
	PromoCodeID       uint   `json:"promo_code_id"`
	Code              string `json:"code"`
	PartnerName       string `json:"partner_name"`
	PartnerEmail      string `json:"partner_email"`
	Active            bool   `json:"active"`
	UsesCount         int    `json:"uses_count"`
	ReferredCount     int64  `json:"referred_count"`
	TotalRevenue      int64  `json:"total_revenue"`
	PendingCommission int64  `json:"pending_commission"`
	PaidCommission    int64  `json:"paid_commission"`
}

// Processor marks pending ledger entries paid, one partner at a time.
type Processor struct {
	db *gorm.DB
}

func NewProcessor(db *gorm.DB) *Processor {
	return &Processor{db: db}
}

// Payout claims every pending earning of the partner in one transaction.
// The final UPDATE re-checks status = 'pending' per row, so two racing
// payout calls can never both claim the same entry: the loser sees a row
// count mismatch and rolls back.
func (p *Processor) Payout(promoCodeID uint, method, reference, notes string) (*Result, error) {
	var promo model.PromoCode
	err := p.db.First(&promo, promoCodeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPartnerNotFound
	}
	if err != nil {
		return nil, err
	}

	if reference == "" {
		reference = uuid.NewString()
	}

	result := &Result{
		PromoCodeID: promo.ID,
		PartnerName: promo.PartnerName,
		Reference:   reference,
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		var pending []model.AffiliateEarning
		if err := tx.Where("promo_code_id = ? AND status = ?", promoCodeID, model.EarningStatusPending).
			Find(&pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return ErrNothingToPayout
		}

		ids := make([]uint, 0, len(pending))
		var total int64
		for _, entry := range pending {
			ids = append(ids, entry.ID)
			total += entry.CommissionAmount
		}

		now := time.Now()
		claim := tx.Model(&model.AffiliateEarning{}).
			Where("id IN ? AND status = ?", ids, model.EarningStatusPending).
			Updates(map[string]interface{}{
				"status":           model.EarningStatusPaid,
				"paid_at":          now,
				"payout_method":    method,
				"payout_reference": reference,
				"payout_notes":     notes,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected != int64(len(ids)) {
			return ErrPayoutConflict
		}

		result.AmountPaid = total
		result.EntryCount = len(ids)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Paid out %d entries (%d minor units) to partner %s via %s",
		result.EntryCount, result.AmountPaid, promo.PartnerName, method)
	return result, nil
}

// Summary aggregates one partner.
func (p *Processor) Summary(promoCodeID uint) (*PartnerSummary, error) {
	var promo model.PromoCode
	err := p.db.First(&promo, promoCodeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPartnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return p.summarize(&promo)
}

// ListSummaries aggregates every partner for the admin dashboard.
func (p *Processor) ListSummaries() ([]PartnerSummary, error) {
	var codes []model.PromoCode
	if err := p.db.Order("created_at DESC").Find(&codes).Error; err != nil {
		return nil, err
	}

	summaries := make([]PartnerSummary, 0, len(codes))
	for i := range codes {
		summary, err := p.summarize(&codes[i])
		if err != nil {
			return nil, fmt.Errorf("could not summarize partner %s: %w", codes[i].Code, err)
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

func (p *Processor) summarize(promo *model.PromoCode) (*PartnerSummary, error) {
	summary := &PartnerSummary{
		PromoCodeID:  promo.ID,
		Code:         promo.Code,
		PartnerName:  promo.PartnerName,
		PartnerEmail: promo.PartnerEmail,
		Active:       promo.Active,
		UsesCount:    promo.UsesCount,
	}

	if err := p.db.Model(&model.Subscription{}).
		Where("promo_code_id = ?", promo.ID).
		Count(&summary.ReferredCount).Error; err != nil {
		return nil, err
	}

	type totals struct {
		Revenue int64
		Pending int64
		Paid    int64
	}
	var t totals
	err := p.db.Model(&model.AffiliateEarning{}).
		Select(
			"COALESCE(SUM(amount_paid), 0) AS revenue, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN commission_amount ELSE 0 END), 0) AS pending, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN commission_amount ELSE 0 END), 0) AS paid",
			model.EarningStatusPending, model.EarningStatusPaid,
		).
		Where("promo_code_id = ?", promo.ID).
		Scan(&t).Error
	if err != nil {
		return nil, err
	}

	summary.TotalRevenue = t.Revenue
	summary.PendingCommission = t.Pending
	summary.PaidCommission = t.Paid
	return summary, nil
}
