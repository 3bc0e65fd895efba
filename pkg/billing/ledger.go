package billing

import (
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reeflog_backend/internal/model"
)

// InsertOutcome makes ledger idempotency an explicit branch instead of a
// caught duplicate-key error.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota
	AlreadyRecorded
)

// InsertEarning appends a commission ledger entry unless one already exists
// for the same Stripe invoice. A duplicate delivery lands on the unique
// stripe_invoice_id index and is reported as AlreadyRecorded, not as an
// error.
func InsertEarning(tx *gorm.DB, entry *model.AffiliateEarning) (InsertOutcome, error) {
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_invoice_id"}},
		DoNothing: true,
	}).Create(entry)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return AlreadyRecorded, nil
	}
	return Inserted, nil
}

// CommissionAmount rounds to the nearest minor unit: 499 cents at 5% is 25.
func CommissionAmount(amountPaid int64, rate float64) int64 {
	return int64(math.Round(float64(amountPaid) * rate))
}
