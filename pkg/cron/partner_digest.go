package cron

import (
	"fmt"
	"log"
	"time"
)

// sendPartnerDigests mails every partner their monthly referral summary.
func (j *Jobs) sendPartnerDigests() {
	log.Println("Sending partner earning digests...")

	if j.email == nil {
		return
	}

	summaries, err := j.payouts.ListSummaries()
	if err != nil {
		log.Printf("Error building partner summaries: %v", err)
		return
	}

	for _, summary := range summaries {
		if summary.PartnerEmail == "" {
			continue
		}
		err := j.email.SendPartnerDigest(
			summary.PartnerEmail,
			summary.PartnerName,
			summary.Code,
			summary.ReferredCount,
			formatAmount(summary.PendingCommission),
			formatAmount(summary.PaidCommission),
			time.Now(),
		)
		if err != nil {
			log.Printf("Error sending digest to %s: %v", summary.PartnerEmail, err)
		}
	}
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
