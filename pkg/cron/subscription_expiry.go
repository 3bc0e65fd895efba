package cron

import (
	"log"
	"time"

	"reeflog_backend/internal/model"
)

func (j *Jobs) checkExpiringSubscriptions() {
	log.Println("Checking for expiring subscriptions...")

	warningDays := []int{7, 3}

	for _, days := range warningDays {
		var subs []model.Subscription
		windowStart := time.Now().AddDate(0, 0, days).Truncate(24 * time.Hour)
		windowEnd := windowStart.Add(24 * time.Hour)

		err := j.db.Where("current_period_end >= ? AND current_period_end < ? AND status = ?",
			windowStart, windowEnd, model.SubscriptionStatusActive).
			Preload("User").
			Find(&subs).Error
		if err != nil {
			log.Printf("Error fetching expiring subscriptions: %v", err)
			continue
		}

		log.Printf("Found %d subscriptions expiring in %d days", len(subs), days)

		if j.email == nil {
			continue
		}

		for _, sub := range subs {
			if sub.CurrentPeriodEnd == nil {
				continue
			}
			err := j.email.SendSubscriptionExpiryWarning(
				sub.User.Email,
				sub.User.GetFullName(),
				string(sub.Tier),
				*sub.CurrentPeriodEnd,
				days,
			)
			if err != nil {
				log.Printf("Error sending expiry warning to %s: %v", sub.User.Email, err)
			}
		}
	}
}
