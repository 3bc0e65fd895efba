package cron

import "log"

func (j *Jobs) deactivateExpiredPromoCodes() {
	count, err := j.promos.DeactivateExpired()
	if err != nil {
		log.Printf("Error deactivating expired promo codes: %v", err)
		return
	}
	if count > 0 {
		log.Printf("Deactivated %d expired promo codes", count)
	}
}
