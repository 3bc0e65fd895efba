package cron

import (
	"log"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"reeflog_backend/pkg/email"
	"reeflog_backend/pkg/payout"
	"reeflog_backend/pkg/promo"
)

// Jobs bundles the scheduled background work. Dependencies are injected so
// the jobs share the same handles as the HTTP layer.
type Jobs struct {
	db      *gorm.DB
	email   *email.Service
	promos  *promo.Registry
	payouts *payout.Processor
}

func NewJobs(db *gorm.DB, emailService *email.Service, promos *promo.Registry, payouts *payout.Processor) *Jobs {
	return &Jobs{
		db:      db,
		email:   emailService,
		promos:  promos,
		payouts: payouts,
	}
}

func (j *Jobs) Start() *cron.Cron {
	c := cron.New()

	schedule := func(spec string, name string, fn func()) {
		if _, err := c.AddFunc(spec, fn); err != nil {
			log.Printf("Could not schedule %s job: %v", name, err)
		}
	}

	schedule("0 3 * * *", "promo expiry", j.deactivateExpiredPromoCodes)
	schedule("0 9 * * *", "subscription expiry warning", j.checkExpiringSubscriptions)
	schedule("0 8 1 * *", "partner digest", j.sendPartnerDigests)

	c.Start()
	return c
}
