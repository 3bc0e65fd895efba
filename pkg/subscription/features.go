package subscription

import (
	"time"

	"reeflog_backend/internal/model"
)

type Feature string

const (
	ParameterCharts Feature = "parameter_charts"
	PhotoGallery    Feature = "photo_gallery"
	CsvExport       Feature = "csv_export"
	EmailSupport    Feature = "email_support"
	PrioritySupport Feature = "priority_support"
)

type TierLimits struct {
	MaxTanks         int
	MaxPhotosPerTank int
	AllowedFeatures  map[Feature]bool
}

var TierFeatures = map[model.Tier]TierLimits{
	model.TierFree: {
		MaxTanks:         1,
		MaxPhotosPerTank: 5,
		AllowedFeatures: map[Feature]bool{
			ParameterCharts: false,
			PhotoGallery:    false,
			CsvExport:       false,
			EmailSupport:    false,
			PrioritySupport: false,
		},
	},
	model.TierPremium: {
		MaxTanks:         5,
		MaxPhotosPerTank: 50,
		AllowedFeatures: map[Feature]bool{
			ParameterCharts: true,
			PhotoGallery:    true,
			CsvExport:       true,
			EmailSupport:    true,
			PrioritySupport: false,
		},
	},
	model.TierSuperPremium: {
		MaxTanks:         25,
		MaxPhotosPerTank: 200,
		AllowedFeatures: map[Feature]bool{
			ParameterCharts: true,
			PhotoGallery:    true,
			CsvExport:       true,
			EmailSupport:    true,
			PrioritySupport: true,
		},
	},
}

func CanUseFeature(tier model.Tier, feature Feature) bool {
	limits, exists := TierFeatures[tier]
	if !exists {
		return false
	}
	return limits.AllowedFeatures[feature]
}

func GetTierLimits(tier model.Tier) TierLimits {
	return TierFeatures[tier]
}

// EffectiveTier is the access contract for canceled subscriptions: after a
// cancellation the stored tier is kept until the paid period runs out, so
// readers must compare the period end against the clock instead of trusting
// the tier column alone. No job downgrades the row when the grace period
// ends.
func EffectiveTier(sub *model.Subscription, now time.Time) model.Tier {
	if sub == nil {
		return model.TierFree
	}
	if sub.Status == model.SubscriptionStatusCanceled {
		if sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.After(now) {
			return model.TierFree
		}
	}
	return sub.Tier
}
