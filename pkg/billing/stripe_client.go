package billing

import (
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/subscription"
)

// SubscriptionDetail is the slice of a billing-system subscription the
// checkout handler needs: authoritative status and period bounds.
type SubscriptionDetail struct {
	Status             string
	CustomerID         string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// SubscriptionFetcher fetches subscription detail from the billing system.
// The webhook processor depends on this interface so tests can stub the
// outbound call.
type SubscriptionFetcher interface {
	FetchSubscription(id string) (*SubscriptionDetail, error)
}

type stripeFetcher struct{}

// NewStripeFetcher returns the live Stripe-backed fetcher. stripe-go keys its
// client off the package-level API key, which is set once here.
func NewStripeFetcher(secretKey string) SubscriptionFetcher {
	stripe.Key = secretKey
	return &stripeFetcher{}
}

func (f *stripeFetcher) FetchSubscription(id string) (*SubscriptionDetail, error) {
	sub, err := subscription.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("could not fetch subscription %s: %w", id, err)
	}

	detail := &SubscriptionDetail{
		Status:             string(sub.Status),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
	}
	if sub.Customer != nil {
		detail.CustomerID = sub.Customer.ID
	}
	return detail, nil
}
