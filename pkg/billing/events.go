package billing

import (
	"encoding/json"
	"time"
)

// Stripe event types consumed by the processor. Anything else is
// acknowledged without action so new event types never bounce deliveries.
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaid          = "invoice.paid"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// Metadata keys attached to checkout sessions at creation time.
const (
	MetaUserID    = "user_id"
	MetaTier      = "tier"
	MetaPromoCode = "promo_code"
)

// Each event kind decodes once at the boundary into a closed variant struct
// carrying only the fields its handler needs.

type CheckoutCompleted struct {
	SessionID      string
	SubscriptionID string
	CustomerID     string
	Metadata       map[string]string
}

type SubscriptionUpdated struct {
	SubscriptionID string
	Status         string
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

type SubscriptionDeleted struct {
	SubscriptionID string
}

type InvoicePaid struct {
	InvoiceID       string
	SubscriptionID  string
	PaymentIntentID string
	AmountPaid      int64 // minor currency units
}

func decodeCheckoutCompleted(raw json.RawMessage) (*CheckoutCompleted, error) {
	var payload struct {
		ID           string            `json:"id"`
		Customer     string            `json:"customer"`
		Subscription string            `json:"subscription"`
		Metadata     map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &CheckoutCompleted{
		SessionID:      payload.ID,
		SubscriptionID: payload.Subscription,
		CustomerID:     payload.Customer,
		Metadata:       payload.Metadata,
	}, nil
}

func decodeSubscriptionUpdated(raw json.RawMessage) (*SubscriptionUpdated, error) {
	var payload struct {
		ID                 string `json:"id"`
		Status             string `json:"status"`
		CurrentPeriodStart int64  `json:"current_period_start"`
		CurrentPeriodEnd   int64  `json:"current_period_end"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &SubscriptionUpdated{
		SubscriptionID: payload.ID,
		Status:         payload.Status,
		PeriodStart:    time.Unix(payload.CurrentPeriodStart, 0),
		PeriodEnd:      time.Unix(payload.CurrentPeriodEnd, 0),
	}, nil
}

func decodeSubscriptionDeleted(raw json.RawMessage) (*SubscriptionDeleted, error) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &SubscriptionDeleted{SubscriptionID: payload.ID}, nil
}

func decodeInvoicePaid(raw json.RawMessage) (*InvoicePaid, error) {
	var payload struct {
		ID            string `json:"id"`
		Subscription  string `json:"subscription"`
		PaymentIntent string `json:"payment_intent"`
		AmountPaid    int64  `json:"amount_paid"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &InvoicePaid{
		InvoiceID:       payload.ID,
		SubscriptionID:  payload.Subscription,
		PaymentIntentID: payload.PaymentIntent,
		AmountPaid:      payload.AmountPaid,
	}, nil
}
