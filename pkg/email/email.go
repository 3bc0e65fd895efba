// pkg/email/email.go
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"
)

type Service struct {
	apiKey    string
	from      string
	templates *template.Template
}

type EmailData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

// Template data structures
type WelcomeEmailData struct {
	Name string
}

type SubscriptionEmailData struct {
	Name      string
	Tier      string
	ExpiresAt time.Time
	IsRenewal bool
}

type SubscriptionCancelledData struct {
	Name      string
	Tier      string
	ExpiresAt time.Time
}

type SubscriptionExpiryWarningData struct {
	Name       string
	Tier       string
	DaysLeft   int
	ExpiryDate time.Time
}

type PayoutConfirmationData struct {
	PartnerName string
	Amount      string
	EntryCount  int
	Method      string
	Reference   string
}

type PartnerDigestData struct {
	PartnerName       string
	Code              string
	ReferredCount     int64
	PendingCommission string
	PaidCommission    string
	Date              time.Time
}

func NewService(apiKey string) (*Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %v", err)
	}

	return &Service{
		apiKey:    apiKey,
		from:      "ReefLog <noreply@reeflog.app>",
		templates: templates,
	}, nil
}

func (s *Service) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %v", err)
	}

	emailData := EmailData{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body.String(),
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("error marshaling email data: %v", err)
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %v", err)
	}

	log.Printf("Resend API response: Status: %d", resp.StatusCode)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("resend API error: %s", string(respBody))
	}

	return nil
}

// Email sending methods
func (s *Service) SendWelcomeEmail(email, name string) error {
	data := WelcomeEmailData{
		Name: name,
	}
	return s.sendTemplateEmail(email, "Welcome to ReefLog! 🪸", "welcome.html", data)
}

func (s *Service) SendSubscriptionStartedEmail(email, name, tier string, expiresAt time.Time, isRenewal bool) error {
	data := SubscriptionEmailData{
		Name:      name,
		Tier:      tier,
		ExpiresAt: expiresAt,
		IsRenewal: isRenewal,
	}

	subject := "Welcome to ReefLog Premium! 🎉"
	if isRenewal {
		subject = "Your ReefLog Subscription Has Been Renewed 🔄"
	}

	return s.sendTemplateEmail(email, subject, "subscription_started.html", data)
}

func (s *Service) SendSubscriptionCancelledEmail(email, name, tier string, expiresAt time.Time) error {
	data := SubscriptionCancelledData{
		Name:      name,
		Tier:      tier,
		ExpiresAt: expiresAt,
	}
	return s.sendTemplateEmail(email, "Your Subscription Has Been Cancelled", "subscription_cancelled.html", data)
}

func (s *Service) SendSubscriptionExpiryWarning(email, name, tier string, expiryDate time.Time, daysLeft int) error {
	data := SubscriptionExpiryWarningData{
		Name:       name,
		Tier:       tier,
		DaysLeft:   daysLeft,
		ExpiryDate: expiryDate,
	}
	return s.sendTemplateEmail(
		email,
		fmt.Sprintf("Your Subscription Expires in %d Days ⚠️", daysLeft),
		"subscription_expiry_warning.html",
		data,
	)
}

func (s *Service) SendPayoutConfirmation(email, partnerName, amount string, entryCount int, method, reference string) error {
	data := PayoutConfirmationData{
		PartnerName: partnerName,
		Amount:      amount,
		EntryCount:  entryCount,
		Method:      method,
		Reference:   reference,
	}
	return s.sendTemplateEmail(email, "Your ReefLog Partner Payout 💸", "payout_confirmation.html", data)
}

func (s *Service) SendPartnerDigest(email, partnerName, code string, referredCount int64, pendingCommission, paidCommission string, date time.Time) error {
	data := PartnerDigestData{
		PartnerName:       partnerName,
		Code:              code,
		ReferredCount:     referredCount,
		PendingCommission: pendingCommission,
		PaidCommission:    paidCommission,
		Date:              date,
	}
	return s.sendTemplateEmail(email, "Your Monthly ReefLog Partner Report 📊", "partner_digest.html", data)
}
