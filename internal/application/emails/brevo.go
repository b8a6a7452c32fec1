package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Sender sends donation lifecycle emails. Nil = no-op.
type Sender interface {
	SendDonationUpdate(ctx context.Context, toEmail string, update DonationUpdate) error
}

// DonationUpdate is the content of one lifecycle email.
type DonationUpdate struct {
	Subject      string
	Heading      string
	Message      string
	LocationName string
	MealType     string
	Date         string
	Plates       int
}

// BrevoClient sends emails via Brevo (Sendinblue) API: SENDINBLUE_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Endpoint string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@platesforpeople.org"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "Plates for People"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@platesforpeople.org", Name: "Plates for People Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendDonationUpdate sends a status email for one donation request.
func (c *BrevoClient) SendDonationUpdate(ctx context.Context, toEmail string, update DonationUpdate) error {
	if c.APIKey == "" || toEmail == "" {
		return nil
	}
	return c.send(ctx, toEmail, update.Subject, EmailLayout(donationContent(update)))
}

func donationContent(u DonationUpdate) string {
	return fmt.Sprintf(`
    <h1>%s</h1>
    <p>%s</p>
    <table role="presentation" class="donation-summary">
      <tr><td>Location</td><td><strong>%s</strong></td></tr>
      <tr><td>Date</td><td><strong>%s</strong></td></tr>
      <tr><td>Meal</td><td><strong>%s</strong></td></tr>
      <tr><td>Plates</td><td><strong>%d</strong></td></tr>
    </table>
    <p>The Plates for People Team</p>
`, EscapeHTML(u.Heading), EscapeHTML(u.Message), EscapeHTML(u.LocationName), EscapeHTML(u.Date), EscapeHTML(u.MealType), u.Plates)
}
