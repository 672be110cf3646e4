package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

const resendURL = "https://api.resend.com/emails"

// ResendMailer sends email through the Resend HTTP API.
type ResendMailer struct {
	APIKey   string
	From     string
	Endpoint string // defaults to the public Resend endpoint
	Client   *http.Client
}

// NewResendMailer returns a mailer sending from from.
func NewResendMailer(apiKey, from string) *ResendMailer {
	if from == "" {
		from = "hr@yourdomain.com"
	}
	return &ResendMailer{APIKey: apiKey, From: from, Endpoint: resendURL, Client: defaultClient()}
}

type resendAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"` // base64
	ContentType string `json:"content_type,omitempty"`
}

type resendPayload struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

// SendEmail posts m to Resend.
func (r *ResendMailer) SendEmail(ctx context.Context, m Email) error {
	if r.APIKey == "" {
		return ErrNotConfigured
	}
	p := resendPayload{From: r.From, To: []string{m.To}, Subject: m.Subject, HTML: m.HTML}
	for _, a := range m.Attachments {
		p.Attachments = append(p.Attachments, resendAttachment{
			Filename:    a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: resend: %v", ErrProvider, err)
	}
	defer resp.Body.Close()
	return checkResponse("resend", resp)
}
