// Package notify sends interview notifications through third-party
// providers: email via Resend and WhatsApp via Twilio.  Sends are plain
// HTTP calls outside any database transaction; a failure is reported as
// ErrProvider and never touches pass or slot state.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrProvider wraps every failure returned by a provider call.
var ErrProvider = errors.New("notification provider error")

// ErrNotConfigured is returned when a sender has no credentials.
var ErrNotConfigured = fmt.Errorf("%w: not configured", ErrProvider)

// Attachment is a file sent along with an email.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Email is an outbound email message.
type Email struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer sends email.
type Mailer interface {
	SendEmail(ctx context.Context, m Email) error
}

// Messenger sends chat messages to an E.164 phone number.
type Messenger interface {
	SendWhatsApp(ctx context.Context, toE164, body string) error
}

func defaultClient() *http.Client { return &http.Client{Timeout: 10 * time.Second} }

// checkResponse turns a non-2xx response into ErrProvider carrying the
// status and a prefix of the body.
func checkResponse(provider string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: %s returned %d: %s", ErrProvider, provider, resp.StatusCode, body)
}
