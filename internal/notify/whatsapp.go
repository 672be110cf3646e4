package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const twilioBase = "https://api.twilio.com/2010-04-01"

// TwilioMessenger sends WhatsApp messages through Twilio's Messages API.
type TwilioMessenger struct {
	AccountSID string
	AuthToken  string
	From       string // e.g. whatsapp:+14155238886
	BaseURL    string
	Client     *http.Client
}

// NewTwilioMessenger returns a messenger for the given account.
func NewTwilioMessenger(sid, token, from string) *TwilioMessenger {
	if from == "" {
		from = "whatsapp:+14155238886"
	}
	return &TwilioMessenger{AccountSID: sid, AuthToken: token, From: from, BaseURL: twilioBase, Client: defaultClient()}
}

// SendWhatsApp posts body to toE164.
func (t *TwilioMessenger) SendWhatsApp(ctx context.Context, toE164, body string) error {
	if t.AccountSID == "" || t.AuthToken == "" {
		return ErrNotConfigured
	}
	to := toE164
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}
	form := url.Values{"From": {t.From}, "To": {to}, "Body": {body}}
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.BaseURL, url.PathEscape(t.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.AccountSID, t.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: twilio: %v", ErrProvider, err)
	}
	defer resp.Body.Close()
	return checkResponse("twilio", resp)
}
