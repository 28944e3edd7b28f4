package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
)

// Mailer sends transactional mail through the Postmark HTTP API. An
// unconfigured mailer (no server token) logs instead of sending, so local
// setups work without credentials.
type Mailer struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

func NewMailerFromEnv() *Mailer {
	return &Mailer{
		serverToken: os.Getenv("POSTMARK_TOKEN"),
		fromEmail:   os.Getenv("MAIL_FROM"),
		baseURL:     os.Getenv("APP_BASE_URL"),
		httpClient:  http.DefaultClient,
	}
}

func (m *Mailer) Configured() bool {
	return m.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody"`
}

// SendRestoreLink mails the session-restore link for a guest.
func (m *Mailer) SendRestoreLink(email, displayName, token string) error {
	link := fmt.Sprintf("%s/restore?token=%s", m.baseURL, token)
	body := fmt.Sprintf(
		"Hi %s,\n\nuse the link below to get back into the yearbook on this device:\n\n%s\n\nThe link expires in 24 hours.",
		displayName, link)

	if !m.Configured() {
		log.Printf("mailer not configured, would send restore link to %s", email)
		return nil
	}

	payload := postmarkEmail{
		From:     m.fromEmail,
		To:       email,
		Subject:  "Your yearbook session",
		TextBody: body,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.postmarkapp.com/email", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", m.serverToken)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("postmark returned %d", resp.StatusCode)
	}
	return nil
}
