package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"
)

const DefaultGraphURL = "https://graph.facebook.com/v17.0"

type WhatsAppConfig struct {
	GraphURL string
	Token    string
	PhoneID  string
	Timeout  time.Duration
}

// WhatsAppChannel sends text messages through the Meta Graph API.
type WhatsAppChannel struct {
	cfg    WhatsAppConfig
	client *http.Client
}

func NewWhatsAppChannel(cfg WhatsAppConfig) *WhatsAppChannel {
	if cfg.GraphURL == "" {
		cfg.GraphURL = DefaultGraphURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WhatsAppChannel{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (c *WhatsAppChannel) Name() string { return ChannelWhatsApp }

func (c *WhatsAppChannel) Reachable(r Recipient) bool { return digitsOnly(r.Phone) != "" }

type waText struct {
	Body string `json:"body"`
}

type waMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             waText `json:"text"`
}

func (c *WhatsAppChannel) Send(ctx context.Context, r Recipient, _ Key, content Content) error {
	body, err := json.Marshal(waMessage{
		MessagingProduct: "whatsapp",
		To:               digitsOnly(r.Phone),
		Type:             "text",
		Text:             waText{Body: content.WhatsApp},
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s/messages", strings.TrimRight(c.cfg.GraphURL, "/"), c.cfg.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func digitsOnly(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
}
