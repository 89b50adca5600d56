package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WhatsAppNotifier delivers messages through a WhatsApp Business API gateway.
type WhatsAppNotifier struct {
	apiURL string
	token  string
	client *http.Client
}

// NewWhatsAppNotifier builds a notifier for the given gateway URL and token.
func NewWhatsAppNotifier(apiURL, token string) *WhatsAppNotifier {
	return &WhatsAppNotifier{
		apiURL: apiURL,
		token:  token,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type whatsAppPayload struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Send posts a text message to the gateway. Slow gateways are cut off by the
// client timeout so callers never block on delivery.
func (n *WhatsAppNotifier) Send(ctx context.Context, message Message) error {
	payload := whatsAppPayload{To: message.Destination, Type: "text"}
	if message.Title != "" {
		payload.Text.Body = message.Title + "\n" + message.Body
	} else {
		payload.Text.Body = message.Body
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.token)

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("whatsapp gateway returned status %d", res.StatusCode)
	}
	return nil
}
