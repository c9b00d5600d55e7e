package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Webhook payload structures, trimmed to the event types the bot handles.

type WebhookRequest struct {
	Destination string         `json:"destination"`
	Events      []WebhookEvent `json:"events"`
}

type WebhookEvent struct {
	Type       string           `json:"type"`
	ReplyToken string           `json:"replyToken"`
	Source     WebhookSource    `json:"source"`
	Message    *WebhookMessage  `json:"message,omitempty"`
	Postback   *WebhookPostback `json:"postback,omitempty"`
}

type WebhookSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type WebhookMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type WebhookPostback struct {
	Data string `json:"data"`
}

// ValidateSignature checks the X-Line-Signature header against the raw
// request body using the channel secret.
func ValidateSignature(channelSecret string, body []byte, signature string) bool {
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return hmac.Equal(decoded, mac.Sum(nil))
}
