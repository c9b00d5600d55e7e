package line

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.line.me"

// Message is one LINE Messaging API message object.
type Message struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func NewTextMessage(text string) Message {
	return Message{Type: "text", Text: text}
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

type apiError struct {
	Message string `json:"message"`
}

// Client talks to the LINE Messaging API. The channel access token is
// passed per call because each organization messages on its own channel.
type Client struct {
	httpClient *resty.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Client{httpClient: client}
}

// Push sends messages to a user via the push endpoint.
func (c *Client) Push(ctx context.Context, channelToken, to string, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}

	var apiErr apiError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(channelToken).
		SetBody(pushRequest{To: to, Messages: messages}).
		SetError(&apiErr).
		Post("/v2/bot/message/push")
	if err != nil {
		return fmt.Errorf("failed to call LINE push API: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("LINE push API error: %s (status %d)", apiErr.Message, resp.StatusCode())
	}

	return nil
}

// Reply answers a webhook event using its reply token.
func (c *Client) Reply(ctx context.Context, channelToken, replyToken string, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}

	var apiErr apiError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(channelToken).
		SetBody(replyRequest{ReplyToken: replyToken, Messages: messages}).
		SetError(&apiErr).
		Post("/v2/bot/message/reply")
	if err != nil {
		return fmt.Errorf("failed to call LINE reply API: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("LINE reply API error: %s (status %d)", apiErr.Message, resp.StatusCode())
	}

	return nil
}
