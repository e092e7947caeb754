// Package notify pushes alert messages through the LINE Messaging API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/srwpaibong/PM25-alert-system/internal/httputil"
	"github.com/srwpaibong/PM25-alert-system/internal/metrics"
)

const defaultPushURL = "https://api.line.me/v2/bot/message/push"

// LINE caps a push request at five messages.
const maxMessages = 5

type Client struct {
	pushURL string
	token   string
	client  *http.Client
	clock   clockwork.Clock
}

func NewClient(token string, timeout time.Duration, clock clockwork.Clock) *Client {
	return &Client{
		pushURL: defaultPushURL,
		token:   token,
		client:  httputil.NewClientWithTimeout(timeout),
		clock:   clock,
	}
}

// SetPushURL overrides the API endpoint, used by tests.
func (c *Client) SetPushURL(url string) { c.pushURL = url }

type message struct {
	Type               string `json:"type"`
	Text               string `json:"text,omitempty"`
	OriginalContentURL string `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string `json:"previewImageUrl,omitempty"`
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []message `json:"messages"`
}

// PushText sends a plain text message.
func (c *Client) PushText(ctx context.Context, to, text string) error {
	return c.push(ctx, to, []message{{Type: "text", Text: text}})
}

// PushTextWithImage sends a text message followed by an image. The
// image URL gets a cache-busting timestamp query so LINE clients do
// not show a stale chart served from the same path.
func (c *Client) PushTextWithImage(ctx context.Context, to, text, imageURL string) error {
	busted := fmt.Sprintf("%s?t=%d", imageURL, c.clock.Now().Unix())
	return c.push(ctx, to, []message{
		{Type: "text", Text: text},
		{Type: "image", OriginalContentURL: busted, PreviewImageURL: busted},
	})
}

func (c *Client) push(ctx context.Context, to string, msgs []message) error {
	if len(msgs) > maxMessages {
		msgs = msgs[:maxMessages]
	}

	body, err := json.Marshal(pushRequest{To: to, Messages: msgs})
	if err != nil {
		return fmt.Errorf("marshal push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pushURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.NotifyFailures.Inc()
		return fmt.Errorf("push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.NotifyFailures.Inc()
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("push: status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	return nil
}
