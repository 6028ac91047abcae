// Package instagram is a small client for the Instagram Graph API endpoints
// the auto-responder needs: comment replies, direct messages and profile lookup.
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xaenox/commentbot/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxErrorBody = 4 << 10

// QuickReply is a tappable reply button attached to a direct message.
type QuickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

// APIError is returned when the Graph API answers with a non-2xx status.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instagram %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit throttles outbound calls; rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewClient(baseURL, accessToken string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReplyToComment posts message as a public reply under the comment.
func (c *Client) ReplyToComment(ctx context.Context, commentID, message string) error {
	body := map[string]string{"message": message}
	return c.do(ctx, "reply_comment", http.MethodPost, "/"+url.PathEscape(commentID)+"/replies", body, nil)
}

type sendMessageRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text         string       `json:"text"`
		QuickReplies []QuickReply `json:"quick_replies,omitempty"`
	} `json:"message"`
	MessagingType string `json:"messaging_type,omitempty"`
}

// SendMessage sends a direct message, optionally with quick reply buttons.
func (c *Client) SendMessage(ctx context.Context, recipientID, text string, quickReplies ...QuickReply) error {
	var req sendMessageRequest
	req.Recipient.ID = recipientID
	req.Message.Text = text
	req.Message.QuickReplies = quickReplies
	if len(quickReplies) > 0 {
		req.MessagingType = "RESPONSE"
	}
	return c.do(ctx, "send_message", http.MethodPost, "/me/messages", req, nil)
}

// GetUserProfileID resolves the messaging id for a comment author.
func (c *Client) GetUserProfileID(ctx context.Context, userID string) (string, error) {
	var profile struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, "get_profile", http.MethodGet, "/"+url.PathEscape(userID)+"?fields=id", nil, &profile); err != nil {
		return "", err
	}
	if profile.ID == "" {
		return "", fmt.Errorf("instagram get_profile: empty id for user %s", userID)
	}
	return profile.ID, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	defer func() {
		metrics.ObserveOutbound("instagram", op, err)
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("instagram %s: rate limit: %w", op, err)
		}
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("instagram %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("instagram %s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("instagram %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(detail))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("instagram %s: decode response: %w", op, err)
		}
	}

	c.logger.Debug("Instagram call succeeded", zap.String("op", op), zap.Int("status", resp.StatusCode))
	return nil
}
