package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			assert.NoError(t, json.Unmarshal(raw, &rec.Body))
		}
		requests = append(requests, rec)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestReplyToComment(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `{"id":"reply-1"}`)
	client := NewClient(srv.URL+"/", "token-1", zap.NewNop())

	require.NoError(t, client.ReplyToComment(context.Background(), "c-42", "Спасибо!"))

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/c-42/replies", req.Path)
	assert.Equal(t, "Bearer token-1", req.Auth)
	assert.Equal(t, "Спасибо!", req.Body["message"])
}

func TestSendMessage_WithQuickReply(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `{}`)
	client := NewClient(srv.URL, "token-1", zap.NewNop())

	err := client.SendMessage(context.Background(), "u-1", "hello",
		QuickReply{ContentType: "text", Title: "Да", Payload: "confirm_t1"})
	require.NoError(t, err)

	req := (*requests)[0]
	assert.Equal(t, "/me/messages", req.Path)
	assert.Equal(t, "RESPONSE", req.Body["messaging_type"])
	assert.Equal(t, map[string]any{"id": "u-1"}, req.Body["recipient"])

	message := req.Body["message"].(map[string]any)
	assert.Equal(t, "hello", message["text"])
	replies := message["quick_replies"].([]any)
	require.Len(t, replies, 1)
	assert.Equal(t, "confirm_t1", replies[0].(map[string]any)["payload"])
}

func TestSendMessage_Plain(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `{}`)
	client := NewClient(srv.URL, "token-1", zap.NewNop())

	require.NoError(t, client.SendMessage(context.Background(), "u-1", "info"))

	req := (*requests)[0]
	assert.NotContains(t, req.Body, "messaging_type")
	assert.NotContains(t, req.Body["message"].(map[string]any), "quick_replies")
}

func TestGetUserProfileID(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `{"id":"igsid-7"}`)
	client := NewClient(srv.URL, "token-1", zap.NewNop())

	id, err := client.GetUserProfileID(context.Background(), "author-7")
	require.NoError(t, err)
	assert.Equal(t, "igsid-7", id)

	req := (*requests)[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/author-7", req.Path)
	assert.Equal(t, "fields=id", req.Query)
}

func TestAPIErrorCarriesResponseDetail(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadRequest, `{"error":{"message":"Invalid OAuth access token"}}`)
	client := NewClient(srv.URL, "bad", zap.NewNop())

	err := client.ReplyToComment(context.Background(), "c-1", "x")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "reply_comment", apiErr.Op)
	assert.Contains(t, apiErr.Body, "Invalid OAuth access token")
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{}`)
	client := NewClient(srv.URL, "token", zap.NewNop(), WithRateLimit(0.001, 1))

	require.NoError(t, client.SendMessage(context.Background(), "u", "first"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, client.SendMessage(ctx, "u", "second"))
}
