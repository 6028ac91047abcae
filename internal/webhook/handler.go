package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/xaenox/commentbot/internal/metrics"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

// Submitter accepts asynchronous work.
type Submitter interface {
	Submit(job Job) bool
}

// Handler serves the Instagram webhook endpoint.
type Handler struct {
	verifyToken string
	router      *Router
	jobs        Submitter
	logger      *zap.Logger
}

func NewHandler(verifyToken string, router *Router, jobs Submitter, logger *zap.Logger) *Handler {
	return &Handler{verifyToken: verifyToken, router: router, jobs: jobs, logger: logger}
}

// Register mounts the verification and delivery routes at path.
func (h *Handler) Register(r *mux.Router, path string) {
	r.HandleFunc(path, h.Verify).Methods(http.MethodGet)
	r.HandleFunc(path, h.Receive).Methods(http.MethodPost)
}

// Verify answers the subscription handshake.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		h.logger.Warn("Webhook verification rejected", zap.String("mode", mode))
		w.WriteHeader(http.StatusForbidden)
		return
	}

	h.logger.Info("Webhook verified")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// Receive acknowledges the delivery and queues every change in it.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	w.WriteHeader(http.StatusOK)
	if err != nil {
		h.logger.Warn("Failed to read webhook body", zap.Error(err))
		return
	}

	log := h.logger.With(zap.String("event_id", uuid.New().String()))

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.DroppedEvents.WithLabelValues("malformed").Inc()
		log.Debug("Malformed webhook payload", zap.Error(err))
		return
	}
	log.Debug("Webhook delivery received", zap.ByteString("body", body))

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			change := change
			metrics.WebhookEvents.WithLabelValues(change.Field).Inc()
			h.jobs.Submit(Job{
				Name: "instagram:" + change.Field,
				Run: func(ctx context.Context) {
					h.router.Route(ctx, change)
				},
			})
		}
	}
}
