// Package server wires every HTTP route of the service.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaenox/commentbot/internal/webhook"
	"go.uber.org/zap"
)

const maxUpdateSize = 1 << 20

// UpdateHandler consumes Telegram updates for the admin console.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

type Routes struct {
	WebhookPath      string
	AdminWebhookPath string
}

// NewRouter mounts the Instagram webhook, the admin webhook, /healthz and
// /metrics. admin may be nil when the console is disabled.
func NewRouter(routes Routes, events *webhook.Handler, admin UpdateHandler, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()

	events.Register(r, routes.WebhookPath)
	r.HandleFunc(routes.AdminWebhookPath, adminHandler(admin, logger)).Methods(http.MethodPost)
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

// adminHandler relays an update to the console and always answers 200, so
// Telegram never retries a delivery.
func adminHandler(admin UpdateHandler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer w.WriteHeader(http.StatusOK)

		if admin == nil {
			logger.Debug("Admin update received while the admin bot is disabled")
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateSize)).Decode(&update); err != nil {
			logger.Warn("Failed to decode admin update", zap.Error(err))
			return
		}

		// Handled inline so updates of one chat keep their order.
		admin.HandleUpdate(context.WithoutCancel(r.Context()), update)
	}
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// NewHTTPServer builds the listening server for port.
func NewHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
