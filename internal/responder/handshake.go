package responder

import (
	"context"
	"strings"

	"github.com/xaenox/commentbot/internal/storage"
	"go.uber.org/zap"
)

type HandshakeConfig struct {
	// AffirmativeWord is the typed answer accepted instead of the button.
	// It is compared case-sensitively.
	AffirmativeWord string
	// AtMostOnce skips delivery when the confirmation is already marked sent.
	AtMostOnce bool
}

// Handshake delivers a trigger's direct message once the user says yes.
type Handshake struct {
	triggers      storage.TriggerStorage
	confirmations storage.ConfirmationStorage
	messenger     Messenger
	config        HandshakeConfig
	locks         *keyedMutex
	logger        *zap.Logger
}

func NewHandshake(triggers storage.TriggerStorage, confirmations storage.ConfirmationStorage, messenger Messenger, config HandshakeConfig, logger *zap.Logger) *Handshake {
	return &Handshake{
		triggers:      triggers,
		confirmations: confirmations,
		messenger:     messenger,
		config:        config,
		locks:         newKeyedMutex(),
		logger:        logger,
	}
}

// HandleMessage resolves the pending trigger for msg and completes the handshake.
func (h *Handshake) HandleMessage(ctx context.Context, msg DirectMessage) {
	if msg.SenderID == "" {
		return
	}

	triggerID, ok := h.resolveTrigger(ctx, msg)
	if !ok {
		return
	}

	log := h.logger.With(zap.String("user_id", msg.SenderID), zap.String("trigger_id", triggerID))

	unlock := h.locks.Lock(msg.SenderID + "\x00" + triggerID)
	defer unlock()

	trigger, err := h.triggers.GetTrigger(ctx, triggerID)
	if err != nil {
		log.Error("Failed to load trigger", zap.Error(err))
		return
	}
	if trigger == nil {
		log.Warn("Confirmed trigger no longer exists")
		return
	}

	if h.config.AtMostOnce {
		c, err := h.confirmations.GetConfirmation(ctx, msg.SenderID, triggerID)
		if err != nil {
			log.Error("Failed to load confirmation", zap.Error(err))
			return
		}
		if c != nil && c.InfoSent {
			log.Info("Direct message already delivered, skipping")
			return
		}
	}

	if err := h.messenger.SendMessage(ctx, msg.SenderID, trigger.DirectMessage); err != nil {
		log.Error("Failed to send trigger message", zap.Error(err))
		return
	}

	if err := h.confirmations.MarkConfirmationSent(ctx, msg.SenderID, triggerID); err != nil {
		log.Error("Failed to mark confirmation sent", zap.Error(err))
		return
	}
	log.Info("Trigger message delivered")
}

func (h *Handshake) resolveTrigger(ctx context.Context, msg DirectMessage) (string, bool) {
	if triggerID, ok := ParseConfirmPayload(msg.Payload); ok {
		return triggerID, true
	}

	if h.config.AffirmativeWord == "" || strings.TrimSpace(msg.Text) != h.config.AffirmativeWord {
		return "", false
	}

	pending, err := h.confirmations.MostRecentUnsent(ctx, msg.SenderID)
	if err != nil {
		h.logger.Error("Failed to look up pending confirmation",
			zap.Error(err),
			zap.String("user_id", msg.SenderID))
		return "", false
	}
	if pending == nil {
		h.logger.Debug("No pending confirmation for affirmative reply", zap.String("user_id", msg.SenderID))
		return "", false
	}
	return pending.TriggerID, true
}
