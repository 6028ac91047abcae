package responder

import (
	"context"

	"github.com/xaenox/commentbot/internal/instagram"
	"github.com/xaenox/commentbot/internal/models"
	"github.com/xaenox/commentbot/internal/storage"
	"go.uber.org/zap"
)

// Matcher answers comments whose text equals a trigger phrase.
type Matcher struct {
	triggers      storage.TriggerStorage
	confirmations storage.ConfirmationStorage
	messenger     Messenger
	logger        *zap.Logger
}

func NewMatcher(triggers storage.TriggerStorage, confirmations storage.ConfirmationStorage, messenger Messenger, logger *zap.Logger) *Matcher {
	return &Matcher{
		triggers:      triggers,
		confirmations: confirmations,
		messenger:     messenger,
		logger:        logger,
	}
}

// HandleComment runs the reply and consent steps for a matching comment.
// Every step is attempted on its own; a failed step is logged and the
// remaining steps still run.
func (m *Matcher) HandleComment(ctx context.Context, c Comment) {
	phrase := models.NormalizePhrase(c.Text)
	if phrase == "" {
		return
	}

	trigger, err := m.triggers.FindTriggerByPhrase(ctx, phrase)
	if err != nil {
		m.logger.Error("Failed to look up trigger",
			zap.Error(err),
			zap.String("comment_id", c.ID))
		return
	}
	if trigger == nil {
		m.logger.Debug("Comment matches no trigger", zap.String("comment_id", c.ID))
		return
	}

	log := m.logger.With(
		zap.String("trigger_id", trigger.ID),
		zap.String("phrase", trigger.Phrase),
		zap.String("comment_id", c.ID),
		zap.String("author_id", c.AuthorID))

	if err := m.messenger.ReplyToComment(ctx, c.ID, trigger.CommentReply); err != nil {
		log.Error("Failed to reply to comment", zap.Error(err))
	} else {
		log.Info("Replied to comment")
	}

	if _, err := m.confirmations.CreateOrGetConfirmation(ctx, c.AuthorID, trigger.ID); err != nil {
		log.Error("Failed to record confirmation", zap.Error(err))
	}

	recipientID, err := m.messenger.GetUserProfileID(ctx, c.AuthorID)
	if err != nil {
		log.Error("Failed to resolve author profile", zap.Error(err))
		return
	}

	consent := instagram.QuickReply{
		ContentType: "text",
		Title:       consentButtonTitle,
		Payload:     ConfirmPayload(trigger.ID),
	}
	if err := m.messenger.SendMessage(ctx, recipientID, consentPrompt, consent); err != nil {
		log.Error("Failed to send consent request", zap.Error(err))
		return
	}
	log.Info("Consent request sent", zap.String("recipient_id", recipientID))
}
