package webhook

import (
	"context"
	"encoding/json"

	"github.com/xaenox/commentbot/internal/metrics"
	"github.com/xaenox/commentbot/internal/responder"
	"go.uber.org/zap"
)

type CommentHandler interface {
	HandleComment(ctx context.Context, c responder.Comment)
}

type MessageHandler interface {
	HandleMessage(ctx context.Context, msg responder.DirectMessage)
}

// Router dispatches a single change by its field.
type Router struct {
	comments CommentHandler
	messages MessageHandler
	// selfID is the account's own Instagram id; events it authored are dropped.
	selfID string
	logger *zap.Logger
}

func NewRouter(comments CommentHandler, messages MessageHandler, selfID string, logger *zap.Logger) *Router {
	return &Router{comments: comments, messages: messages, selfID: selfID, logger: logger}
}

func (r *Router) Route(ctx context.Context, change Change) {
	switch change.Field {
	case FieldComments:
		r.routeComment(ctx, change.Value)
	case FieldMessages:
		r.routeMessage(ctx, change.Value)
	default:
		r.drop("unsupported_field", zap.String("field", change.Field))
	}
}

func (r *Router) routeComment(ctx context.Context, raw json.RawMessage) {
	var v CommentValue
	if err := json.Unmarshal(raw, &v); err != nil || v.ID == "" || v.From == nil || v.From.ID == "" {
		r.drop("malformed", zap.String("field", FieldComments))
		return
	}
	if r.selfID != "" && v.From.ID == r.selfID {
		r.drop("self_comment", zap.String("comment_id", v.ID))
		return
	}

	r.comments.HandleComment(ctx, responder.Comment{ID: v.ID, Text: v.Text, AuthorID: v.From.ID})
}

func (r *Router) routeMessage(ctx context.Context, raw json.RawMessage) {
	var v MessageValue
	if err := json.Unmarshal(raw, &v); err != nil || v.From == nil || v.From.ID == "" {
		r.drop("malformed", zap.String("field", FieldMessages))
		return
	}
	if v.IsEcho || (r.selfID != "" && v.From.ID == r.selfID) {
		r.drop("echo", zap.String("from_id", v.From.ID))
		return
	}

	msg := responder.DirectMessage{SenderID: v.From.ID, Text: v.Text}
	if v.QuickReply != nil {
		msg.Payload = v.QuickReply.Payload
	}
	r.messages.HandleMessage(ctx, msg)
}

func (r *Router) drop(reason string, fields ...zap.Field) {
	metrics.DroppedEvents.WithLabelValues(reason).Inc()
	r.logger.Debug("Event dropped", append(fields, zap.String("reason", reason))...)
}
