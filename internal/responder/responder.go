// Package responder turns matching Instagram comments into a public reply
// plus a private follow-up that is delivered once the author opts in.
package responder

import (
	"context"
	"strings"

	"github.com/xaenox/commentbot/internal/instagram"
)

// ConfirmPayloadPrefix prefixes the quick reply payload of the consent prompt.
const ConfirmPayloadPrefix = "confirm_"

const consentPrompt = "Йоу, увидел твой коммент 👀\n\n" +
	"Чтобы получить информацию нажми кнопку \"Да\" ниже или напиши \"Да\" в ответ на это сообщение."

const consentButtonTitle = "Да"

// Messenger is the outbound side of the Instagram API.
type Messenger interface {
	ReplyToComment(ctx context.Context, commentID, message string) error
	SendMessage(ctx context.Context, recipientID, text string, quickReplies ...instagram.QuickReply) error
	GetUserProfileID(ctx context.Context, userID string) (string, error)
}

// Comment is an inbound comment event.
type Comment struct {
	ID       string
	Text     string
	AuthorID string
}

// DirectMessage is an inbound direct message event.
type DirectMessage struct {
	SenderID string
	Text     string
	Payload  string // quick reply payload, empty for typed text
}

// ConfirmPayload builds the machine readable confirm signal for a trigger.
func ConfirmPayload(triggerID string) string {
	return ConfirmPayloadPrefix + triggerID
}

// ParseConfirmPayload extracts the trigger id from a confirm signal.
func ParseConfirmPayload(payload string) (string, bool) {
	id, ok := strings.CutPrefix(payload, ConfirmPayloadPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
