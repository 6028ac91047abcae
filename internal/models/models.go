package models

import (
	"strings"
	"time"
)

// Trigger maps a comment phrase to the public reply and the private follow-up
type Trigger struct {
	ID            string `json:"id"`
	Phrase        string `json:"phrase"`
	CommentReply  string `json:"comment_reply"`
	DirectMessage string `json:"direct_message"`
}

// Confirmation tracks whether a user has received a trigger's direct message
type Confirmation struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	TriggerID string    `json:"trigger_id"`
	InfoSent  bool      `json:"info_sent"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizePhrase is applied to phrases on every write and every lookup.
func NormalizePhrase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
