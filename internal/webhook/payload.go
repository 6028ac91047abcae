package webhook

import "encoding/json"

const (
	FieldComments = "comments"
	FieldMessages = "messages"
)

// Payload is an event delivery from the Instagram webhook.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Time    int64    `json:"time"`
	Changes []Change `json:"changes"`
}

// Change carries a field discriminator; Value is decoded per field.
type Change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

type CommentValue struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	From *User  `json:"from"`
}

type QuickReply struct {
	Payload string `json:"payload"`
}

type MessageValue struct {
	Text       string      `json:"text"`
	From       *User       `json:"from"`
	QuickReply *QuickReply `json:"quick_reply"`
	IsEcho     bool        `json:"is_echo"`
}
