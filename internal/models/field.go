package models

import (
	"errors"
	"strings"
)

var ErrEmptyValue = errors.New("value must not be empty")

// Field is one of the editable trigger fields.
type Field int

const (
	FieldPhrase Field = iota + 1
	FieldCommentReply
	FieldDirectMessage
)

// Fields lists every editable field in menu order.
var Fields = []Field{FieldPhrase, FieldCommentReply, FieldDirectMessage}

func (f Field) Valid() bool {
	return f >= FieldPhrase && f <= FieldDirectMessage
}

// Column is the storage column backing the field.
func (f Field) Column() string {
	switch f {
	case FieldPhrase:
		return "trigger_phrase"
	case FieldCommentReply:
		return "comment_reply"
	case FieldDirectMessage:
		return "direct_message"
	}
	return ""
}

// Key is the short token used in callback data.
func (f Field) Key() string {
	switch f {
	case FieldPhrase:
		return "phrase"
	case FieldCommentReply:
		return "reply"
	case FieldDirectMessage:
		return "dm"
	}
	return ""
}

// Label is the human readable field name shown to the admin.
func (f Field) Label() string {
	switch f {
	case FieldPhrase:
		return "фраза-триггер"
	case FieldCommentReply:
		return "ответ на комментарий"
	case FieldDirectMessage:
		return "сообщение в ЛС"
	}
	return ""
}

func (f Field) String() string {
	return f.Key()
}

// ParseField resolves a callback key back to a field.
func ParseField(key string) (Field, bool) {
	for _, f := range Fields {
		if f.Key() == key {
			return f, true
		}
	}
	return 0, false
}

// Normalize validates value and returns the form that gets stored.
func (f Field) Normalize(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", ErrEmptyValue
	}
	if f == FieldPhrase {
		return NormalizePhrase(value), nil
	}
	return value, nil
}

// Get reads the field from t.
func (f Field) Get(t *Trigger) string {
	switch f {
	case FieldPhrase:
		return t.Phrase
	case FieldCommentReply:
		return t.CommentReply
	case FieldDirectMessage:
		return t.DirectMessage
	}
	return ""
}

// Set writes value into the field of t.
func (f Field) Set(t *Trigger, value string) {
	switch f {
	case FieldPhrase:
		t.Phrase = value
	case FieldCommentReply:
		t.CommentReply = value
	case FieldDirectMessage:
		t.DirectMessage = value
	}
}
