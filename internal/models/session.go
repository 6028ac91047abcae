package models

// Stage is the admin dialog state.
type Stage string

const (
	StageNone                  Stage = ""
	StageAwaitingTriggerPhrase Stage = "awaiting_trigger_phrase"
	StageAwaitingCommentReply  Stage = "awaiting_comment_reply"
	StageAwaitingDM            Stage = "awaiting_dm"
	StageEditingPhrase         Stage = "editing_phrase"
	StageEditingReply          Stage = "editing_reply"
	StageEditingDM             Stage = "editing_dm"
)

// EditStage returns the editing stage for a field.
func EditStage(f Field) Stage {
	switch f {
	case FieldPhrase:
		return StageEditingPhrase
	case FieldCommentReply:
		return StageEditingReply
	case FieldDirectMessage:
		return StageEditingDM
	}
	return StageNone
}

// EditedField is the field implied by an editing stage.
func (s Stage) EditedField() (Field, bool) {
	switch s {
	case StageEditingPhrase:
		return FieldPhrase, true
	case StageEditingReply:
		return FieldCommentReply, true
	case StageEditingDM:
		return FieldDirectMessage, true
	}
	return 0, false
}

// Session holds one admin chat's dialog progress
type Session struct {
	ChatID int64
	Stage  Stage
	Draft  Trigger // Draft.ID is set when editing an existing trigger
}
