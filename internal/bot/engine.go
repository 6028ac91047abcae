package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/commentbot/internal/models"
	"github.com/xaenox/commentbot/internal/storage"
	"go.uber.org/zap"
)

// Engine is the admin dialog state machine. Each chat has at most one
// session; a chat without a session is in the idle stage.
type Engine struct {
	sessions storage.SessionStore
	triggers storage.TriggerStorage
	menu     *Menu
	logger   *zap.Logger
}

func NewEngine(sessions storage.SessionStore, triggers storage.TriggerStorage, logger *zap.Logger) *Engine {
	return &Engine{
		sessions: sessions,
		triggers: triggers,
		menu:     NewMenu(triggers),
		logger:   logger,
	}
}

// Start resets the chat and shows the main menu.
func (e *Engine) Start(chatID int64) View {
	e.sessions.Delete(chatID)
	return mainMenu(textWelcome)
}

// HandleAction applies a button press and returns the screen that replaces
// the message the button belonged to.
func (e *Engine) HandleAction(ctx context.Context, chatID int64, action Action) View {
	view, err := e.applyAction(ctx, chatID, action)
	if err != nil {
		e.logger.Error("Admin action failed",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("action", action.Data()))
		e.sessions.Delete(chatID)
		return mainMenu(textFailed + "\n\n" + textMainMenu)
	}
	return view
}

func (e *Engine) applyAction(ctx context.Context, chatID int64, action Action) (View, error) {
	switch action.Kind {
	case ActionCancel:
		e.sessions.Delete(chatID)
		return mainMenu(textCancelled), nil

	case ActionMainMenu:
		e.sessions.Delete(chatID)
		return mainMenu(textWelcome), nil

	case ActionListTriggers:
		return e.menu.List(ctx, action.Page)

	case ActionAddTrigger:
		e.sessions.Put(models.Session{ChatID: chatID, Stage: models.StageAwaitingTriggerPhrase})
		return prompt(stagePrompt(models.StageAwaitingTriggerPhrase)), nil

	case ActionView:
		t, err := e.triggers.GetTrigger(ctx, action.TriggerID)
		if err != nil {
			return View{}, err
		}
		if t == nil {
			return notFound(), nil
		}
		return detail(t, ""), nil

	case ActionEdit:
		t, err := e.triggers.GetTrigger(ctx, action.TriggerID)
		if err != nil {
			return View{}, err
		}
		if t == nil {
			return notFound(), nil
		}
		stage := models.EditStage(action.Field)
		e.sessions.Put(models.Session{ChatID: chatID, Stage: stage, Draft: models.Trigger{ID: t.ID}})
		return prompt(stagePrompt(stage)), nil

	case ActionDeleteConfirm:
		return deleteConfirmation(action.TriggerID), nil

	case ActionDelete:
		if err := e.triggers.DeleteTrigger(ctx, action.TriggerID); err != nil {
			return View{}, err
		}
		e.logger.Info("Trigger deleted", zap.String("trigger_id", action.TriggerID), zap.Int64("chat_id", chatID))
		return e.menu.AfterDelete(ctx)
	}

	return View{}, fmt.Errorf("unsupported action %q", action.Kind)
}

// HandleText feeds typed text into the chat's session. It returns the
// messages to send, in order; nil when the chat has no session.
func (e *Engine) HandleText(ctx context.Context, chatID int64, text string) []View {
	session, ok := e.sessions.Get(chatID)
	if !ok || session.Stage == models.StageNone {
		return nil
	}

	views, err := e.applyText(ctx, session, text)
	if err != nil {
		e.sessions.Delete(chatID)

		if errors.Is(err, storage.ErrDuplicatePhrase) {
			e.logger.Info("Duplicate trigger phrase", zap.Int64("chat_id", chatID))
			return []View{{Text: textDuplicate}, mainMenu(textMainMenu)}
		}

		e.logger.Error("Admin dialog failed",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("stage", string(session.Stage)))
		return []View{{Text: textFailed}, mainMenu(textMainMenu)}
	}
	return views
}

func (e *Engine) applyText(ctx context.Context, session models.Session, text string) ([]View, error) {
	field, next, editing := stepOf(session.Stage)
	if !field.Valid() {
		return nil, fmt.Errorf("unknown stage %q", session.Stage)
	}

	value, err := field.Normalize(text)
	if errors.Is(err, models.ErrEmptyValue) {
		// Stickers and photos carry no text; ask again without leaving the stage.
		return []View{prompt(textTextRequired + "\n\n" + stagePrompt(session.Stage))}, nil
	}
	if err != nil {
		return nil, err
	}

	if editing {
		return e.finishEdit(ctx, session, field, value)
	}

	field.Set(&session.Draft, value)
	if next != models.StageNone {
		session.Stage = next
		e.sessions.Put(session)
		return []View{prompt(stagePrompt(next))}, nil
	}

	// The last answer completes the draft; the session ends whatever the outcome.
	e.sessions.Delete(session.ChatID)
	t, err := e.triggers.AddTrigger(ctx, session.Draft.Phrase, session.Draft.CommentReply, session.Draft.DirectMessage)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Trigger added",
		zap.String("trigger_id", t.ID),
		zap.String("phrase", t.Phrase),
		zap.Int64("chat_id", session.ChatID))

	return []View{
		{Text: fmt.Sprintf("✅ Триггер \"%s\" успешно добавлен!", t.Phrase)},
		mainMenu(textMainMenu),
	}, nil
}

func (e *Engine) finishEdit(ctx context.Context, session models.Session, field models.Field, value string) ([]View, error) {
	e.sessions.Delete(session.ChatID)

	id := session.Draft.ID
	err := e.triggers.UpdateTriggerField(ctx, id, field, value)
	if errors.Is(err, storage.ErrNotFound) {
		return []View{notFound()}, nil
	}
	if err != nil {
		return nil, err
	}

	t, err := e.triggers.GetTrigger(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return []View{notFound()}, nil
	}

	e.logger.Info("Trigger updated",
		zap.String("trigger_id", id),
		zap.String("field", field.String()),
		zap.Int64("chat_id", session.ChatID))
	return []View{detail(t, textUpdated)}, nil
}

// stepOf maps a stage to the field it collects, the stage that follows in
// the add dialog and whether the stage edits an existing trigger.
func stepOf(stage models.Stage) (field models.Field, next models.Stage, editing bool) {
	switch stage {
	case models.StageAwaitingTriggerPhrase:
		return models.FieldPhrase, models.StageAwaitingCommentReply, false
	case models.StageAwaitingCommentReply:
		return models.FieldCommentReply, models.StageAwaitingDM, false
	case models.StageAwaitingDM:
		return models.FieldDirectMessage, models.StageNone, false
	}
	if f, ok := stage.EditedField(); ok {
		return f, models.StageNone, true
	}
	return 0, models.StageNone, false
}
