package bot

import (
	"context"
	"fmt"

	"github.com/xaenox/commentbot/internal/models"
	"github.com/xaenox/commentbot/internal/storage"
)

// PageSize is the number of triggers shown on one list page.
const PageSize = 5

const (
	textWelcome      = "Добро пожаловать в админ-панель!"
	textMainMenu     = "Главное меню"
	textCancelled    = "Действие отменено. Главное меню"
	textListHeader   = "📋 Ваши триггеры:"
	textListEmpty    = "У вас пока нет ни одного триггера."
	textDeletedEmpty = "Триггер удален. У вас больше нет триггеров."
	textDeleteAsk    = "Вы уверены, что хотите удалить этот триггер?"
	textNotFound     = "Триггер не найден. Возможно, он уже удален."
	textFailed       = "❌ Произошла ошибка."
	textDuplicate    = "❌ Ошибка: триггер с такой фразой уже существует."
	textUpdated      = "✅ Поле успешно обновлено!"
	textTextRequired = "⚠️ Нужно отправить текстовое сообщение."
)

// Button is one inline keyboard button.
type Button struct {
	Text   string
	Action Action
}

// View is a rendered admin screen: text plus an optional inline keyboard.
type View struct {
	Text     string
	Keyboard [][]Button
}

func row(buttons ...Button) []Button { return buttons }

// Menu renders the admin screens. List screens are always computed from the
// current store contents.
type Menu struct {
	triggers storage.TriggerStorage
}

func NewMenu(triggers storage.TriggerStorage) *Menu {
	return &Menu{triggers: triggers}
}

func mainMenu(text string) View {
	return View{
		Text: text,
		Keyboard: [][]Button{
			row(Button{"📋 Посмотреть триггеры", listAction(0)}),
			row(Button{"➕ Добавить триггер", Action{Kind: ActionAddTrigger}}),
		},
	}
}

// List renders the given page of the trigger list. Pages past the end are
// clamped to the last page.
func (m *Menu) List(ctx context.Context, page int) (View, error) {
	triggers, err := m.triggers.ListTriggers(ctx)
	if err != nil {
		return View{}, err
	}
	return renderList(triggers, page, textListEmpty), nil
}

// AfterDelete renders the first list page once a trigger is gone.
func (m *Menu) AfterDelete(ctx context.Context) (View, error) {
	triggers, err := m.triggers.ListTriggers(ctx)
	if err != nil {
		return View{}, err
	}
	return renderList(triggers, 0, textDeletedEmpty), nil
}

// TotalPages is ceil(total / PageSize).
func TotalPages(total int) int {
	return (total + PageSize - 1) / PageSize
}

func renderList(triggers []*models.Trigger, page int, emptyText string) View {
	total := TotalPages(len(triggers))
	if page >= total {
		page = total - 1
	}
	if page < 0 {
		page = 0
	}

	view := View{Text: textListHeader}
	if len(triggers) == 0 {
		view.Text = emptyText
	}

	start := page * PageSize
	end := min(start+PageSize, len(triggers))
	for _, t := range triggers[start:end] {
		view.Keyboard = append(view.Keyboard, row(Button{fmt.Sprintf("%q", t.Phrase), viewAction(t.ID)}))
	}

	var nav []Button
	if page > 0 {
		nav = append(nav, Button{"⬅️ Пред.", listAction(page - 1)})
	}
	if page < total-1 {
		nav = append(nav, Button{"След. ➡️", listAction(page + 1)})
	}
	if len(nav) > 0 {
		view.Keyboard = append(view.Keyboard, nav)
	}

	view.Keyboard = append(view.Keyboard,
		row(Button{"➕ Добавить", Action{Kind: ActionAddTrigger}}),
		row(Button{"🏠 В меню", Action{Kind: ActionMainMenu}}),
	)
	return view
}

func formatTrigger(t *models.Trigger) string {
	return fmt.Sprintf("Триггер: %s\n\nОтвет на коммент:\n%s\n\nСообщение в ЛС:\n%s",
		t.Phrase, t.CommentReply, t.DirectMessage)
}

// detail renders the management screen of one trigger. A non-empty header is
// shown above the trigger.
func detail(t *models.Trigger, header string) View {
	text := formatTrigger(t)
	if header != "" {
		text = header + "\n\n" + text
	}

	edit := make([]Button, 0, len(models.Fields))
	for _, f := range models.Fields {
		edit = append(edit, Button{editButtonTitle(f), Action{Kind: ActionEdit, Field: f, TriggerID: t.ID}})
	}

	return View{
		Text: text,
		Keyboard: [][]Button{
			edit,
			row(Button{"🗑️ Удалить", Action{Kind: ActionDeleteConfirm, TriggerID: t.ID}}),
			row(Button{"⬅️ Назад к списку", listAction(0)}),
		},
	}
}

func editButtonTitle(f models.Field) string {
	switch f {
	case models.FieldPhrase:
		return "✏️ Фраза"
	case models.FieldCommentReply:
		return "✏️ Ответ"
	case models.FieldDirectMessage:
		return "✏️ ЛС"
	}
	return "✏️"
}

func deleteConfirmation(triggerID string) View {
	return View{
		Text: textDeleteAsk,
		Keyboard: [][]Button{
			row(Button{"✅ Да, удалить", Action{Kind: ActionDelete, TriggerID: triggerID}}),
			row(Button{"❌ Нет, отмена", viewAction(triggerID)}),
		},
	}
}

// prompt asks for text input; the only way out is the cancel button.
func prompt(text string) View {
	return View{
		Text:     text,
		Keyboard: [][]Button{row(Button{"❌ Отмена", Action{Kind: ActionCancel}})},
	}
}

func notFound() View {
	return View{
		Text:     textNotFound,
		Keyboard: [][]Button{row(Button{"⬅️ Назад к списку", listAction(0)})},
	}
}

// stagePrompt is the question asked while the session is in stage.
func stagePrompt(stage models.Stage) string {
	switch stage {
	case models.StageAwaitingTriggerPhrase:
		return "Введите фразу-триггер."
	case models.StageAwaitingCommentReply:
		return "Отлично. Теперь введите ответ на комментарий."
	case models.StageAwaitingDM:
		return "Принято. Теперь введите сообщение для отправки в ЛС."
	}
	if f, ok := stage.EditedField(); ok {
		return "Введите новое значение для поля: " + f.Label()
	}
	return ""
}
