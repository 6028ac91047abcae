package bot

import (
	"strconv"
	"strings"

	"github.com/xaenox/commentbot/internal/models"
)

// ActionKind identifies what an inline button does.
type ActionKind string

const (
	ActionMainMenu      ActionKind = "main_menu"
	ActionListTriggers  ActionKind = "list_triggers"
	ActionAddTrigger    ActionKind = "add_trigger"
	ActionView          ActionKind = "view"
	ActionEdit          ActionKind = "edit"
	ActionDeleteConfirm ActionKind = "delete_confirm"
	ActionDelete        ActionKind = "delete_do"
	ActionCancel        ActionKind = "cancel_dialog"
)

// Action is the decoded form of a button's callback data.
type Action struct {
	Kind      ActionKind
	Page      int
	TriggerID string
	Field     models.Field
}

// Data encodes the action as callback data.
func (a Action) Data() string {
	switch a.Kind {
	case ActionListTriggers:
		return string(a.Kind) + "_" + strconv.Itoa(a.Page)
	case ActionView, ActionDeleteConfirm, ActionDelete:
		return string(a.Kind) + "_" + a.TriggerID
	case ActionEdit:
		return string(a.Kind) + "_" + a.Field.Key() + "_" + a.TriggerID
	}
	return string(a.Kind)
}

// ParseAction decodes callback data. Unknown or malformed data is reported
// with ok == false.
func ParseAction(data string) (Action, bool) {
	switch ActionKind(data) {
	case ActionMainMenu, ActionAddTrigger, ActionCancel:
		return Action{Kind: ActionKind(data)}, true
	}

	if rest, ok := strings.CutPrefix(data, string(ActionListTriggers)+"_"); ok {
		page, err := strconv.Atoi(rest)
		if err != nil || page < 0 {
			return Action{}, false
		}
		return Action{Kind: ActionListTriggers, Page: page}, true
	}

	for _, kind := range []ActionKind{ActionDeleteConfirm, ActionDelete, ActionView} {
		if id, ok := strings.CutPrefix(data, string(kind)+"_"); ok {
			if id == "" {
				return Action{}, false
			}
			return Action{Kind: kind, TriggerID: id}, true
		}
	}

	if rest, ok := strings.CutPrefix(data, string(ActionEdit)+"_"); ok {
		key, id, found := strings.Cut(rest, "_")
		if !found || id == "" {
			return Action{}, false
		}
		field, ok := models.ParseField(key)
		if !ok {
			return Action{}, false
		}
		return Action{Kind: ActionEdit, Field: field, TriggerID: id}, true
	}

	return Action{}, false
}

func listAction(page int) Action { return Action{Kind: ActionListTriggers, Page: page} }

func viewAction(id string) Action { return Action{Kind: ActionView, TriggerID: id} }
