package telegram

import (
	"context"
	"fmt"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/fsm"
)

// resolveProject is the single policy point for "which project is this
// command about". Group chats use the linked project; private chats use
// the user's only project, or a picker when they have several. A nil
// project with nil error means the interaction was already answered
// (picker shown or instructions sent).
func (b *Bot) resolveProject(ctx context.Context, rc *reqContext, intent string) (*db.Project, error) {
	if rc.IsGroup {
		if rc.Project != nil {
			return rc.Project, nil
		}
		b.send(ctx, rc.ChatID, "Этот чат не привязан к проекту. Используйте /link в ответ на нужный проект.")
		return nil, nil
	}

	if rc.User == nil {
		return nil, fmt.Errorf("no user in private chat context")
	}
	// The project picker pins its choice here before re-dispatching.
	if rc.Project != nil {
		return rc.Project, nil
	}
	tenantID := b.tenant.ID
	projects, err := b.deps.Repo.GetUserProjects(ctx, rc.User.ID, &tenantID)
	if err != nil {
		return nil, err
	}

	switch len(projects) {
	case 0:
		b.send(ctx, rc.ChatID, "У вас пока нет проектов. Создайте первый: /newproject")
		return nil, nil
	case 1:
		return &projects[0], nil
	default:
		b.deps.States.Set(rc.ChatID, rc.User.ID, fsm.StatePickProject)
		b.deps.States.Update(rc.ChatID, rc.User.ID, func(d *fsm.Data) {
			d.Intent = intent
		})
		b.sendKb(ctx, rc.ChatID, "Выберите проект:", projectPickerKeyboard(projects))
		return nil, nil
	}
}
