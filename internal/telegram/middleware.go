package telegram

import (
	"context"
	"errors"
	"log"

	"github.com/go-telegram/bot/models"

	"github.com/igoryan-dao/renovabot/internal/cache"
	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
)

// reqContext is what the middleware attaches to every handled event: the
// acting user, the chat's project (group chats only) and the user's roles
// in it.
type reqContext struct {
	ChatID  int64
	IsGroup bool
	User    *db.User
	Project *db.Project
	Roles   []domain.Role
}

func isGroupChat(t models.ChatType) bool {
	return t == models.ChatTypeGroup || t == models.ChatTypeSupergroup
}

// resolveContext loads user and project, caching the hot id lookups for
// ten minutes. Roles are read fresh every time.
func (b *Bot) resolveContext(ctx context.Context, from *models.User, chat models.Chat) (*reqContext, error) {
	rc := &reqContext{ChatID: chat.ID, IsGroup: isGroupChat(chat.Type)}
	if from == nil || from.IsBot {
		return rc, nil
	}

	user, err := b.resolveUser(ctx, from)
	if err != nil {
		return nil, err
	}
	rc.User = user

	if rc.IsGroup {
		project, err := b.resolveChatProject(ctx, chat.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		rc.Project = project
	}

	if rc.Project != nil && rc.User != nil {
		roles, err := b.deps.Repo.GetUserRolesInProject(ctx, rc.Project.ID, rc.User.ID)
		if err != nil {
			return nil, err
		}
		rc.Roles = roles
	}
	return rc, nil
}

func (b *Bot) resolveUser(ctx context.Context, from *models.User) (*db.User, error) {
	key := cache.UserKey(from.ID)
	var userID int64
	if hit, err := b.deps.Cache.Get(ctx, key, &userID); err != nil {
		log.Printf("[tg:%d] user cache read: %v", b.tenant.ID, err)
	} else if hit {
		if user, err := b.deps.Repo.GetUserByID(ctx, userID); err == nil {
			return user, nil
		}
		// Stale cache entry: fall through to the repository.
	}

	user, err := b.deps.Repo.GetOrCreateUserByTelegramID(ctx, from.ID, fullNameOf(from), false)
	if err != nil {
		return nil, err
	}
	if err := b.deps.Cache.Set(ctx, key, user.ID, cache.ResolverTTL); err != nil {
		log.Printf("[tg:%d] user cache write: %v", b.tenant.ID, err)
	}
	return user, nil
}

// resolveChatProject resolves the project linked to a group chat,
// enforcing tenant isolation.
func (b *Bot) resolveChatProject(ctx context.Context, chatID int64) (*db.Project, error) {
	key := cache.ProjectKey(chatID)
	var projectID int64
	if hit, err := b.deps.Cache.Get(ctx, key, &projectID); err != nil {
		log.Printf("[tg:%d] project cache read: %v", b.tenant.ID, err)
	} else if hit {
		if project, err := b.deps.Repo.GetProjectByID(ctx, projectID); err == nil {
			return b.checkTenant(project)
		}
	}

	project, err := b.deps.Repo.GetProjectByTelegramChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := b.deps.Cache.Set(ctx, key, project.ID, cache.ResolverTTL); err != nil {
		log.Printf("[tg:%d] project cache write: %v", b.tenant.ID, err)
	}
	return b.checkTenant(project)
}

// checkTenant hides projects of other tenants from this bot.
func (b *Bot) checkTenant(project *db.Project) (*db.Project, error) {
	if project.TenantID != nil && *project.TenantID != b.tenant.ID {
		return nil, domain.NotFoundf("project for this bot")
	}
	return project, nil
}

func fullNameOf(from *models.User) string {
	name := from.FirstName
	if from.LastName != "" {
		name += " " + from.LastName
	}
	if name == "" {
		name = from.Username
	}
	return name
}
