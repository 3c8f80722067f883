package repo

import (
	"context"
	"fmt"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
)

// AssignRole grants a role in a project. Re-granting an already held role
// is a no-op.
func (r *Repo) AssignRole(ctx context.Context, projectID, userID int64, role domain.Role) error {
	if !domain.ValidRole(string(role)) {
		return domain.Validationf("unknown role %q", role)
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&db.ProjectRole{}).
		Where("project_id = ? AND user_id = ? AND role = ?", projectID, userID, string(role)).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check role: %w", err)
	}
	if count > 0 {
		return nil
	}
	pr := &db.ProjectRole{ProjectID: projectID, UserID: userID, Role: string(role)}
	if err := r.db.WithContext(ctx).Create(pr).Error; err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// GetUserRolesInProject returns every role the user holds in the project.
func (r *Repo) GetUserRolesInProject(ctx context.Context, projectID, userID int64) ([]domain.Role, error) {
	var rows []db.ProjectRole
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get user roles: %w", err)
	}
	roles := make([]domain.Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, domain.Role(row.Role))
	}
	return roles, nil
}

// RemoveUserFromProject drops every role the user holds. The owner cannot
// be removed.
func (r *Repo) RemoveUserFromProject(ctx context.Context, projectID, userID int64) error {
	roles, err := r.GetUserRolesInProject(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		return domain.NotFoundf("user %d has no roles in project %d", userID, projectID)
	}
	for _, role := range roles {
		if role == domain.RoleOwner {
			return domain.Validationf("the project owner cannot be removed")
		}
	}
	return r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&db.ProjectRole{}).Error
}

// GetProjectOwnerIDs returns the user ids holding the owner role.
func (r *Repo) GetProjectOwnerIDs(ctx context.Context, projectID int64) ([]int64, error) {
	return r.GetProjectRoleUserIDs(ctx, projectID, domain.RoleOwner)
}

// GetProjectRoleUserIDs returns the user ids holding one role in a project.
func (r *Repo) GetProjectRoleUserIDs(ctx context.Context, projectID int64, role domain.Role) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&db.ProjectRole{}).
		Where("project_id = ? AND role = ?", projectID, string(role)).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("get role user ids: %w", err)
	}
	return ids, nil
}

// GetProjectUserIDsByRoles returns distinct user ids holding any of the
// given roles. Notification fan-out uses this.
func (r *Repo) GetProjectUserIDsByRoles(ctx context.Context, projectID int64, roles []domain.Role) ([]int64, error) {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	var ids []int64
	err := r.db.WithContext(ctx).Model(&db.ProjectRole{}).
		Distinct("user_id").
		Where("project_id = ? AND role IN ?", projectID, names).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("get users by roles: %w", err)
	}
	return ids, nil
}

// TeamMember is one roster line: a user plus their roles and message count.
type TeamMember struct {
	User         db.User
	Roles        []domain.Role
	MessageCount int64
}

// GetProjectTeam builds the roster grouped by user.
func (r *Repo) GetProjectTeam(ctx context.Context, projectID int64) ([]TeamMember, error) {
	var rows []db.ProjectRole
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("user_id, role").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get project team: %w", err)
	}

	byUser := map[int64]*TeamMember{}
	var order []int64
	for _, row := range rows {
		m, ok := byUser[row.UserID]
		if !ok {
			if row.User == nil {
				continue
			}
			m = &TeamMember{User: *row.User}
			byUser[row.UserID] = m
			order = append(order, row.UserID)
		}
		m.Roles = append(m.Roles, domain.Role(row.Role))
	}

	type countRow struct {
		UserID int64
		N      int64
	}
	var counts []countRow
	err = r.db.WithContext(ctx).Model(&db.Message{}).
		Select("user_id, COUNT(*) AS n").
		Where("project_id = ? AND user_id IS NOT NULL AND NOT is_from_bot", projectID).
		Group("user_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count team messages: %w", err)
	}
	for _, c := range counts {
		if m, ok := byUser[c.UserID]; ok {
			m.MessageCount = c.N
		}
	}

	team := make([]TeamMember, 0, len(order))
	for _, id := range order {
		team = append(team, *byUser[id])
	}
	return team, nil
}
