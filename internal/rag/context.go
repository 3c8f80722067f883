package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/igoryan-dao/renovabot/internal/domain"
)

// BuildProjectContext renders the structured project snapshot injected
// into prompts: header, stage list, budget totals and category breakdown.
func (s *Service) BuildProjectContext(ctx context.Context, projectID int64) (string, error) {
	project, err := s.repo.GetProjectWithStages(ctx, projectID)
	if err != nil {
		return "", err
	}
	totals, err := s.repo.GetBudgetTotals(ctx, projectID)
	if err != nil {
		return "", err
	}
	categories, err := s.repo.GetCategorySummaries(ctx, projectID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Проект: %s\n", project.Name)
	if project.Address != nil {
		fmt.Fprintf(&b, "Адрес: %s\n", *project.Address)
	}
	if project.AreaSqm != nil {
		fmt.Fprintf(&b, "Площадь: %.1f м²\n", *project.AreaSqm)
	}
	if project.TotalBudget != nil {
		fmt.Fprintf(&b, "Бюджет: %s\n", domain.FormatAmount(*project.TotalBudget))
	}

	b.WriteString("\nЭтапы:\n")
	for _, st := range project.Stages {
		icon := domain.StatusIcons[st.Status]
		fmt.Fprintf(&b, "%s %s (%s", icon, st.Name, domain.StatusLabels[st.Status])
		if st.StartDate != nil {
			fmt.Fprintf(&b, ", с %s", domain.FormatDate(st.StartDate))
		}
		if st.EndDate != nil {
			fmt.Fprintf(&b, " по %s", domain.FormatDate(st.EndDate))
		}
		if st.Budget != nil {
			fmt.Fprintf(&b, ", бюджет %s", domain.FormatAmount(*st.Budget))
		}
		b.WriteString(")\n")
	}

	fmt.Fprintf(&b, "\nПотрачено всего: %s (работы %s, материалы %s)\n",
		domain.FormatAmount(totals.TotalSpent),
		domain.FormatAmount(totals.TotalWork),
		domain.FormatAmount(totals.TotalMaterials))
	if len(categories) > 0 {
		b.WriteString("По категориям:\n")
		for _, c := range categories {
			fmt.Fprintf(&b, "- %s: %s\n", domain.CategoryLabel(c.Category), domain.FormatAmount(c.Total))
		}
	}
	return b.String(), nil
}

// buildRoster renders the team with message counts for chat mode.
func (s *Service) buildRoster(ctx context.Context, projectID int64) (string, error) {
	team, err := s.repo.GetProjectTeam(ctx, projectID)
	if err != nil {
		return "", err
	}
	if len(team) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("Команда проекта:\n")
	for _, m := range team {
		labels := make([]string, 0, len(m.Roles))
		for _, r := range m.Roles {
			labels = append(labels, domain.RoleLabels[r])
		}
		fmt.Fprintf(&b, "- %s (%s), сообщений: %d\n",
			m.User.FullName, strings.Join(labels, ", "), m.MessageCount)
	}
	return b.String(), nil
}
