package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/igoryan-dao/renovabot/internal/domain"
)

func TestPlural(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{1, "1 день"},
		{2, "2 дня"},
		{4, "4 дня"},
		{5, "5 дней"},
		{11, "11 дней"},
		{12, "12 дней"},
		{21, "21 день"},
		{22, "22 дня"},
		{104, "104 дня"},
		{111, "111 дней"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Plural(c.n, "день", "дня", "дней"))
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "только что", TimeAgo(now.Add(-30*time.Second), now))
	assert.Equal(t, "5 минут назад", TimeAgo(now.Add(-5*time.Minute), now))
	assert.Equal(t, "2 часа назад", TimeAgo(now.Add(-2*time.Hour), now))
	assert.Equal(t, "3 дня назад", TimeAgo(now.Add(-3*24*time.Hour), now))

	old := now.Add(-30 * 24 * time.Hour)
	assert.Equal(t, old.Format(domain.DateFormat), TimeAgo(old, now))
}

func TestRenderStatusReportMarksOverdue(t *testing.T) {
	r := &domain.StatusReport{
		ProjectName: "Квартира на Абая",
		ProgressPct: 50,
		Total:       2,
		Completed:   1,
		Stages: []domain.StageBrief{
			{Name: "Демонтаж", Status: domain.StageCompleted},
			{Name: "Электрика", Status: domain.StageInProgress, IsOverdue: true},
		},
	}
	out := renderStatusReport(r)

	assert.Contains(t, out, "Квартира на Абая")
	assert.Contains(t, out, "50%")
	assert.Contains(t, out, "Электрика")
	assert.Contains(t, out, "просрочен")
	assert.Equal(t, 1, strings.Count(out, "просрочен"))
}

func TestRenderNotificationEscapesPlainBody(t *testing.T) {
	n := domain.Notification{Title: "Этап <готов>", Body: "a & b"}
	out := renderNotification(n)

	assert.Contains(t, out, "&lt;готов&gt;")
	assert.Contains(t, out, "a &amp; b")

	n.IsHTML = true
	n.Body = "<b>x</b>"
	assert.Contains(t, renderNotification(n), "<b>x</b>")
}
