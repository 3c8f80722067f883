package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
)

type fakeSource struct {
	users   []db.User
	project *db.Project
}

func (f *fakeSource) GetUsersByIDs(_ context.Context, _ []int64) ([]db.User, error) {
	return f.users, nil
}

func (f *fakeSource) GetProjectByID(_ context.Context, _ int64) (*db.Project, error) {
	if f.project == nil {
		return nil, domain.NotFoundf("project")
	}
	return f.project, nil
}

type fakeAdapter struct {
	platform string
	notified []int64
}

func (f *fakeAdapter) Platform() string         { return f.platform }
func (f *fakeAdapter) CanReach(u *db.User) bool { return u.TelegramID != nil }
func (f *fakeAdapter) Notify(_ context.Context, u *db.User, _ domain.Notification) error {
	f.notified = append(f.notified, u.ID)
	return nil
}

type tenantAdapter struct {
	fakeAdapter
	tenant int64
}

func (f *tenantAdapter) TenantID() int64 { return f.tenant }

func reachableUser(id, tgID int64) db.User {
	return db.User{ID: id, TelegramID: &tgID, IsBotStarted: true}
}

func TestDispatchRoutesByProjectTenant(t *testing.T) {
	tenant2 := int64(2)
	src := &fakeSource{
		users:   []db.User{reachableUser(20, 555)},
		project: &db.Project{ID: 7, TenantID: &tenant2},
	}
	first := &tenantAdapter{fakeAdapter: fakeAdapter{platform: "telegram"}, tenant: 1}
	second := &tenantAdapter{fakeAdapter: fakeAdapter{platform: "telegram"}, tenant: 2}

	d := &Dispatcher{repo: src}
	d.Register(first)
	d.Register(second)

	d.Dispatch(context.Background(), domain.Notification{
		Type:         domain.NotifyDeadlineApproaching,
		ProjectID:    7,
		RecipientIDs: []int64{20},
	})

	assert.Empty(t, first.notified, "first-registered bot must not carry another tenant's project")
	require.Equal(t, []int64{20}, second.notified)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	src := &fakeSource{users: []db.User{reachableUser(20, 555)}}
	retired := &fakeAdapter{platform: "telegram"}
	alive := &fakeAdapter{platform: "telegram"}

	d := &Dispatcher{repo: src}
	d.Register(retired)
	d.Register(alive)
	d.Unregister(retired)

	d.Dispatch(context.Background(), domain.Notification{
		Type:         domain.NotifyWeeklyReport,
		RecipientIDs: []int64{20},
	})

	assert.Empty(t, retired.notified)
	assert.Equal(t, []int64{20}, alive.notified)
}

func TestDispatchSkipsUsersWithoutBotStart(t *testing.T) {
	tgID := int64(555)
	src := &fakeSource{users: []db.User{{ID: 20, TelegramID: &tgID}}}
	a := &fakeAdapter{platform: "telegram"}

	d := &Dispatcher{repo: src}
	d.Register(a)
	d.Dispatch(context.Background(), domain.Notification{
		Type:         domain.NotifyWeeklyReport,
		RecipientIDs: []int64{20},
	})

	assert.Empty(t, a.notified)
}
