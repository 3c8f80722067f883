// Package adapter defines the platform-neutral seam between the engine
// and the messaging platforms, plus the notification fan-out.
package adapter

import (
	"context"
	"log"
	"sync"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/repo"
)

// Adapter is one platform connection able to reach users directly.
type Adapter interface {
	// Platform names the adapter: "telegram", "whatsapp", "discord".
	Platform() string
	// CanReach reports whether this adapter has a direct route to the user.
	CanReach(user *db.User) bool
	// Notify delivers one notification to the user's private chat.
	Notify(ctx context.Context, user *db.User, n domain.Notification) error
}

// TenantScoped marks adapters bound to a single tenant. Dispatch skips
// them for notifications whose project belongs to a different tenant.
type TenantScoped interface {
	TenantID() int64
}

// Announcer receives every dispatched notification once, independent of
// recipients. Channel mirrors (a Discord ops channel) hang here.
type Announcer interface {
	Announce(ctx context.Context, n domain.Notification) error
}

// recipientSource is the slice of the repository Dispatch needs.
type recipientSource interface {
	GetUsersByIDs(ctx context.Context, ids []int64) ([]db.User, error)
	GetProjectByID(ctx context.Context, id int64) (*db.Project, error)
}

// Dispatcher resolves notification recipients to users and routes each
// through the first adapter that can reach them. Adapters come and go
// at runtime as tenant bots start and stop.
type Dispatcher struct {
	repo recipientSource

	mu         sync.RWMutex
	adapters   []Adapter
	announcers []Announcer
}

func NewDispatcher(r *repo.Repo) *Dispatcher {
	return &Dispatcher{repo: r}
}

// Register appends an adapter. Order matters: earlier adapters are
// preferred when a user is reachable on several platforms.
func (d *Dispatcher) Register(a Adapter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.adapters = append(d.adapters, a)
}

// Unregister removes a previously registered adapter. A stopped tenant
// bot must not keep receiving deliveries.
func (d *Dispatcher) Unregister(a Adapter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, cur := range d.adapters {
		if cur == a {
			d.adapters = append(d.adapters[:i], d.adapters[i+1:]...)
			return
		}
	}
}

// RegisterAnnouncer appends a notification mirror.
func (d *Dispatcher) RegisterAnnouncer(a Announcer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.announcers = append(d.announcers, a)
}

// Dispatch fans one notification out to all its recipients. Delivery
// failures are logged and do not stop the remaining deliveries.
func (d *Dispatcher) Dispatch(ctx context.Context, n domain.Notification) {
	d.mu.RLock()
	adapters := append([]Adapter(nil), d.adapters...)
	announcers := append([]Announcer(nil), d.announcers...)
	d.mu.RUnlock()

	for _, a := range announcers {
		if err := a.Announce(ctx, n); err != nil {
			log.Printf("[notify] announce %s: %v", n.Type, err)
		}
	}
	if len(n.RecipientIDs) == 0 {
		return
	}

	// Tenant-scoped adapters only carry their own tenant's projects.
	var tenantID int64
	if n.ProjectID != 0 {
		if p, err := d.repo.GetProjectByID(ctx, n.ProjectID); err == nil && p.TenantID != nil {
			tenantID = *p.TenantID
		}
	}

	users, err := d.repo.GetUsersByIDs(ctx, n.RecipientIDs)
	if err != nil {
		log.Printf("[notify] load recipients for %s: %v", n.Type, err)
		return
	}
	for i := range users {
		user := &users[i]
		if !user.IsBotStarted {
			continue
		}
		delivered := false
		for _, a := range adapters {
			if ts, ok := a.(TenantScoped); ok && tenantID != 0 && ts.TenantID() != tenantID {
				continue
			}
			if !a.CanReach(user) {
				continue
			}
			if err := a.Notify(ctx, user, n); err != nil {
				log.Printf("[notify] %s to user %d via %s: %v", n.Type, user.ID, a.Platform(), err)
				continue
			}
			delivered = true
			break
		}
		if !delivered {
			log.Printf("[notify] no route to user %d for %s", user.ID, n.Type)
		}
	}
}
