package fsm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoreLifecycle(t *testing.T) {
	s := NewStore(0)

	assert.Equal(t, None, s.State(1, 2))

	s.Set(1, 2, StateProjectName)
	assert.Equal(t, StateProjectName, s.State(1, 2))

	s.SetField(1, 2, "name", "Квартира на Абая")
	s.Set(1, 2, StateProjectType)
	assert.Equal(t, "Квартира на Абая", s.Data(1, 2).Fields["name"])

	s.Clear(1, 2)
	assert.Equal(t, None, s.State(1, 2))
	assert.Empty(t, s.Data(1, 2).Fields)
}

func TestStoreIsolatesConversations(t *testing.T) {
	s := NewStore(0)
	s.Set(1, 2, StateAIChat)
	s.Set(1, 3, StateBudgetAmount)

	assert.Equal(t, StateAIChat, s.State(1, 2))
	assert.Equal(t, StateBudgetAmount, s.State(1, 3))
	assert.Equal(t, None, s.State(2, 2))
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore(0)
	s.Update(5, 6, func(d *Data) {
		d.ProjectID = 10
		d.Intent = "report"
	})
	d := s.Data(5, 6)
	assert.Equal(t, int64(10), d.ProjectID)
	assert.Equal(t, "report", d.Intent)
}

func TestStoreDataIsCopy(t *testing.T) {
	s := NewStore(0)
	s.SetField(1, 1, "k", "v")
	d := s.Data(1, 1)
	d.Fields["k"] = "changed"
	assert.Equal(t, "v", s.Data(1, 1).Fields["k"])
}

func TestStoreExpiry(t *testing.T) {
	s := NewStore(10 * time.Millisecond)
	s.Set(1, 2, StateInviteRole)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, None, s.State(1, 2))
	assert.Equal(t, 0, s.Sweep())

	s.Set(3, 4, StateInviteRole)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, s.Sweep())
}
