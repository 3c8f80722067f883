// Package fsm holds per-conversation state for multi-step flows. State
// is keyed by (chat id, user id), so parallel conversations never
// contend.
package fsm

import (
	"sync"
	"time"
)

// State names one step of a flow, written as scope:step.
type State string

// Project creation wizard.
const (
	StateProjectName    State = "project:name"
	StateProjectAddress State = "project:address"
	StateProjectArea    State = "project:area"
	StateProjectType    State = "project:type"
	StateProjectBudget  State = "project:budget"
	StateProjectCustom  State = "project:custom_items"
	StateProjectConfirm State = "project:confirm"
)

// Stage configuration.
const (
	StateStageDates     State = "stage:dates"
	StateStageDuration  State = "stage:duration"
	StateStagePerson    State = "stage:person"
	StateStageBudget    State = "stage:budget"
	StateStageSubstages State = "stage:substages"
)

// Role management.
const (
	StateInviteRole    State = "role:pick_role"
	StateInviteContact State = "role:contact"
	StateInviteConfirm State = "role:confirm"
)

// Budget entry.
const (
	StateBudgetAmount      State = "budget:amount"
	StateBudgetDescription State = "budget:description"
)

// Project picker for commands issued in private chat.
const StatePickProject State = "picker:project"

// Interactive AI chat mode.
const StateAIChat State = "chat:active"

// None is the empty state: no flow in progress.
const None State = ""

// Data is the per-conversation scratch bag accumulated across steps.
type Data struct {
	ProjectID int64
	StageID   int64
	Intent    string
	Fields    map[string]string
}

type entry struct {
	state   State
	data    Data
	touched time.Time
}

type key struct {
	chatID int64
	userID int64
}

// Store is the in-memory state store. Entries expire after TTL of
// inactivity; process restart clears everything, which only costs the
// user a restarted flow.
type Store struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[key]*entry
}

// DefaultTTL bounds how long an abandoned wizard keeps its state.
const DefaultTTL = time.Hour

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{ttl: ttl, m: make(map[key]*entry)}
}

func (s *Store) get(chatID, userID int64) *entry {
	k := key{chatID, userID}
	e, ok := s.m[k]
	if !ok {
		return nil
	}
	if time.Since(e.touched) > s.ttl {
		delete(s.m, k)
		return nil
	}
	return e
}

// State returns the current state, or None.
func (s *Store) State(chatID, userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.get(chatID, userID); e != nil {
		return e.state
	}
	return None
}

// Set moves the conversation to a new state, keeping its data bag.
func (s *Store) Set(chatID, userID int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(chatID, userID)
	if e == nil {
		e = &entry{data: Data{Fields: map[string]string{}}}
		s.m[key{chatID, userID}] = e
	}
	e.state = state
	e.touched = time.Now()
}

// Data returns a copy of the conversation's data bag.
func (s *Store) Data(chatID, userID int64) Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(chatID, userID)
	if e == nil {
		return Data{Fields: map[string]string{}}
	}
	d := e.data
	fields := make(map[string]string, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = v
	}
	d.Fields = fields
	return d
}

// Update mutates the data bag in place under the store lock.
func (s *Store) Update(chatID, userID int64, fn func(d *Data)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(chatID, userID)
	if e == nil {
		e = &entry{data: Data{Fields: map[string]string{}}}
		s.m[key{chatID, userID}] = e
	}
	fn(&e.data)
	e.touched = time.Now()
}

// SetField stores one wizard field.
func (s *Store) SetField(chatID, userID int64, name, value string) {
	s.Update(chatID, userID, func(d *Data) {
		d.Fields[name] = value
	})
}

// Clear ends the flow and drops its data.
func (s *Store) Clear(chatID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key{chatID, userID})
}

// Sweep removes expired entries. The scheduler calls this periodically so
// abandoned wizards do not accumulate.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.m {
		if time.Since(e.touched) > s.ttl {
			delete(s.m, k)
			n++
		}
	}
	return n
}
