package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/fsm"
)

// telegramStub answers every Bot API call with an empty ok result.
func telegramStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	}))
}

func newTestBot(t *testing.T, serverURL string) *Bot {
	t.Helper()
	client, err := bot.New("123:TEST", bot.WithServerURL(serverURL), bot.WithSkipGetMe())
	require.NoError(t, err)
	return &Bot{
		deps:   Deps{States: fsm.NewStore(time.Hour)},
		tenant: db.Tenant{ID: 1},
		bot:    client,
		gate:   &MentionGate{},
	}
}

func TestStopCommandExitsChatMode(t *testing.T) {
	srv := telegramStub(t)
	defer srv.Close()
	b := newTestBot(t, srv.URL)

	b.deps.States.Set(10, 20, fsm.StateAIChat)
	b.deps.States.Update(10, 20, func(d *fsm.Data) { d.ProjectID = 7 })
	rc := &reqContext{ChatID: 10, User: &db.User{ID: 20}}

	b.dispatchCommand(context.Background(), rc, "stop", "")

	assert.Equal(t, fsm.None, b.deps.States.State(10, 20))
}

func TestCancelCommandAbortsWizard(t *testing.T) {
	srv := telegramStub(t)
	defer srv.Close()
	b := newTestBot(t, srv.URL)

	b.deps.States.Set(10, 20, fsm.StateProjectName)
	rc := &reqContext{ChatID: 10, User: &db.User{ID: 20}}

	b.dispatchCommand(context.Background(), rc, "cancel", "")

	assert.Equal(t, fsm.None, b.deps.States.State(10, 20))
}

func TestStopCommandOutsideAnyFlow(t *testing.T) {
	srv := telegramStub(t)
	defer srv.Close()
	b := newTestBot(t, srv.URL)

	rc := &reqContext{ChatID: 10, User: &db.User{ID: 20}}
	b.dispatchCommand(context.Background(), rc, "stop", "")

	assert.Equal(t, fsm.None, b.deps.States.State(10, 20))
}
