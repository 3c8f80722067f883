package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"entry":[]}`)

	assert.True(t, VerifySignature("secret", body, sign("secret", body)))
	assert.False(t, VerifySignature("secret", body, sign("other", body)))
	assert.False(t, VerifySignature("secret", body, "sha256=nothex"))
	assert.False(t, VerifySignature("secret", body, "md5=abc"))
	assert.False(t, VerifySignature("secret", body, ""))
}

func newWebhookApp(w *Webhook) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	w.Register(app)
	return app
}

func TestWebhookHandshake(t *testing.T) {
	app := newWebhookApp(NewWebhook("secret", "vtoken", nil))

	req := httptest.NewRequest("GET",
		"/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=vtoken&hub.challenge=12345", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	assert.Equal(t, "12345", string(buf[:n]))
}

func TestWebhookHandshakeWrongToken(t *testing.T) {
	app := newWebhookApp(NewWebhook("secret", "vtoken", nil))

	req := httptest.NewRequest("GET",
		"/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestWebhookRejectsUnsignedPost(t *testing.T) {
	app := newWebhookApp(NewWebhook("secret", "vtoken", nil))

	req := httptest.NewRequest("POST", "/whatsapp/webhook", strings.NewReader(`{"entry":[]}`))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestWebhookDeliversMessages(t *testing.T) {
	var gotID, gotName, gotText string
	w := NewWebhook("secret", "vtoken", func(_ context.Context, waID, name, text string) string {
		gotID, gotName, gotText = waID, name, text
		return ""
	})
	app := newWebhookApp(w)

	body := `{"entry":[{"changes":[{"value":{
		"contacts":[{"wa_id":"77011234567","profile":{"name":"Ерлан"}}],
		"messages":[{"from":"77011234567","type":"text","text":{"body":"как дела на объекте?"}}]
	}}]}]}`
	req := httptest.NewRequest("POST", "/whatsapp/webhook", strings.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign("secret", []byte(body)))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	assert.Equal(t, "77011234567", gotID)
	assert.Equal(t, "Ерлан", gotName)
	assert.Equal(t, "как дела на объекте?", gotText)
}
