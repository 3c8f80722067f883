package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Webhook receives Meta's WhatsApp Business callbacks: the GET
// subscription handshake and signed POST message batches.
type Webhook struct {
	appSecret   string
	verifyToken string
	handler     MessageHandler
}

func NewWebhook(appSecret, verifyToken string, handler MessageHandler) *Webhook {
	return &Webhook{appSecret: appSecret, verifyToken: verifyToken, handler: handler}
}

// Register mounts the webhook routes on an existing fiber app.
func (w *Webhook) Register(app *fiber.App) {
	app.Get("/whatsapp/webhook", w.verify)
	app.Post("/whatsapp/webhook", w.receive)
}

// verify answers the subscription handshake by echoing hub.challenge.
func (w *Webhook) verify(c *fiber.Ctx) error {
	if c.Query("hub.mode") != "subscribe" || c.Query("hub.verify_token") != w.verifyToken {
		return c.SendStatus(fiber.StatusForbidden)
	}
	return c.SendString(c.Query("hub.challenge"))
}

// VerifySignature checks the X-Hub-Signature-256 HMAC of the raw body.
func VerifySignature(appSecret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}

// webhookPayload is the slice of Meta's callback shape we consume.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (w *Webhook) receive(c *fiber.Ctx) error {
	body := c.Body()
	if !VerifySignature(w.appSecret, body, c.Get("X-Hub-Signature-256")) {
		return c.SendStatus(fiber.StatusForbidden)
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("[whatsapp] webhook body: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.Text.Body == "" {
					continue
				}
				if w.handler != nil {
					// Replies go out through the gateway; the webhook only receives.
					w.handler(c.Context(), msg.From, names[msg.From], msg.Text.Body)
				}
			}
		}
	}
	// Meta retries anything but 200.
	return c.SendStatus(fiber.StatusOK)
}
