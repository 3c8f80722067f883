package telegram

import (
	"strings"
	"unicode"

	"github.com/go-telegram/bot/models"
)

// MentionGate decides whether a group-chat message is directed at the
// bot. Undirected messages get no reply but are still stored and indexed.
type MentionGate struct {
	Enabled  bool
	Patterns []string // extra prefixes like "бот" or "помощник"
}

// Directed reports whether the bot should react to the message. Private
// chats always pass, as do explicit commands, replies to the bot's own
// messages and @-mentions of the bot.
func (g *MentionGate) Directed(msg *models.Message, botUsername string, botID int64) bool {
	if !g.Enabled {
		return true
	}
	if msg.Chat.Type == models.ChatTypePrivate {
		return true
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	if strings.HasPrefix(text, "/") {
		return true
	}
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil &&
		msg.ReplyToMessage.From.ID == botID {
		return true
	}

	entities := msg.Entities
	if len(entities) == 0 {
		entities = msg.CaptionEntities
	}
	for _, e := range entities {
		switch e.Type {
		case models.MessageEntityTypeMention:
			mention := sliceEntity(text, e)
			if strings.EqualFold(mention, "@"+botUsername) {
				return true
			}
		case models.MessageEntityTypeTextMention:
			if e.User != nil && e.User.ID == botID {
				return true
			}
		}
	}

	return g.matchesPattern(text)
}

// matchesPattern checks the configured custom prefixes, case-insensitive
// and word-bounded.
func (g *MentionGate) matchesPattern(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, p := range g.Patterns {
		p = strings.ToLower(p)
		if !strings.HasPrefix(lower, p) {
			continue
		}
		rest := lower[len(p):]
		if rest == "" {
			return true
		}
		r := []rune(rest)[0]
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// sliceEntity extracts an entity's text by UTF-16 offsets, which is how
// Telegram counts them.
func sliceEntity(text string, e models.MessageEntity) string {
	utf16Pos := 0
	start, end := -1, -1
	for i, r := range text {
		if utf16Pos == e.Offset {
			start = i
		}
		if utf16Pos == e.Offset+e.Length {
			end = i
			break
		}
		if r > 0xFFFF {
			utf16Pos += 2
		} else {
			utf16Pos++
		}
	}
	if start < 0 {
		return ""
	}
	if end < 0 {
		end = len(text)
	}
	return text[start:end]
}
