package telegram

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
)

const (
	testBotID       = int64(777)
	testBotUsername = "renova_bot"
)

func groupMsg(text string) *models.Message {
	return &models.Message{
		Text: text,
		Chat: models.Chat{ID: -100, Type: models.ChatTypeGroup},
	}
}

func TestMentionGatePrivateAlwaysPasses(t *testing.T) {
	g := &MentionGate{Enabled: true}
	msg := &models.Message{Text: "привет", Chat: models.Chat{ID: 1, Type: models.ChatTypePrivate}}
	assert.True(t, g.Directed(msg, testBotUsername, testBotID))
}

func TestMentionGateDisabled(t *testing.T) {
	g := &MentionGate{Enabled: false}
	assert.True(t, g.Directed(groupMsg("просто болтаем"), testBotUsername, testBotID))
}

func TestMentionGateCommands(t *testing.T) {
	g := &MentionGate{Enabled: true}
	assert.True(t, g.Directed(groupMsg("/status"), testBotUsername, testBotID))
	assert.False(t, g.Directed(groupMsg("просто болтаем"), testBotUsername, testBotID))
}

func TestMentionGateReplyToBot(t *testing.T) {
	g := &MentionGate{Enabled: true}
	msg := groupMsg("да, согласен")
	msg.ReplyToMessage = &models.Message{From: &models.User{ID: testBotID}}
	assert.True(t, g.Directed(msg, testBotUsername, testBotID))

	msg.ReplyToMessage.From.ID = 42
	assert.False(t, g.Directed(msg, testBotUsername, testBotID))
}

func TestMentionGateUsernameMention(t *testing.T) {
	g := &MentionGate{Enabled: true}
	msg := groupMsg("@renova_bot сколько потратили?")
	msg.Entities = []models.MessageEntity{
		{Type: models.MessageEntityTypeMention, Offset: 0, Length: 11},
	}
	assert.True(t, g.Directed(msg, testBotUsername, testBotID))

	other := groupMsg("@other_bot сколько потратили?")
	other.Entities = []models.MessageEntity{
		{Type: models.MessageEntityTypeMention, Offset: 0, Length: 10},
	}
	assert.False(t, g.Directed(other, testBotUsername, testBotID))
}

func TestMentionGateTextMention(t *testing.T) {
	g := &MentionGate{Enabled: true}
	msg := groupMsg("Рено, что по срокам?")
	msg.Entities = []models.MessageEntity{
		{Type: models.MessageEntityTypeTextMention, Offset: 0, Length: 4, User: &models.User{ID: testBotID}},
	}
	assert.True(t, g.Directed(msg, testBotUsername, testBotID))
}

func TestMentionGateCustomPatterns(t *testing.T) {
	g := &MentionGate{Enabled: true, Patterns: []string{"бот", "помощник"}}

	assert.True(t, g.Directed(groupMsg("Бот, сколько потратили?"), testBotUsername, testBotID))
	assert.True(t, g.Directed(groupMsg("помощник что дальше"), testBotUsername, testBotID))
	// Word boundary: "ботинки" does not address the bot.
	assert.False(t, g.Directed(groupMsg("ботинки куплены"), testBotUsername, testBotID))
}

func TestMentionGateCaption(t *testing.T) {
	g := &MentionGate{Enabled: true, Patterns: []string{"бот"}}
	msg := &models.Message{
		Caption: "бот, глянь фото",
		Chat:    models.Chat{ID: -100, Type: models.ChatTypeGroup},
	}
	assert.True(t, g.Directed(msg, testBotUsername, testBotID))
}
