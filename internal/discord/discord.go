// Package discord mirrors project notifications to a Discord ops
// channel. It is an optional single-workspace integration; per-user
// delivery stays on Telegram and WhatsApp.
package discord

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/igoryan-dao/renovabot/internal/domain"
	"github.com/igoryan-dao/renovabot/internal/format"
)

type Mirror struct {
	session *discordgo.Session
	guildID string

	mu        sync.Mutex
	channelID string
}

const channelName = "renovation-alerts"

func NewMirror(token, guildID string) (*Mirror, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Mirror{session: session, guildID: guildID}, nil
}

// Start opens the gateway connection and resolves the alerts channel,
// creating it when absent.
func (m *Mirror) Start() error {
	m.session.Identify.Intents = discordgo.IntentsGuilds
	if err := m.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	channels, err := m.session.GuildChannels(m.guildID)
	if err != nil {
		return fmt.Errorf("list guild channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == channelName {
			m.setChannel(ch.ID)
			break
		}
	}
	if m.channel() == "" {
		ch, err := m.session.GuildChannelCreate(m.guildID, channelName, discordgo.ChannelTypeGuildText)
		if err != nil {
			return fmt.Errorf("create alerts channel: %w", err)
		}
		m.setChannel(ch.ID)
	}
	log.Printf("[discord] mirroring notifications to #%s", channelName)
	return nil
}

func (m *Mirror) Close() error {
	return m.session.Close()
}

func (m *Mirror) setChannel(id string) {
	m.mu.Lock()
	m.channelID = id
	m.mu.Unlock()
}

func (m *Mirror) channel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channelID
}

// Announce implements adapter.Announcer.
func (m *Mirror) Announce(_ context.Context, n domain.Notification) error {
	channelID := m.channel()
	if channelID == "" {
		return fmt.Errorf("%w: discord channel not resolved", domain.ErrUpstream)
	}
	body := n.Body
	if n.IsHTML {
		body = format.ToDiscordMarkdown(body)
	}
	text := fmt.Sprintf("**%s**\n%s", n.Title, body)
	if _, err := m.session.ChannelMessageSend(channelID, text); err != nil {
		return fmt.Errorf("send to discord: %w", err)
	}
	return nil
}
