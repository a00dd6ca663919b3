package testutil

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// SentMessage is a channel message recorded by MockDiscordSession.
type SentMessage struct {
	ChannelID string
	Content   string
}

// MockDiscordSession records the Discord REST calls the bot makes instead of
// sending them. Err, when set, is returned from every call.
type MockDiscordSession struct {
	mu sync.Mutex

	Responses       []*discordgo.InteractionResponse
	Messages        []SentMessage
	RegisteredGuild string
	RegisteredCmds  []*discordgo.ApplicationCommand
	RegisterCalls   int
	Err             error
}

// NewMockDiscordSession creates an empty recording session.
func NewMockDiscordSession() *MockDiscordSession {
	return &MockDiscordSession{}
}

// InteractionRespond records the response to an interaction.
func (m *MockDiscordSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Responses = append(m.Responses, resp)
	return nil
}

// ChannelMessageSend records a message posted to a channel.
func (m *MockDiscordSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.Messages = append(m.Messages, SentMessage{ChannelID: channelID, Content: content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

// ApplicationCommandBulkOverwrite records the registered command set.
func (m *MockDiscordSession) ApplicationCommandBulkOverwrite(_ string, guildID string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RegisterCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	m.RegisteredGuild = guildID
	m.RegisteredCmds = cmds
	return cmds, nil
}

// LastContent returns the content of the most recent interaction response,
// or "" when nothing was answered.
func (m *MockDiscordSession) LastContent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Responses) == 0 || m.Responses[len(m.Responses)-1].Data == nil {
		return ""
	}
	return m.Responses[len(m.Responses)-1].Data.Content
}

// SentMessages returns a copy of the recorded channel messages.
func (m *MockDiscordSession) SentMessages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.Messages...)
}

// Reset clears everything recorded so far.
func (m *MockDiscordSession) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = nil
	m.Messages = nil
	m.RegisteredGuild = ""
	m.RegisteredCmds = nil
	m.RegisterCalls = 0
}
