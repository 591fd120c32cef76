package bot

import (
	"context"
	"fmt"

	"github.com/bowerhall/faqdesk/internal/agent"
	"github.com/bowerhall/faqdesk/internal/logger"
	"github.com/bwmarrin/discordgo"
)

// discordMessageLimit is the maximum message length Discord accepts.
const discordMessageLimit = 2000

func newDiscord(token string, agent *agent.Agent) (Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	d := &discord{
		session: session,
		agent:   agent,
	}

	session.AddHandler(d.handleMessage)

	return d, nil
}

func (d *discord) Start(ctx context.Context) error {
	d.ctx = ctx

	if err := d.session.Open(); err != nil {
		return err
	}

	logger.Info("discord bot started")

	<-ctx.Done()
	return d.session.Close()
}

func (d *discord) Send(channel, message string) error {
	_, err := d.session.ChannelMessageSend(channel, truncate(message, discordMessageLimit-3))
	if err != nil {
		logger.Error("discord send failed", "error", err, "channelID", channel)
	} else {
		logger.Info("discord message sent", "channelID", channel, "chars", len(message))
	}
	return err
}

func (d *discord) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}

	// in guild channels only answer when mentioned
	if m.GuildID != "" && !mentions(m.Content, s.State.User.ID) {
		return
	}

	userID := fmt.Sprintf("discord:%s", m.Author.ID)
	text := stripMentions(m.Content)
	logger.Info("message received", "user", userID, "from", m.Author.Username, "text", truncate(text, 50))

	var response string
	if cmd := parseCommand(text); cmd != cmdNone {
		response = runCommand(d.agent, cmd, userID)
	} else {
		s.ChannelTyping(m.ChannelID)
		response = answer(d.ctx, d.agent, userID, text)
	}

	if _, err := s.ChannelMessageSendReply(m.ChannelID, truncate(response, discordMessageLimit-3), m.Reference()); err != nil {
		logger.Error("discord reply failed", "error", err)
	} else {
		logger.Info("reply sent", "user", userID, "chars", len(response))
	}
}
