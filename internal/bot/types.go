package bot

import (
	"context"

	"github.com/bowerhall/faqdesk/internal/agent"
	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

type Bot interface {
	Start(ctx context.Context) error
	// Send posts a standalone message, used for operator alerts.
	Send(channel, message string) error
}

type Config struct {
	Provider string
	Token    string
	AppToken string // Slack: app-level token for socket mode
	APIURL   string // Slack: override for tests
}

type slackBot struct {
	api       *slack.Client
	socket    *socketmode.Client
	agent     *agent.Agent
	botUserID string
}

type telegram struct {
	api   *tgbotapi.BotAPI
	agent *agent.Agent
}

type discord struct {
	session *discordgo.Session
	agent   *agent.Agent
	ctx     context.Context
}
