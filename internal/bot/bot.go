package bot

import (
	"fmt"

	"github.com/bowerhall/faqdesk/internal/agent"
)

func New(cfg Config, agent *agent.Agent) (Bot, error) {
	switch cfg.Provider {
	case "slack":
		return NewSlack(cfg.Token, cfg.AppToken, cfg.APIURL, agent)
	case "telegram":
		return NewTelegram(cfg.Token, agent)
	case "discord":
		return NewDiscord(cfg.Token, agent)
	default:
		return nil, fmt.Errorf("unknown bot provider: %s", cfg.Provider)
	}
}

func NewSlack(botToken, appToken, apiURL string, agent *agent.Agent) (Bot, error) {
	return newSlack(botToken, appToken, apiURL, agent)
}

func NewTelegram(token string, agent *agent.Agent) (Bot, error) {
	return newTelegram(token, agent)
}

func NewDiscord(token string, agent *agent.Agent) (Bot, error) {
	return newDiscord(token, agent)
}
