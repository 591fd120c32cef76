package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bowerhall/faqdesk/internal/assistant"
)

// Requirement names a group of settings a command cannot start without.
type Requirement int

const (
	NeedAssistant Requirement = iota
	NeedBot
)

// placeholderPrefixes mark values copied from an example .env file without
// being filled in.
var placeholderPrefixes = []string{"your_", "xoxb-your-", "xapp-your-"}

// MissingError lists every required variable that is unset or still holds a
// placeholder.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Vars, ", ")
}

// Guidance explains how to fix the missing settings.
func (e *MissingError) Guidance() string {
	var sb strings.Builder

	sb.WriteString("The following environment variables are not set:\n")
	for _, name := range e.Vars {
		fmt.Fprintf(&sb, "  - %s\n", name)
	}
	sb.WriteString("\nSet them in your shell or in a .env file, for example:\n")
	for _, name := range e.Vars {
		fmt.Fprintf(&sb, "  %s=%s\n", name, example(name))
	}

	return sb.String()
}

func example(name string) string {
	switch name {
	case "SLACK_BOT_TOKEN":
		return "xoxb-..."
	case "SLACK_APP_TOKEN":
		return "xapp-..."
	case "OPENAI_API_KEY":
		return "sk-..."
	default:
		return "..."
	}
}

// Validate checks the settings required by needs.
func (c *Config) Validate(needs ...Requirement) error {
	var missing []string

	check := func(name, value string) {
		if isMissing(value) {
			missing = append(missing, name)
		}
	}

	for _, need := range needs {
		switch need {
		case NeedAssistant:
			check("OPENAI_API_KEY", c.Assistant.APIKey)
			check("ASSISTANT_ID", c.Assistant.ID)
			if c.Assistant.Provider == "azure" {
				check("AZURE_OPENAI_ENDPOINT", c.Assistant.AzureEndpoint)
			}
		case NeedBot:
			switch c.Bot.Provider {
			case "slack":
				check("SLACK_BOT_TOKEN", c.Bot.SlackBotToken)
				check("SLACK_APP_TOKEN", c.Bot.SlackAppToken)
			case "telegram":
				check("TELEGRAM_TOKEN", c.Bot.TelegramToken)
			case "discord":
				check("DISCORD_TOKEN", c.Bot.DiscordToken)
			default:
				return fmt.Errorf("unknown BOT_PROVIDER: %s", c.Bot.Provider)
			}
		}
	}

	if !slices.Contains(assistant.KnownProviders(), c.Assistant.Provider) {
		return fmt.Errorf("unknown ASSISTANT_PROVIDER: %s (want one of %s)",
			c.Assistant.Provider, strings.Join(assistant.KnownProviders(), ", "))
	}

	if len(missing) > 0 {
		return &MissingError{Vars: missing}
	}

	return nil
}

func isMissing(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}

	lower := strings.ToLower(value)
	for _, prefix := range placeholderPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}

	return false
}
