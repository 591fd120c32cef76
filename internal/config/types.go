package config

import "time"

type Config struct {
	Assistant AssistantConfig
	Run       RunConfig
	Bot       BotConfig
	Web       WebConfig
	Heartbeat HeartbeatConfig
	Budget    BudgetConfig
	RulesFile string
	Debug     bool
}

type AssistantConfig struct {
	Provider        string
	APIKey          string
	ID              string
	BaseURL         string
	AzureEndpoint   string
	AzureAPIVersion string
	RequestTimeout  time.Duration
}

type RunConfig struct {
	Timeout        time.Duration
	PollInterval   time.Duration
	CreateAttempts int
	CreateBackoff  time.Duration

	// TimeoutSet reports whether the timeout came from the environment or a
	// flag rather than the default.
	TimeoutSet bool
}

type BotConfig struct {
	Provider      string
	SlackBotToken string
	SlackAppToken string
	TelegramToken string
	DiscordToken  string
}

type WebConfig struct {
	Addr string
}

type HeartbeatConfig struct {
	Schedule     string
	AlertChannel string
}

type BudgetConfig struct {
	DailyLimit int
	WarnAt     float64
	Timezone   string
}
