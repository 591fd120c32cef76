package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultAssistantID = "asst_dhCyBhWrMBqjd83HnjEbWUY5"
	DefaultRunTimeout  = 30 * time.Second
)

// Option customises Load.
type Option func(*viper.Viper) error

// WithFlag lets a command-line flag override the environment key when the
// flag was given explicitly.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(v *viper.Viper) error {
		if flag == nil {
			return nil
		}
		return v.BindPFlag(key, flag)
	}
}

// WithDotenv loads the given files (default ".env") before reading the
// environment. Missing files are ignored.
func WithDotenv(paths ...string) Option {
	return func(*viper.Viper) error {
		_ = godotenv.Load(paths...)
		return nil
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("assistant_provider", "openai")
	v.SetDefault("assistant_id", DefaultAssistantID)
	v.SetDefault("azure_openai_api_version", "2024-05-01-preview")
	v.SetDefault("openai_request_timeout", "60s")
	v.SetDefault("run_poll_interval", "1s")
	v.SetDefault("run_create_attempts", 3)
	v.SetDefault("run_create_backoff", "2s")
	v.SetDefault("bot_provider", "slack")
	v.SetDefault("web_addr", ":7860")
	v.SetDefault("daily_token_limit", 0)
	v.SetDefault("budget_warn_at", 0.8)
	v.SetDefault("tz", "UTC")
	v.SetDefault("faqdesk_debug", false)
}

// Load reads configuration from the environment. Keys are the lower-case
// environment variable names.
func Load(opts ...Option) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	runCfg, err := loadRunConfig(v)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := duration(v, "openai_request_timeout")
	if err != nil {
		return nil, err
	}

	return &Config{
		Assistant: AssistantConfig{
			Provider:        strings.ToLower(v.GetString("assistant_provider")),
			APIKey:          v.GetString("openai_api_key"),
			ID:              v.GetString("assistant_id"),
			BaseURL:         v.GetString("openai_base_url"),
			AzureEndpoint:   v.GetString("azure_openai_endpoint"),
			AzureAPIVersion: v.GetString("azure_openai_api_version"),
			RequestTimeout:  requestTimeout,
		},
		Run: runCfg,
		Bot: BotConfig{
			Provider:      strings.ToLower(v.GetString("bot_provider")),
			SlackBotToken: v.GetString("slack_bot_token"),
			SlackAppToken: v.GetString("slack_app_token"),
			TelegramToken: v.GetString("telegram_token"),
			DiscordToken:  v.GetString("discord_token"),
		},
		Web: WebConfig{
			Addr: v.GetString("web_addr"),
		},
		Heartbeat: HeartbeatConfig{
			Schedule:     v.GetString("heartbeat_schedule"),
			AlertChannel: v.GetString("alert_channel"),
		},
		Budget: BudgetConfig{
			DailyLimit: v.GetInt("daily_token_limit"),
			WarnAt:     v.GetFloat64("budget_warn_at"),
			Timezone:   v.GetString("tz"),
		},
		RulesFile: v.GetString("rules_file"),
		Debug:     v.GetBool("faqdesk_debug"),
	}, nil
}

func loadRunConfig(v *viper.Viper) (RunConfig, error) {
	// run_timeout has no viper default so IsSet only sees the environment
	// and flags that were given explicitly.
	timeoutSet := v.IsSet("run_timeout")
	timeout := DefaultRunTimeout
	if timeoutSet {
		d, err := duration(v, "run_timeout")
		if err != nil {
			return RunConfig{}, err
		}
		timeout = d
	}

	interval, err := duration(v, "run_poll_interval")
	if err != nil {
		return RunConfig{}, err
	}

	backoff, err := duration(v, "run_create_backoff")
	if err != nil {
		return RunConfig{}, err
	}

	attempts := v.GetInt("run_create_attempts")
	if attempts <= 0 {
		return RunConfig{}, fmt.Errorf("RUN_CREATE_ATTEMPTS must be positive, got %d", attempts)
	}

	if timeout <= 0 || interval <= 0 {
		return RunConfig{}, fmt.Errorf("RUN_TIMEOUT and RUN_POLL_INTERVAL must be positive")
	}

	return RunConfig{
		Timeout:        timeout,
		PollInterval:   interval,
		CreateAttempts: attempts,
		CreateBackoff:  backoff,
		TimeoutSet:     timeoutSet,
	}, nil
}

// duration accepts Go duration strings ("45s") and bare numbers, which are
// read as seconds.
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}

	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", strings.ToUpper(key), raw)
	}

	return d, nil
}
