package main

import (
	"context"
	"errors"
	"time"

	"github.com/bowerhall/faqdesk/internal/bot"
	"github.com/bowerhall/faqdesk/internal/config"
	"github.com/bowerhall/faqdesk/internal/heartbeat"
	"github.com/bowerhall/faqdesk/internal/logger"
	"github.com/bowerhall/faqdesk/internal/runner"
	"github.com/spf13/cobra"
)

func newBotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the chat bot (slack, telegram or discord)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, []config.Requirement{config.NeedAssistant, config.NeedBot}, map[string]string{
				"bot_provider": "provider",
			})
			if err != nil {
				return err
			}

			rules, err := loadRules(cfg)
			if err != nil {
				return err
			}

			// the bot is created after the agent, so alerts reach it through this variable
			var notifier bot.Bot
			notify := func(message string) {
				if notifier == nil || cfg.Heartbeat.AlertChannel == "" {
					return
				}
				if err := notifier.Send(cfg.Heartbeat.AlertChannel, message); err != nil {
					logger.Error("alert delivery failed", "channel", cfg.Heartbeat.AlertChannel, "error", err)
				}
			}

			app, err := newApp(cfg, runner.Options{WaitForActive: true}, notify)
			if err != nil {
				return err
			}
			app.agent.SetRules(rules)

			b, err := bot.New(botConfig(cfg), app.agent)
			if err != nil {
				return err
			}
			notifier = b

			if cfg.Heartbeat.Schedule != "" {
				tz, err := time.LoadLocation(cfg.Budget.Timezone)
				if err != nil {
					tz = time.UTC
				}

				hb, err := heartbeat.New(cfg.Heartbeat.Schedule, heartbeat.AssistantCheck(app.client, cfg.Assistant.ID), app.alerts, tz)
				if err != nil {
					return err
				}
				go hb.Run(cmd.Context())
			}

			logger.Info("faqdesk bot started", "provider", cfg.Bot.Provider, "alerts", cfg.Heartbeat.AlertChannel)

			err = b.Start(cmd.Context())
			logger.Info("shutting down")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().String("provider", "", "bot provider: slack, telegram or discord (BOT_PROVIDER)")

	return cmd
}

func botConfig(cfg *config.Config) bot.Config {
	switch cfg.Bot.Provider {
	case "telegram":
		return bot.Config{Provider: "telegram", Token: cfg.Bot.TelegramToken}
	case "discord":
		return bot.Config{Provider: "discord", Token: cfg.Bot.DiscordToken}
	default:
		return bot.Config{
			Provider: cfg.Bot.Provider,
			Token:    cfg.Bot.SlackBotToken,
			AppToken: cfg.Bot.SlackAppToken,
		}
	}
}
