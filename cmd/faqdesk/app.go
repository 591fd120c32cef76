package main

import (
	"fmt"
	"time"

	"github.com/bowerhall/faqdesk/internal/agent"
	"github.com/bowerhall/faqdesk/internal/alerts"
	"github.com/bowerhall/faqdesk/internal/assistant"
	"github.com/bowerhall/faqdesk/internal/budget"
	"github.com/bowerhall/faqdesk/internal/config"
	"github.com/bowerhall/faqdesk/internal/logger"
	"github.com/bowerhall/faqdesk/internal/relevance"
	"github.com/bowerhall/faqdesk/internal/runner"
	"github.com/bowerhall/faqdesk/internal/session"
)

const alertCooldown = time.Hour

// app holds the pieces every front-end shares.
type app struct {
	cfg    *config.Config
	client   assistant.Client
	executor *runner.Executor
	agent    *agent.Agent
	alerts   *alerts.Alerter
}

func newClient(cfg *config.Config) (assistant.Client, error) {
	return assistant.New(assistant.Config{
		Provider:        cfg.Assistant.Provider,
		APIKey:          cfg.Assistant.APIKey,
		BaseURL:         cfg.Assistant.BaseURL,
		AzureEndpoint:   cfg.Assistant.AzureEndpoint,
		AzureAPIVersion: cfg.Assistant.AzureAPIVersion,
		RequestTimeout:  cfg.Assistant.RequestTimeout,
	})
}

// newApp wires the assistant client, session store, executor and agent.
// notify receives operator alerts and may be nil.
func newApp(cfg *config.Config, opts runner.Options, notify alerts.NotifyFunc) (*app, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	opts.AssistantID = cfg.Assistant.ID
	if opts.Timeout == 0 {
		opts.Timeout = cfg.Run.Timeout
	}
	opts.PollInterval = cfg.Run.PollInterval
	opts.CreateAttempts = cfg.Run.CreateAttempts
	if cfg.Run.CreateBackoff == 0 {
		opts.CreateBackoff = -1
	} else {
		opts.CreateBackoff = cfg.Run.CreateBackoff
	}

	executor := runner.New(client, opts)
	a := agent.New(client, session.NewStore(client), executor)

	alerter := alerts.New(notify, alertCooldown)
	a.SetAlerter(alerter)

	if cfg.Budget.DailyLimit > 0 {
		a.SetBudget(newTracker(cfg, alerter))
	}

	logger.Info("assistant configured",
		"provider", cfg.Assistant.Provider,
		"assistant", cfg.Assistant.ID,
		"timeout", executor.Options().Timeout,
		"poll", executor.Options().PollInterval,
	)

	return &app{cfg: cfg, client: client, executor: executor, agent: a, alerts: alerter}, nil
}

func newTracker(cfg *config.Config, alerter *alerts.Alerter) *budget.Tracker {
	tz, err := time.LoadLocation(cfg.Budget.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, using UTC", "tz", cfg.Budget.Timezone, "error", err)
		tz = time.UTC
	}

	tracker := budget.NewTracker(
		budget.Config{
			DailyLimit: cfg.Budget.DailyLimit,
			WarnAt:     cfg.Budget.WarnAt,
			Timezone:   tz,
		},

		func(used, limit int) {
			msg := fmt.Sprintf("Budget warning: %d/%d tokens used (%.0f%%)", used, limit, float64(used)/float64(limit)*100)
			alerter.Warn("budget", msg, nil)
		},

		func(used, limit int) {
			msg := fmt.Sprintf("Budget exceeded: %d/%d tokens. Questions are refused until tomorrow.", used, limit)
			alerter.Critical("budget", msg, nil)
		},
	)

	logger.Info("budget tracking enabled", "limit", cfg.Budget.DailyLimit, "warnAt", cfg.Budget.WarnAt)
	return tracker
}

// loadRules returns the relevance rules from RULES_FILE, or the built-in set.
func loadRules(cfg *config.Config) (*relevance.Rules, error) {
	if cfg.RulesFile == "" {
		return relevance.Default(), nil
	}

	rules, err := relevance.Load(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	logger.Info("relevance rules loaded", "path", cfg.RulesFile)
	return rules, nil
}
