package main

import (
	"io"
	"os"
	"time"

	"github.com/bowerhall/faqdesk/internal/config"
	"github.com/bowerhall/faqdesk/internal/logger"
	"github.com/bowerhall/faqdesk/internal/repl"
	"github.com/bowerhall/faqdesk/internal/runner"
	"github.com/spf13/cobra"
)

const chatTimeout = 60 * time.Second

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, []config.Requirement{config.NeedAssistant}, nil)
			if err != nil {
				return err
			}

			if !cfg.Debug {
				logger.SetOutput(io.Discard, false)
			}

			app, err := newApp(cfg, chatOptions(cfg), nil)
			if err != nil {
				return err
			}

			return repl.New(app.agent, os.Stdin, os.Stdout).Run(cmd.Context())
		},
	}
}

// chatOptions gives the terminal a longer run timeout unless one was
// configured explicitly.
func chatOptions(cfg *config.Config) runner.Options {
	opts := runner.Options{OnPoll: repl.Progress(os.Stdout)}
	if !cfg.Run.TimeoutSet {
		opts.Timeout = chatTimeout
	}
	return opts
}
