package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bowerhall/faqdesk/internal/config"
	"github.com/bowerhall/faqdesk/internal/logger"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			fmt.Fprintln(os.Stderr, "❌ "+missing.Error())
			fmt.Fprint(os.Stderr, missing.Guidance())
			os.Exit(1)
		}
		logger.Fatal("faqdesk failed", "error", err)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "faqdesk",
		Short:         "Relay questions to a hosted assistant from the web, chat bots or a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("timeout", "", "run timeout, e.g. 45s (RUN_TIMEOUT)")
	cmd.PersistentFlags().String("rules", "", "YAML relevance rules file (RULES_FILE)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging (FAQDESK_DEBUG)")

	cmd.AddCommand(
		newWebCmd(),
		newBotCmd(),
		newChatCmd(),
		newCheckCmd(),
	)

	return cmd
}

// loadConfig reads .env, the environment and the command's flags.
func loadConfig(cmd *cobra.Command, needs []config.Requirement, flags map[string]string) (*config.Config, error) {
	opts := []config.Option{
		config.WithDotenv(),
		config.WithFlag("run_timeout", cmd.Flags().Lookup("timeout")),
		config.WithFlag("rules_file", cmd.Flags().Lookup("rules")),
		config.WithFlag("faqdesk_debug", cmd.Flags().Lookup("debug")),
	}
	for key, name := range flags {
		opts = append(opts, config.WithFlag(key, cmd.Flags().Lookup(name)))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}

	if cfg.Debug {
		logger.SetOutput(os.Stderr, true)
	}

	if err := cfg.Validate(needs...); err != nil {
		return nil, err
	}

	return cfg, nil
}
