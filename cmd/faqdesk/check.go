package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bowerhall/faqdesk/internal/config"
	"github.com/spf13/cobra"
)

const checkTimeout = 30 * time.Second

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the API key and assistant id",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, []config.Requirement{config.NeedAssistant}, nil)
			if err != nil {
				return err
			}

			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
			defer cancel()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🔄 Checking assistant %s (%s)...\n", cfg.Assistant.ID, cfg.Assistant.Provider)

			info, err := client.GetAssistant(ctx, cfg.Assistant.ID)
			if err != nil {
				fmt.Fprintf(out, "❌ %v\n", err)
				return fmt.Errorf("assistant check failed: %w", err)
			}

			fmt.Fprintf(out, "✅ Assistant '%s' connected\n", info.Name)
			if info.Description != "" {
				fmt.Fprintf(out, "📝 %s\n", info.Description)
			}
			fmt.Fprintf(out, "🧠 Model: %s\n", info.Model)

			return nil
		},
	}
}
