package main

import (
	"github.com/bowerhall/faqdesk/internal/config"
	"github.com/bowerhall/faqdesk/internal/runner"
	"github.com/bowerhall/faqdesk/internal/web"
	"github.com/spf13/cobra"
)

func newWebCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the browser chat page",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, []config.Requirement{config.NeedAssistant}, map[string]string{
				"web_addr": "addr",
			})
			if err != nil {
				return err
			}

			app, err := newApp(cfg, runner.Options{}, nil)
			if err != nil {
				return err
			}

			if cfg.RulesFile != "" {
				rules, err := loadRules(cfg)
				if err != nil {
					return err
				}
				app.agent.SetRules(rules)
			}

			return web.New(cfg.Web.Addr, app.agent).Start(cmd.Context())
		},
	}

	cmd.Flags().String("addr", "", "listen address (WEB_ADDR)")

	return cmd
}
