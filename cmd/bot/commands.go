package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xaenox/commentbot/internal/bot"
	"go.uber.org/zap"
)

func setWebhookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-webhook",
		Short: "Register the admin webhook URL with Telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.Telegram.Token == "" {
				return errors.New("TELEGRAM_BOT_TOKEN is not set")
			}
			if cfg.Server.PublicURL == "" {
				return errors.New("PUBLIC_URL is not set")
			}

			api, err := bot.NewAPI(cfg.Telegram.Token)
			if err != nil {
				return err
			}
			url := adminWebhookURL(cfg)
			if err := bot.SetWebhook(api, url); err != nil {
				return err
			}
			logger.Info("Telegram webhook registered", zap.String("url", url))
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func triggersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triggers",
		Short: "Inspect stored triggers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every trigger ordered by phrase",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := openStorage(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			triggers, err := store.ListTriggers(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PHRASE\tID")
			for _, t := range triggers {
				fmt.Fprintf(w, "%s\t%s\n", t.Phrase, t.ID)
			}
			return w.Flush()
		},
	})
	return cmd
}
