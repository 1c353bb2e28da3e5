/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/eventcrm/apiserver/config"
	"github.com/eventcrm/apiserver/internal/mailer"
	"github.com/eventcrm/apiserver/internal/mq"
	"github.com/eventcrm/apiserver/internal/notify"
	"github.com/spf13/cobra"
)

// notifierCmd runs the email worker that drains the notification channel.
var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Runs the notification email worker",
	Long: `Runs the worker that consumes queued notification jobs and delivers
them over SMTP. Only meaningful when NOTIFIER_MODE is rabbitmq or pubsub.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		var backend mq.Backend
		switch cfg.Notifier.Mode {
		case "rabbitmq":
			client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
			if err != nil {
				return err
			}
			backend = client
		case "pubsub":
			client, err := mq.NewPubSubClient(cmd.Context(), cfg.PubSub)
			if err != nil {
				return err
			}
			backend = client
		default:
			return fmt.Errorf("notifier requires NOTIFIER_MODE rabbitmq or pubsub, got %q", cfg.Notifier.Mode)
		}

		queue := mq.New(backend)
		defer queue.Close()

		sender, err := mailer.NewSMTPSender(cfg.SMTP)
		if err != nil {
			return err
		}

		worker := notify.NewWorker(queue, cfg.Notifier.Channel, sender, cfg.FrontendURL, logger)
		if err := worker.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifierCmd)
}
