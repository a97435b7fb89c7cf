// followe-notifier consumes alert messages from the broker and prints
// them as desktop-style notifications on stdout. It is the optional
// out-of-process delivery channel; the main binary publishes to the
// same queue when AMQP is configured.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"followe/internal/amqp"
	"followe/internal/config"
	applog "followe/internal/log"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentAMQP)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to connect to AMQP", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("notifier started", "queue", cfg.AMQPQueue)

	err = client.ConsumeAlerts(ctx, func(msg *amqp.AlertMessage) error {
		marker := ""
		if msg.Payload.Urgent {
			marker = " [!]"
		}
		_, err := fmt.Printf("%s%s\n  %s\n", msg.Payload.Title, marker, msg.Payload.Body)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("notifier stopped gracefully")
}
