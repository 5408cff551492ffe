package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/events"
	"github.com/openshelf/openshelf/internal/services"
)

// The notifier consumes payment events and sends receipt emails. It
// runs as a separate process so SES latency and retries never touch
// the API request path.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if cfg.AMQP.URL == "" {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.URLBase,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	consumer, err := events.NewConsumer(cfg.AMQP, logger)
	if err != nil {
		logger.Error("failed to connect to amqp", slog.Any("error", err))
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	logger.Info("notifier started", slog.String("queue", cfg.AMQP.Queue))

	err = consumer.Consume(ctx, func(ctx context.Context, event events.PaymentEvent) error {
		switch event.Type {
		case events.RoutingKeyPaymentConfirmed:
			return emailService.SendPaymentReceipt(
				ctx,
				event.CustomerEmail,
				event.PlanName,
				formatAmount(event.AmountCents, event.Currency),
				event.TransactionID,
			)
		default:
			// Other lifecycle events carry no email side effect yet.
			return nil
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("notifier stopped gracefully")
}

func formatAmount(cents int, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
