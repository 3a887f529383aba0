// Command notifier drains the notification queue. Delivery channels such as
// push or email plug in behind deliver; today each event is logged.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/HammerMeetNail/cotravels/internal/config"
	"github.com/HammerMeetNail/cotravels/internal/events"
	"github.com/HammerMeetNail/cotravels/internal/logging"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Notifier error", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New().WithField("component", "notifier")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
	}
	if !cfg.Queue.Enabled() {
		return errors.New("AMQP_URL must be set to run the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(cfg.Queue.URL, cfg.Queue.Queue, deliver(logger), logger)

	logger.Info("Consuming notifications", logging.Fields{"queue": cfg.Queue.Queue})
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Notifier stopped")
	return nil
}

func deliver(logger *logging.Logger) events.Handler {
	return func(ctx context.Context, ev events.NotificationEvent) error {
		logger.Info("Notification delivered", logging.Fields{
			"notification_id": ev.ID.String(),
			"user_id":         ev.UserID.String(),
			"type":            ev.Type,
			"content":         ev.Content,
		})
		return nil
	}
}
