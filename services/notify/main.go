package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/boxbook/pkg/config"
	"github.com/diagnosis/boxbook/pkg/events"
	"github.com/diagnosis/boxbook/pkg/logger"
	mw "github.com/diagnosis/boxbook/pkg/middleware"
	"github.com/diagnosis/boxbook/pkg/retry"
	"github.com/diagnosis/boxbook/services/notify/internal/consumer"
	"github.com/diagnosis/boxbook/services/notify/internal/mailer"
	"github.com/diagnosis/boxbook/services/notify/internal/templates"
)

func main() {
	cfg := config.Load()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL, "boxbook-notify")
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	var m mailer.Mailer
	if cfg.Email.DevMode {
		logger.Info("Email dev mode enabled, messages are printed instead of sent")
		m = mailer.NewDevMailer()
	} else {
		m = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	c := consumer.New(
		templates.NewRenderer(cfg.Email.FromName, cfg.Email.ManageURL),
		m,
		retry.Policy{Attempts: cfg.Email.SendAttempts, Delay: cfg.Email.SendDelay},
	)
	if err := eventBus.QueueSubscribe(events.NotifySend, "notify", c.HandleMessage); err != nil {
		logger.Error("Failed to subscribe", "error", err, "subject", events.NotifySend)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.Health(map[string]mw.HealthCheck{"nats": eventBus.Ping}))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.NotifyPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down notify service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Notify service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting notify service", "port", cfg.Server.NotifyPort, "subject", events.NotifySend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}
