package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/loannotify/libs/httpx"
	"github.com/md-rashed-zaman/loannotify/libs/kafkax"
	"github.com/md-rashed-zaman/loannotify/libs/natsx"
	otelx "github.com/md-rashed-zaman/loannotify/libs/otel"
	"github.com/md-rashed-zaman/loannotify/libs/runtime"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/consumer"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/handlers"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/render"
)

func main() {
	ctx, stop := runtime.SignalContext(context.Background())
	defer stop()

	if err := run(ctx); err != nil {
		runtime.NewLogger("notification-service", "error").Error("notification service failed", "err", err)
		stop()
		os.Exit(1)
	}
}

// run wires the service and blocks until ctx is cancelled. Setup failures are
// returned so that every deferred close runs before the process exits.
func run(ctx context.Context, envFiles ...string) error {
	cfg, err := loadConfig(envFiles...)
	if err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, cfg.OTel)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var checks []runtime.ReadyCheck
	var sender email.Sender
	switch cfg.MailProvider {
	case "log":
		sender = email.NewLogSender(logger)
	default:
		smtpSender, err := email.NewSMTPSender(cfg.smtp())
		if err != nil {
			return fmt.Errorf("smtp sender setup: %w", err)
		}
		sender = smtpSender
		checks = append(checks, runtime.ReadyCheck{Name: "smtp", Check: smtpSender.Ping})
	}

	renderer, err := render.New()
	if err != nil {
		return fmt.Errorf("load email templates: %w", err)
	}
	notifier, err := handlers.New(cfg.handlers(), renderer, sender, logger,
		handlers.WithMetrics(handlers.NewMetrics(reg)),
	)
	if err != nil {
		return fmt.Errorf("handler setup: %w", err)
	}
	router := consumer.NewRouter(notifier, logger)

	consumerDone := make(chan struct{})
	switch cfg.Bus {
	case "nats":
		nc, err := natsx.Connect(cfg.NATSURL, cfg.ServiceName, logger)
		if err != nil {
			return err
		}
		defer nc.Close()
		natsConsumer, err := consumer.NewNATS(logger, router, nc, consumer.NATSConfig{
			Queue:    cfg.NATSQueue,
			Subjects: cfg.natsSubjects(),
		})
		if err != nil {
			return fmt.Errorf("nats consumer setup: %w", err)
		}
		checks = append(checks, runtime.ReadyCheck{Name: "nats", Check: natsx.ReadyCheck(nc)})
		go func() {
			defer close(consumerDone)
			if err := natsConsumer.Run(ctx); err != nil {
				logger.Error("nats consumer stopped", "err", err)
				stop()
			}
		}()
	default:
		kafkaConsumer, err := consumer.NewKafka(logger, router, consumer.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topics:  cfg.kafkaTopics(),
		})
		if err != nil {
			return fmt.Errorf("kafka consumer setup: %w", err)
		}
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
		go func() {
			defer close(consumerDone)
			kafkaConsumer.Run(ctx)
		}()
	}

	mux := runtime.NewOpsMux(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), checks...)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithTimeout(5*time.Second),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "bus", cfg.Bus, "mail_provider", sender.ProviderID())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Error("consumer did not stop in time")
	}
	logger.Info("notification service stopped")
	return nil
}
