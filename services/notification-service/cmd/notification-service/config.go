package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/loannotify/libs/config"
	otelx "github.com/md-rashed-zaman/loannotify/libs/otel"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/events"
	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/handlers"
)

type serviceConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"notification-service"`
	Port        string `env:"PORT" envDefault:"8085"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Bus string `env:"BUS" envDefault:"kafka"` // kafka | nats

	KafkaBrokers               string `env:"KAFKA_BROKERS" envDefault:"kafka:9092"`
	KafkaGroupID               string `env:"KAFKA_GROUP_ID" envDefault:"notification-service"`
	KafkaTopicSubmitted        string `env:"KAFKA_TOPIC_SUBMITTED" envDefault:"loan.application.submitted.v1"`
	KafkaTopicDocumentFailed   string `env:"KAFKA_TOPIC_DOCUMENT_FAILED" envDefault:"loan.document.failed.v1"`
	KafkaTopicDocumentVerified string `env:"KAFKA_TOPIC_DOCUMENT_VERIFIED" envDefault:"loan.document.verified.v1"`

	NATSURL                     string `env:"NATS_URL" envDefault:"nats://nats:4222"`
	NATSQueue                   string `env:"NATS_QUEUE" envDefault:"notification-service"`
	NATSSubjectSubmitted        string `env:"NATS_SUBJECT_SUBMITTED" envDefault:"loan.application.submitted"`
	NATSSubjectDocumentFailed   string `env:"NATS_SUBJECT_DOCUMENT_FAILED" envDefault:"loan.document.failed.>"`
	NATSSubjectDocumentVerified string `env:"NATS_SUBJECT_DOCUMENT_VERIFIED" envDefault:"loan.document.verified.>"`

	MailProvider   string        `env:"MAIL_PROVIDER" envDefault:"smtp"` // smtp | log
	SMTPHost       string        `env:"SMTP_HOST" envDefault:"mailpit"`
	SMTPPort       int           `env:"SMTP_PORT" envDefault:"1025"`
	SMTPUsername   string        `env:"SMTP_USERNAME"`
	SMTPPassword   string        `env:"SMTP_PASSWORD"`
	SMTPEncryption string        `env:"SMTP_ENCRYPTION" envDefault:"none"`
	SMTPTimeout    time.Duration `env:"SMTP_TIMEOUT" envDefault:"15s"`

	// MailboxAddress defaults to SMTP_USERNAME, which is the service's own
	// mailbox on most relays.
	MailboxAddress string `env:"MAILBOX_ADDRESS"`
	CompanyName    string `env:"COMPANY_NAME" envDefault:"Loan Company"`
	CurrencySymbol string `env:"CURRENCY_SYMBOL" envDefault:"$"`

	OTel otelx.Config
}

func loadConfig(envFiles ...string) (serviceConfig, error) {
	var cfg serviceConfig
	if err := config.Load(&cfg, envFiles...); err != nil {
		return serviceConfig{}, err
	}
	if err := cfg.validate(); err != nil {
		return serviceConfig{}, err
	}
	cfg.OTel.ServiceName = cfg.ServiceName
	return cfg, nil
}

func (c *serviceConfig) validate() error {
	if err := config.ValidatePort("PORT", c.Port); err != nil {
		return err
	}
	c.Bus = strings.ToLower(strings.TrimSpace(c.Bus))
	if c.Bus != "kafka" && c.Bus != "nats" {
		return fmt.Errorf("BUS must be kafka or nats (got %q)", c.Bus)
	}
	c.MailProvider = strings.ToLower(strings.TrimSpace(c.MailProvider))
	if c.MailProvider != "smtp" && c.MailProvider != "log" {
		return fmt.Errorf("MAIL_PROVIDER must be smtp or log (got %q)", c.MailProvider)
	}
	if c.MailboxAddress == "" {
		c.MailboxAddress = c.SMTPUsername
	}
	if c.MailboxAddress == "" {
		return errors.New("MAILBOX_ADDRESS or SMTP_USERNAME is required")
	}
	return nil
}

func (c serviceConfig) handlers() handlers.Config {
	return handlers.Config{
		Mailbox:        c.MailboxAddress,
		CompanyName:    c.CompanyName,
		CurrencySymbol: c.CurrencySymbol,
	}
}

func (c serviceConfig) smtp() email.SMTPConfig {
	return email.SMTPConfig{
		Host:       c.SMTPHost,
		Port:       c.SMTPPort,
		Username:   c.SMTPUsername,
		Password:   c.SMTPPassword,
		Encryption: c.SMTPEncryption,
		Timeout:    c.SMTPTimeout,
	}
}

func (c serviceConfig) kafkaTopics() map[events.Kind]string {
	return map[events.Kind]string{
		events.KindLoanSubmitted:    c.KafkaTopicSubmitted,
		events.KindDocumentFailed:   c.KafkaTopicDocumentFailed,
		events.KindDocumentVerified: c.KafkaTopicDocumentVerified,
	}
}

func (c serviceConfig) natsSubjects() map[events.Kind]string {
	return map[events.Kind]string{
		events.KindLoanSubmitted:    c.NATSSubjectSubmitted,
		events.KindDocumentFailed:   c.NATSSubjectDocumentFailed,
		events.KindDocumentVerified: c.NATSSubjectDocumentVerified,
	}
}
