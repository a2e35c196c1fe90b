package config

import (
	"errors"
	"fmt"
	"log"
	"time"
	_ "time/tzdata" // clinic time zone on hosts without zoneinfo

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN       string `env:"DB_DSN"`
	Environment string `env:"ENV" envDefault:"development"`
	Timezone    string `env:"APP_TIMEZONE" envDefault:"America/Santiago"`

	HTTP struct {
		Port            string        `env:"HTTP_PORT" envDefault:"8080"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	SMTP struct {
		Host     string        `env:"SMTP_HOST"`
		Port     int           `env:"SMTP_PORT" envDefault:"465"`
		Username string        `env:"SMTP_USER"`
		Password string        `env:"SMTP_PASS"`
		SSL      bool          `env:"SMTP_SSL" envDefault:"true"`
		Timeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"15s"`
	}

	Mail struct {
		From           string `env:"MAIL_FROM"`
		To             string `env:"MAIL_TO"`
		SiteName       string `env:"SITE_NAME" envDefault:"nuestro sitio"`
		CalendarDomain string `env:"CALENDAR_DOMAIN" envDefault:"clinica.local"`
	}

	Notify struct {
		SendTimeout   time.Duration `env:"NOTIFY_SEND_TIMEOUT" envDefault:"15s"`
		MaxRetries    uint64        `env:"NOTIFY_MAX_RETRIES" envDefault:"3"`
		SweepInterval time.Duration `env:"NOTIFY_SWEEP_INTERVAL" envDefault:"5m"`
		DeliveryLease time.Duration `env:"NOTIFY_DELIVERY_LEASE" envDefault:"2h"`
		MaxAttempts   int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"5"`
		QueueSize     int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"100"`
		Workers       int           `env:"NOTIFY_WORKERS" envDefault:"2"`
	}

	RabbitMQ struct {
		URL      string `env:"RABBITMQ_URL"`
		Exchange string `env:"RABBITMQ_EXCHANGE" envDefault:"booking.exchange"`
		Queue    string `env:"RABBITMQ_QUEUE" envDefault:"booking.notifications"`
	}

	Telegram struct {
		Token  string `env:"TELEGRAM_TOKEN"`
		ChatID int64  `env:"TELEGRAM_CHAT_ID"`
	}

	Admin struct {
		JWTSecret string `env:"ADMIN_JWT_SECRET"`
	}

	RateLimit struct {
		RPS   float64 `env:"BOOKING_RATE_LIMIT_RPS" envDefault:"0.2"`
		Burst int     `env:"BOOKING_RATE_LIMIT_BURST" envDefault:"5"`
	}

	OTel struct {
		Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
		ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"clinic-booking"`
	}

	Cache struct {
		TherapistSize int `env:"CACHE_THERAPISTS_SIZE" envDefault:"128"`
	}
}

func Load() (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return Parse()
}

// Parse reads the configuration from the process environment.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN is required but not set"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE: %w", err))
	}
	if c.MailEnabled() && (c.Mail.From == "" || c.Mail.To == "") {
		errs = append(errs, errors.New("MAIL_FROM and MAIL_TO are required when SMTP_HOST is set"))
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set"))
	}
	if c.Notify.Workers <= 0 {
		errs = append(errs, errors.New("NOTIFY_WORKERS must be positive"))
	}
	if c.Notify.SweepInterval <= 0 {
		errs = append(errs, errors.New("NOTIFY_SWEEP_INTERVAL must be positive"))
	}
	// a job may wait behind QUEUE_SIZE others, each spending up to two
	// emails times (retries + 1) send timeouts plus the backoff sleeps
	if floor := c.worstCaseDelivery(); c.Notify.DeliveryLease <= floor {
		errs = append(errs, fmt.Errorf("NOTIFY_DELIVERY_LEASE must exceed %s", floor))
	}

	return errors.Join(errs...)
}

const notifyBaseBackoff = 500 * time.Millisecond

func (c *Config) worstCaseDelivery() time.Duration {
	workers := c.Notify.Workers
	if workers <= 0 {
		workers = 1
	}
	retries := c.Notify.MaxRetries
	if retries > 20 {
		retries = 20
	}
	// dispatcher backoff doubles from 500ms
	backoff := time.Duration(1<<retries-1) * notifyBaseBackoff
	perJob := 2 * (time.Duration(retries+1)*c.Notify.SendTimeout + backoff)
	ahead := c.Notify.QueueSize/workers + 1
	return time.Duration(ahead) * perJob
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// Location returns the clinic time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MailEnabled reports whether an SMTP relay is configured. Without one,
// messages are only logged.
func (c *Config) MailEnabled() bool {
	return c.SMTP.Host != ""
}

func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != ""
}

func (c *Config) AMQPEnabled() bool {
	return c.RabbitMQ.URL != ""
}

func (c *Config) TracingEnabled() bool {
	return c.OTel.Endpoint != ""
}
