package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/clinic")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "America/Santiago", cfg.Timezone)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.True(t, cfg.SMTP.SSL)
	assert.Equal(t, 15*time.Second, cfg.Notify.SendTimeout)
	assert.Equal(t, uint64(3), cfg.Notify.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Notify.SweepInterval)
	assert.Equal(t, 2*time.Hour, cfg.Notify.DeliveryLease)
	assert.Equal(t, "booking.exchange", cfg.RabbitMQ.Exchange)
	assert.Equal(t, "nuestro sitio", cfg.Mail.SiteName)
	assert.False(t, cfg.MailEnabled())
	assert.False(t, cfg.AMQPEnabled())
	assert.False(t, cfg.TelegramEnabled())
	assert.False(t, cfg.TracingEnabled())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/clinic")
	t.Setenv("ENV", "production")
	t.Setenv("SMTP_HOST", "smtp.gmail.com")
	t.Setenv("MAIL_FROM", "reservas@clinica.cl")
	t.Setenv("MAIL_TO", "operador@clinica.cl")
	t.Setenv("NOTIFY_SEND_TIMEOUT", "3s")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001")
	t.Setenv("BOOKING_RATE_LIMIT_RPS", "1.5")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.MailEnabled())
	assert.Equal(t, 3*time.Second, cfg.Notify.SendTimeout)
	assert.Equal(t, int64(-1001), cfg.Telegram.ChatID)
	assert.InDelta(t, 1.5, cfg.RateLimit.RPS, 0.0001)
}

func TestValidate(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
	assert.Contains(t, err.Error(), "MAIL_FROM")
	assert.Contains(t, err.Error(), "TELEGRAM_CHAT_ID")
}

func TestValidateTimezone(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/clinic")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_TIMEZONE")
}

func TestValidateDeliveryLease(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/clinic")
	// 51 jobs ahead, each 2 emails * (4 tries * 15s + 3.5s backoff)
	t.Setenv("NOTIFY_DELIVERY_LEASE", "1h")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTIFY_DELIVERY_LEASE must exceed 1h47m57s")

	t.Setenv("NOTIFY_QUEUE_SIZE", "10")
	_, err = Parse()
	assert.NoError(t, err)
}
