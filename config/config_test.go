package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 3, cfg.Booking.Days)
	assert.Equal(t, 4, cfg.Booking.SlotsPerDay)
	assert.Equal(t, 9, cfg.Booking.StartHour)
	assert.Equal(t, 60, cfg.Booking.IntervalMinutes)
	assert.Zero(t, cfg.Booking.DedupeWindow)
	assert.Equal(t, "greeting_message", cfg.Templates.Greeting)
	assert.Equal(t, "appointment_scheduled", cfg.Templates.Scheduled)
	assert.Equal(t, DispatcherCloudAPI, cfg.WhatsApp.Driver)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
	assert.Equal(t, "https://api.twilio.com", cfg.Twilio.APIBaseURL)
	assert.Empty(t, cfg.Twilio.ContentSIDs)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("GREETING_TEMPLATE_NAME", "hello_v2")
	t.Setenv("BOOKING_DEDUPE_WINDOW", "2m")
	t.Setenv("JWT_ACCESS_EXPIRY", "not-a-duration")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "hello_v2", cfg.Templates.Greeting)
	assert.Equal(t, 2*time.Minute, cfg.Booking.DedupeWindow)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
}

func TestLoadConfigTwilioTokenSelectsTwilioDriver(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_CONTENT_SIDS", "greeting_message=HX111, appointment_scheduled=HX222,broken,=HX333")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DispatcherTwilio, cfg.WhatsApp.Driver)
	assert.Equal(t, "AC123", cfg.Twilio.AccountSID)
	assert.Equal(t, map[string]string{
		"greeting_message":      "HX111",
		"appointment_scheduled": "HX222",
	}, cfg.Twilio.ContentSIDs)
}

func TestLoadConfigExplicitDriverWinsOverTwilioToken(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
	t.Setenv("WHATSAPP_DRIVER", DispatcherQueue)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DispatcherQueue, cfg.WhatsApp.Driver)
}
