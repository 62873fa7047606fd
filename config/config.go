package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Admin     AdminConfig
	WhatsApp  WhatsAppConfig
	Twilio    TwilioConfig
	RabbitMQ  RabbitMQConfig
	Templates TemplateConfig
	Booking   BookingConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Port       string
	Env        string
	LogLevel   string
	CORSOrigin string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// AdminConfig holds the single operator account for the admin API
type AdminConfig struct {
	Username     string
	PasswordHash string
}

// WhatsAppConfig selects and configures the outbound dispatcher
type WhatsAppConfig struct {
	Driver        string
	APIBaseURL    string
	PhoneNumberID string
	AccessToken   string
	TemplateLang  string
	Timeout       time.Duration
}

// TwilioConfig verifies inbound webhook signatures and drives the twilio dispatcher.
// ContentSIDs maps template names to Content API SIDs.
type TwilioConfig struct {
	AuthToken      string
	WebhookURL     string
	AccountSID     string
	FromNumber     string
	APIBaseURL     string
	ContentSIDs    map[string]string
	ListContentSID string
	Timeout        time.Duration
}

type RabbitMQConfig struct {
	URL   string
	Queue string
}

// TemplateConfig names the provider-approved message templates
type TemplateConfig struct {
	Greeting    string
	Scheduled   string
	Rescheduled string
	Cancelled   string
}

type BookingConfig struct {
	Days            int
	SlotsPerDay     int
	StartHour       int
	IntervalMinutes int
	Timezone        string
	DedupeWindow    time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

const (
	DispatcherCloudAPI = "cloudapi"
	DispatcherQueue    = "queue"
	DispatcherTwilio   = "twilio"
)

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_LOG_LEVEL", "info")
	viper.SetDefault("APP_CORS_ORIGIN", "*")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "UTC")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("ADMIN_USERNAME", "admin")

	viper.SetDefault("WHATSAPP_API_BASE_URL", "https://graph.facebook.com/v20.0")
	viper.SetDefault("TEMPLATE_LANG", "en")

	viper.SetDefault("TWILIO_API_BASE_URL", "https://api.twilio.com")
	viper.SetDefault("TWILIO_WHATSAPP_NUMBER", "+14155238886")

	viper.SetDefault("RABBITMQ_QUEUE", "whatsapp.outbound")

	viper.SetDefault("GREETING_TEMPLATE_NAME", "greeting_message")
	viper.SetDefault("APPT_SCHEDULED_TEMPLATE", "appointment_scheduled")
	viper.SetDefault("APPT_RESCHEDULED_TEMPLATE", "appointment_rescheduled")
	viper.SetDefault("APPT_CANCELLED_TEMPLATE", "appointment_cancelled")

	viper.SetDefault("BOOKING_DAYS", 3)
	viper.SetDefault("BOOKING_SLOTS_PER_DAY", 4)
	viper.SetDefault("BOOKING_START_HOUR", 9)
	viper.SetDefault("BOOKING_INTERVAL_MINUTES", 60)
	viper.SetDefault("BOOKING_TIMEZONE", "UTC")

	viper.SetDefault("RATE_LIMIT_REQUESTS", 120)
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	config := &Config{
		App: AppConfig{
			Port:       viper.GetString("APP_PORT"),
			Env:        viper.GetString("APP_ENV"),
			LogLevel:   viper.GetString("APP_LOG_LEVEL"),
			CORSOrigin: viper.GetString("APP_CORS_ORIGIN"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			TimeZone: viper.GetString("DB_TIMEZONE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			AccessExpiry: parseDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		},
		Admin: AdminConfig{
			Username:     viper.GetString("ADMIN_USERNAME"),
			PasswordHash: viper.GetString("ADMIN_PASSWORD_HASH"),
		},
		WhatsApp: WhatsAppConfig{
			Driver:        dispatcherDriver(),
			APIBaseURL:    viper.GetString("WHATSAPP_API_BASE_URL"),
			PhoneNumberID: viper.GetString("WHATSAPP_PHONE_NUMBER_ID"),
			AccessToken:   viper.GetString("WHATSAPP_ACCESS_TOKEN"),
			TemplateLang:  viper.GetString("TEMPLATE_LANG"),
			Timeout:       parseDuration("WHATSAPP_TIMEOUT", 10*time.Second),
		},
		Twilio: TwilioConfig{
			AuthToken:      viper.GetString("TWILIO_AUTH_TOKEN"),
			WebhookURL:     viper.GetString("TWILIO_WEBHOOK_URL"),
			AccountSID:     viper.GetString("TWILIO_ACCOUNT_SID"),
			FromNumber:     viper.GetString("TWILIO_WHATSAPP_NUMBER"),
			APIBaseURL:     viper.GetString("TWILIO_API_BASE_URL"),
			ContentSIDs:    parseMapping(viper.GetString("TWILIO_CONTENT_SIDS")),
			ListContentSID: viper.GetString("TWILIO_LIST_CONTENT_SID"),
			Timeout:        parseDuration("TWILIO_TIMEOUT", 10*time.Second),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   viper.GetString("RABBITMQ_URL"),
			Queue: viper.GetString("RABBITMQ_QUEUE"),
		},
		Templates: TemplateConfig{
			Greeting:    viper.GetString("GREETING_TEMPLATE_NAME"),
			Scheduled:   viper.GetString("APPT_SCHEDULED_TEMPLATE"),
			Rescheduled: viper.GetString("APPT_RESCHEDULED_TEMPLATE"),
			Cancelled:   viper.GetString("APPT_CANCELLED_TEMPLATE"),
		},
		Booking: BookingConfig{
			Days:            viper.GetInt("BOOKING_DAYS"),
			SlotsPerDay:     viper.GetInt("BOOKING_SLOTS_PER_DAY"),
			StartHour:       viper.GetInt("BOOKING_START_HOUR"),
			IntervalMinutes: viper.GetInt("BOOKING_INTERVAL_MINUTES"),
			Timezone:        viper.GetString("BOOKING_TIMEZONE"),
			DedupeWindow:    parseDuration("BOOKING_DEDUPE_WINDOW", 0),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   parseDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	return config, nil
}

// dispatcherDriver defaults to twilio once a Twilio auth token is present
func dispatcherDriver() string {
	if driver := strings.TrimSpace(viper.GetString("WHATSAPP_DRIVER")); driver != "" {
		return driver
	}
	if viper.GetString("TWILIO_AUTH_TOKEN") != "" {
		return DispatcherTwilio
	}
	return DispatcherCloudAPI
}

// parseMapping reads "name=value,name2=value2"; malformed pairs are skipped
func parseMapping(raw string) map[string]string {
	mapping := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			continue
		}
		mapping[key] = value
	}
	return mapping
}

// parseDuration falls back when the value is empty or malformed
func parseDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
