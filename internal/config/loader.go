package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/salon-scheduler/internal/notify"
	"github.com/example/salon-scheduler/internal/scheduler"
)

// StoreKind selects the persistence backend.
type StoreKind string

const (
	StoreSQLite   StoreKind = "sqlite"
	StorePostgres StoreKind = "postgres"
	StoreMemory   StoreKind = "memory"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort int
	LogLevel string

	Store       StoreKind
	SQLiteDSN   string
	DatabaseURL string

	RedisAddr    string
	RedisChannel string

	// WSAllowedOrigins lists browser origins, besides the serving host, that
	// may open the realtime websocket.
	WSAllowedOrigins []string

	KafkaBrokers       []string
	NotifyTopic        string
	NotifyWebhookURL   string
	NotifyWebhookToken string
	OwnerPhone         string

	Location *time.Location
	Hours    scheduler.BusinessHours

	AllowOverlapOnReschedule bool
	EnforceBookingExclusion  bool

	SessionTTL   time.Duration
	SlotCacheTTL time.Duration

	AdminEmail    string
	AdminPassword string
}

// LoadWithDotenv reads the given .env files, or ./.env when none are named,
// and then calls Load. Missing files are ignored; variables already set in
// the process environment win over file values.
func LoadWithDotenv(paths ...string) (Config, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("falha ao ler %s: %w", path, err)
		}
	}
	return Load()
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting localized error messages for missing entries.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:                 8080,
		LogLevel:                 "info",
		Store:                    StoreSQLite,
		SQLiteDSN:                "data/scheduler.db",
		RedisChannel:             "scheduler:changes",
		NotifyTopic:              "salon.notifications",
		Hours:                    scheduler.DefaultBusinessHours(),
		AllowOverlapOnReschedule: true,
		EnforceBookingExclusion:  true,
		SessionTTL:               12 * time.Hour,
		SlotCacheTTL:             30 * time.Second,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if portValue := env("HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if level := env("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	if store := env("STORE"); store != "" {
		switch kind := StoreKind(strings.ToLower(store)); kind {
		case StoreSQLite, StorePostgres, StoreMemory:
			cfg.Store = kind
		default:
			invalid = append(invalid, "SCHEDULER_STORE")
		}
	}

	if dsn := env("SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.DatabaseURL = env("DATABASE_URL")
	if cfg.Store == StorePostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "SCHEDULER_DATABASE_URL")
	}

	cfg.RedisAddr = env("REDIS_ADDR")
	if channel := env("REDIS_CHANNEL"); channel != "" {
		cfg.RedisChannel = channel
	}

	cfg.WSAllowedOrigins = notify.SplitBrokers(env("WS_ALLOWED_ORIGINS"))

	cfg.KafkaBrokers = notify.SplitBrokers(env("KAFKA_BROKERS"))
	if topic := env("NOTIFY_TOPIC"); topic != "" {
		cfg.NotifyTopic = topic
	}
	cfg.NotifyWebhookURL = env("NOTIFY_WEBHOOK_URL")
	cfg.NotifyWebhookToken = env("NOTIFY_WEBHOOK_TOKEN")
	cfg.OwnerPhone = env("OWNER_PHONE")

	cfg.Location = time.Local
	if tz := env("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	parseHour := func(key string, dst *int, allowDisabled bool) {
		value := env(key)
		if value == "" {
			return
		}
		hour, err := strconv.Atoi(value)
		if err != nil || hour > 23 || (hour < 0 && !(allowDisabled && hour == scheduler.NoLunchBreak)) {
			invalid = append(invalid, "SCHEDULER_"+key)
			return
		}
		*dst = hour
	}
	parseHour("OPEN_HOUR", &cfg.Hours.OpenHour, false)
	parseHour("LAST_START_HOUR", &cfg.Hours.LastStartHour, false)
	parseHour("LUNCH_HOUR", &cfg.Hours.LunchHour, true)

	if slotValue := env("SLOT_MINUTES"); slotValue != "" {
		minutes, err := strconv.Atoi(slotValue)
		if err != nil || minutes <= 0 {
			invalid = append(invalid, "SCHEDULER_SLOT_MINUTES")
		} else {
			cfg.Hours.SlotMinutes = minutes
		}
	}

	if daysValue := env("WORKING_DAYS"); daysValue != "" {
		days, err := parseWeekdays(daysValue)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_WORKING_DAYS")
		} else {
			cfg.Hours.WorkingDays = days
		}
	}

	parseBool := func(key string, dst *bool) {
		value := env(key)
		if value == "" {
			return
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_"+key)
			return
		}
		*dst = parsed
	}
	parseBool("ALLOW_OVERLAP_ON_RESCHEDULE", &cfg.AllowOverlapOnReschedule)
	parseBool("ENFORCE_BOOKING_EXCLUSION", &cfg.EnforceBookingExclusion)

	parseDuration := func(key string, dst *time.Duration, allowZero bool) {
		value := env(key)
		if value == "" {
			return
		}
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 || (d == 0 && !allowZero) {
			invalid = append(invalid, "SCHEDULER_"+key)
			return
		}
		*dst = d
	}
	parseDuration("SESSION_TTL", &cfg.SessionTTL, false)
	parseDuration("SLOT_CACHE_TTL", &cfg.SlotCacheTTL, true)

	cfg.AdminEmail = env("ADMIN_EMAIL")
	cfg.AdminPassword = os.Getenv("SCHEDULER_ADMIN_PASSWORD")
	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		missing = append(missing, "SCHEDULER_ADMIN_PASSWORD")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("variáveis de ambiente obrigatórias não definidas: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("variáveis de ambiente com valor inválido: %s", strings.Join(invalid, ", "))
	}
	if err := cfg.Hours.Validate(); err != nil {
		return Config{}, fmt.Errorf("horário de funcionamento inválido: %w", err)
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv("SCHEDULER_" + key))
}

// parseWeekdays reads a comma separated list of weekday numbers, Sunday=0.
func parseWeekdays(value string) ([]time.Weekday, error) {
	parts := strings.Split(value, ",")
	days := make([]time.Weekday, 0, len(parts))
	seen := make(map[time.Weekday]bool, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		day := time.Weekday(n)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		return nil, errors.New("no weekdays")
	}
	return days, nil
}
