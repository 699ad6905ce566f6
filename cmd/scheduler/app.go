package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/example/salon-scheduler/internal/application"
	"github.com/example/salon-scheduler/internal/config"
	httptransport "github.com/example/salon-scheduler/internal/http"
	"github.com/example/salon-scheduler/internal/metrics"
	"github.com/example/salon-scheduler/internal/notify"
	"github.com/example/salon-scheduler/internal/persistence"
	"github.com/example/salon-scheduler/internal/persistence/memory"
	"github.com/example/salon-scheduler/internal/persistence/postgres"
	"github.com/example/salon-scheduler/internal/persistence/sqlite"
	"github.com/example/salon-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/salon-scheduler/internal/realtime"
	"github.com/example/salon-scheduler/internal/storeadapter"
)

// slotCacheEntries bounds the availability cache; one entry per
// (day, duration) pair.
const slotCacheEntries = 512

// app holds the wired handler and the resources released on Close.
type app struct {
	Handler  http.Handler
	Registry *prometheus.Registry

	logger  *slog.Logger
	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

func (a *app) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Error("failed to close resource", "resource", c.name, "error", err)
		}
	}
	a.closers = nil
}

// newApp opens the configured store and change feed, builds every service
// and returns the HTTP handler. On error everything acquired so far is
// released.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	store, err := openStore(ctx, cfg, loc, logger)
	if err != nil {
		return nil, err
	}
	a.onClose("store", store.Close)

	feed, err := a.openFeed(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	schedulerMetrics := metrics.NewSchedulerMetrics(a.Registry)
	for _, entity := range []persistence.Entity{persistence.EntityAppointments, persistence.EntityBlockages, persistence.EntityProcedures} {
		unsubscribe := feed.Subscribe(entity, func(event persistence.ChangeEvent) {
			schedulerMetrics.ObserveChangeEvent(string(event.Entity))
		})
		a.onClose("metrics subscription", func() error { unsubscribe(); return nil })
	}

	repos := storeadapter.New(persistence.WithChangeFeed(store, feed, time.Now, logger), loc)

	notifier := a.buildNotifier(cfg)

	now := time.Now
	newID := uuid.NewString
	newToken := func() string { return randomHex(32) }
	opts := []application.ServiceOption{
		application.WithLocation(loc),
		application.WithMetrics(schedulerMetrics),
		application.WithBookingPolicy(application.BookingPolicy{
			AllowOverlapOnReschedule: cfg.AllowOverlapOnReschedule,
			EnforceBookingExclusion:  cfg.EnforceBookingExclusion,
			OwnerPhone:               cfg.OwnerPhone,
		}),
	}

	availabilityService := application.NewAvailabilityServiceWithLogger(repos, repos, repos, cfg.Hours, now, logger,
		append(opts, application.WithSlotCache(cfg.SlotCacheTTL, slotCacheEntries))...)
	stopWatching := availabilityService.WatchChanges(feed)
	a.onClose("slot cache watcher", func() error { stopWatching(); return nil })

	appointmentService := application.NewAppointmentServiceWithLogger(repos, repos, notifier, newID, now, logger,
		append(opts, application.WithSlotChecker(availabilityService))...)
	blockageService := application.NewBlockageServiceWithLogger(repos, newID, now, logger, opts...)
	calendarService := application.NewCalendarServiceWithLogger(repos, repos, repos, logger, opts...)
	procedureService := application.NewProcedureServiceWithLogger(repos, newID, now, logger)
	statsService := application.NewStatsService(repos, repos, logger)
	authService := application.NewAuthServiceWithLogger(repos, repos, application.VerifyPassword, newToken, now, cfg.SessionTTL, logger)
	staffService := application.NewStaffService(repos, repos, application.HashPassword, newID, now, logger)

	if cfg.AdminEmail != "" {
		user, created, err := staffService.EnsureStaffUser(ctx, application.EnsureStaffParams{
			Email:       cfg.AdminEmail,
			DisplayName: "Administração",
			Password:    cfg.AdminPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap staff account: %w", err)
		}
		logger.Info("staff account ready", "user_id", user.ID, "created", created)
	}

	a.Handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, logger),
		Availability: httptransport.NewAvailabilityHandler(availabilityService, loc, logger),
		Appointments: httptransport.NewAppointmentHandler(appointmentService, loc, logger),
		Blockages:    httptransport.NewBlockageHandler(blockageService, loc, now, logger),
		Calendar:     httptransport.NewCalendarHandler(calendarService, loc, logger),
		Procedures:   httptransport.NewProcedureHandler(procedureService, logger),
		Stats:        httptransport.NewStatsHandler(statsService, loc, now, logger),
		Sessions:     authService,
		Realtime:     realtime.NewWebsocketHandler(feed, logger, cfg.WSAllowedOrigins...),
		Metrics:      promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry}),
		Logger:       logger,
	})
	return a, nil
}

// openStore returns the persistence backend selected by cfg.Store. SQLite and
// PostgreSQL apply their schema before returning.
func openStore(ctx context.Context, cfg config.Config, loc *time.Location, logger *slog.Logger) (persistence.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL, loc)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	case config.StoreSQLite, "":
		store, err := sqlite.Open(ctx, sqlite.Options{
			Config:   migration.DefaultSQLiteConfig(cfg.SQLiteDSN),
			Location: loc,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// openFeed returns a Redis backed feed when an address is configured so
// several instances share invalidations, otherwise an in-process hub.
func (a *app) openFeed(ctx context.Context, cfg config.Config) (persistence.ChangeFeed, error) {
	if cfg.RedisAddr == "" {
		return realtime.NewHub(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	feed := realtime.NewRedisFeed(client, cfg.RedisChannel, a.logger)

	feedCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := feed.Start(feedCtx); err != nil {
		cancel()
		_ = client.Close()
		return nil, fmt.Errorf("start change feed: %w", err)
	}
	a.onClose("change feed", func() error {
		cancel()
		feed.Wait()
		return client.Close()
	})
	return feed, nil
}

// buildNotifier fans out to every configured transport. With none configured
// notifications are dropped.
func (a *app) buildNotifier(cfg config.Config) application.Notifier {
	var notifiers notify.Multi
	if len(cfg.KafkaBrokers) > 0 {
		kafka := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.NotifyTopic)
		a.onClose("kafka notifier", kafka.Close)
		notifiers = append(notifiers, kafka)
	}
	if cfg.NotifyWebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyWebhookToken))
	}
	switch len(notifiers) {
	case 0:
		return notify.NewNoopNotifier()
	case 1:
		return notifiers[0]
	default:
		return notifiers
	}
}
