package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/salon-scheduler/internal/application"
	"github.com/example/salon-scheduler/internal/persistence"
	"github.com/example/salon-scheduler/internal/scheduler"
	"github.com/example/salon-scheduler/internal/storeadapter"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers, clocks and the salon location.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Hours       scheduler.BusinessHours
	Logger      *slog.Logger
	// Options are appended after WithLocation(Location()) for every service
	// that accepts them.
	Options []application.ServiceOption
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Hours:       scheduler.DefaultBusinessHours(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithHours overrides the business hours handed to availability services.
func WithHours(hours scheduler.BusinessHours) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Hours = hours
	}
}

// WithServiceOptions appends application options to every built service.
func WithServiceOptions(opts ...application.ServiceOption) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Options = append(factory.Options, opts...)
	}
}

func (f *ServiceFactory) options() []application.ServiceOption {
	return append([]application.ServiceOption{application.WithLocation(Location())}, f.Options...)
}

func (f *ServiceFactory) now(override func() time.Time) func() time.Time {
	if override != nil {
		return override
	}
	return f.Clock.NowFunc()
}

func (f *ServiceFactory) ids(override func() string) func() string {
	if override != nil {
		return override
	}
	return f.IDGenerator.NextFunc()
}

// AvailabilityServiceDeps captures dependencies for an availability service.
type AvailabilityServiceDeps struct {
	Appointments application.AppointmentReader
	Blockages    application.BlockageReader
	Catalog      application.ProcedureCatalog
	Now          func() time.Time
}

// NewAvailabilityService builds an availability service over the factory hours.
func (f *ServiceFactory) NewAvailabilityService(deps AvailabilityServiceDeps) *application.AvailabilityService {
	return application.NewAvailabilityServiceWithLogger(
		deps.Appointments,
		deps.Blockages,
		deps.Catalog,
		f.Hours,
		f.now(deps.Now),
		f.Logger,
		f.options()...,
	)
}

// AppointmentServiceDeps captures dependencies for an appointment service.
type AppointmentServiceDeps struct {
	Appointments application.AppointmentRepository
	Catalog      application.ProcedureCatalog
	Notifier     application.Notifier
	// Slots checks client bookings when set.
	Slots       application.SlotChecker
	IDGenerator func() string
	Now         func() time.Time
}

// NewAppointmentService builds an appointment service.
func (f *ServiceFactory) NewAppointmentService(deps AppointmentServiceDeps) *application.AppointmentService {
	opts := f.options()
	if deps.Slots != nil {
		opts = append(opts, application.WithSlotChecker(deps.Slots))
	}
	return application.NewAppointmentServiceWithLogger(
		deps.Appointments,
		deps.Catalog,
		deps.Notifier,
		f.ids(deps.IDGenerator),
		f.now(deps.Now),
		f.Logger,
		opts...,
	)
}

// BlockageServiceDeps captures dependencies for a blockage service.
type BlockageServiceDeps struct {
	Blockages   application.BlockageRepository
	IDGenerator func() string
	Now         func() time.Time
}

// NewBlockageService builds a blockage service.
func (f *ServiceFactory) NewBlockageService(deps BlockageServiceDeps) *application.BlockageService {
	return application.NewBlockageServiceWithLogger(
		deps.Blockages,
		f.ids(deps.IDGenerator),
		f.now(deps.Now),
		f.Logger,
		f.options()...,
	)
}

// CalendarServiceDeps captures dependencies for a calendar service.
type CalendarServiceDeps struct {
	Appointments application.AppointmentReader
	Blockages    application.BlockageReader
	Catalog      application.ProcedureCatalog
}

// NewCalendarService builds a calendar service.
func (f *ServiceFactory) NewCalendarService(deps CalendarServiceDeps) *application.CalendarService {
	return application.NewCalendarServiceWithLogger(
		deps.Appointments,
		deps.Blockages,
		deps.Catalog,
		f.Logger,
		f.options()...,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       application.SessionRepository
	PasswordVerify application.PasswordVerifier
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
}

// NewAuthService builds an auth service. A zero SessionTTL means 12 hours.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	ttl := deps.SessionTTL
	if ttl == 0 {
		ttl = 12 * time.Hour
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		deps.PasswordVerify,
		f.ids(deps.TokenGenerator),
		f.now(deps.Now),
		ttl,
		f.Logger,
	)
}

// Services bundles every service wired to one store.
type Services struct {
	Adapter      *storeadapter.Adapter
	Availability *application.AvailabilityService
	Appointments *application.AppointmentService
	Blockages    *application.BlockageService
	Calendar     *application.CalendarService
	Procedures   *application.ProcedureService
	Stats        *application.StatsService
}

// NewServices wires every service over store through the application adapter.
// Client bookings are checked against the availability service.
// A nil notifier discards notifications.
func (f *ServiceFactory) NewServices(store persistence.Store, notifier application.Notifier) Services {
	adapter := storeadapter.New(store, Location())
	availability := f.NewAvailabilityService(AvailabilityServiceDeps{
		Appointments: adapter,
		Blockages:    adapter,
		Catalog:      adapter,
	})
	return Services{
		Adapter:      adapter,
		Availability: availability,
		Appointments: f.NewAppointmentService(AppointmentServiceDeps{
			Appointments: adapter,
			Catalog:      adapter,
			Notifier:     notifier,
			Slots:        availability,
		}),
		Blockages: f.NewBlockageService(BlockageServiceDeps{Blockages: adapter}),
		Calendar: f.NewCalendarService(CalendarServiceDeps{
			Appointments: adapter,
			Blockages:    adapter,
			Catalog:      adapter,
		}),
		Procedures: application.NewProcedureServiceWithLogger(adapter, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger),
		Stats:      application.NewStatsService(adapter, adapter, f.Logger),
	}
}
