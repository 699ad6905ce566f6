package application

import (
	"context"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/example/salon-scheduler/internal/notify"
	"github.com/example/salon-scheduler/internal/persistence"
)

var brt = time.FixedZone("BRT", -3*60*60)

// monday is the day before the first working day used across tests.
var monday = time.Date(2024, time.June, 10, 8, 0, 0, 0, brt)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

// appointmentRepoStub keeps appointments in memory and honours AppointmentQuery.
type appointmentRepoStub struct {
	mu           sync.Mutex
	appointments map[string]Appointment

	createErr error
	getErr    error
	updateErr error
	listErr   error

	guards  []bool
	updates []Appointment
	order   *[]string
}

func newAppointmentRepoStub(seed ...Appointment) *appointmentRepoStub {
	stub := &appointmentRepoStub{appointments: make(map[string]Appointment)}
	for _, appt := range seed {
		stub.appointments[appt.ID] = appt
	}
	return stub
}

func (s *appointmentRepoStub) CreateAppointment(ctx context.Context, appt Appointment, guard bool) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guards = append(s.guards, guard)
	if s.createErr != nil {
		return Appointment{}, s.createErr
	}
	if guard {
		for _, existing := range s.appointments {
			if existing.Status != StatusCancelled && existing.Start.Before(appt.End) && existing.End.After(appt.Start) {
				return Appointment{}, persistence.ErrOverlap
			}
		}
	}
	s.appointments[appt.ID] = appt
	return appt, nil
}

func (s *appointmentRepoStub) GetAppointment(ctx context.Context, id string) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return Appointment{}, s.getErr
	}
	appt, ok := s.appointments[id]
	if !ok {
		return Appointment{}, persistence.ErrNotFound
	}
	return appt, nil
}

func (s *appointmentRepoStub) UpdateAppointment(ctx context.Context, appt Appointment) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return Appointment{}, s.updateErr
	}
	if _, ok := s.appointments[appt.ID]; !ok {
		return Appointment{}, persistence.ErrNotFound
	}
	s.appointments[appt.ID] = appt
	s.updates = append(s.updates, appt)
	if s.order != nil {
		*s.order = append(*s.order, "update")
	}
	return appt, nil
}

func (s *appointmentRepoStub) ListAppointments(ctx context.Context, query AppointmentQuery) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Appointment
	for _, appt := range s.appointments {
		if matchesQuery(appt, query) {
			out = append(out, appt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if query.Descending {
			return out[i].Start.After(out[j].Start)
		}
		return out[i].Start.Before(out[j].Start)
	})
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func matchesQuery(appt Appointment, q AppointmentQuery) bool {
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, appt.Status) {
		return false
	}
	if slices.Contains(q.ExcludeStatuses, appt.Status) {
		return false
	}
	if q.StartsFrom != nil && appt.Start.Before(*q.StartsFrom) {
		return false
	}
	if q.StartsBefore != nil && !appt.Start.Before(*q.StartsBefore) {
		return false
	}
	if q.EndsAfter != nil && !appt.End.After(*q.EndsAfter) {
		return false
	}
	if q.EndsUntil != nil && appt.End.After(*q.EndsUntil) {
		return false
	}
	if q.ClientPhone != "" && appt.ClientPhone != q.ClientPhone {
		return false
	}
	return true
}

// blockageRepoStub keeps blockages in memory.
type blockageRepoStub struct {
	mu        sync.Mutex
	blockages map[string]Blockage
	queries   []BlockageQuery

	createErr error
	deleteErr error
	listErr   error
}

func newBlockageRepoStub(seed ...Blockage) *blockageRepoStub {
	stub := &blockageRepoStub{blockages: make(map[string]Blockage)}
	for _, b := range seed {
		stub.blockages[b.ID] = b
	}
	return stub
}

func (s *blockageRepoStub) CreateBlockage(ctx context.Context, b Blockage) (Blockage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Blockage{}, s.createErr
	}
	s.blockages[b.ID] = b
	return b, nil
}

func (s *blockageRepoStub) DeleteBlockage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.blockages[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.blockages, id)
	return nil
}

func (s *blockageRepoStub) ListBlockages(ctx context.Context, q BlockageQuery) ([]Blockage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Blockage
	for _, b := range s.blockages {
		if b.Weekday != nil {
			if q.AllWeekdays || (q.Weekday != nil && *q.Weekday == *b.Weekday) {
				out = append(out, b)
			}
			continue
		}
		if q.RangeStart != nil && q.RangeEnd != nil && b.Start != nil && b.End != nil &&
			b.Start.Before(*q.RangeEnd) && b.End.After(*q.RangeStart) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// catalogStub serves a fixed procedure list.
type catalogStub struct {
	mu         sync.Mutex
	procedures map[string]Procedure
	err        error
	calls      int
}

func newCatalogStub(procedures ...Procedure) *catalogStub {
	stub := &catalogStub{procedures: make(map[string]Procedure)}
	for _, p := range procedures {
		stub.procedures[p.ID] = p
	}
	return stub
}

func (c *catalogStub) GetProcedure(ctx context.Context, id string) (Procedure, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return Procedure{}, c.err
	}
	p, ok := c.procedures[id]
	if !ok {
		return Procedure{}, persistence.ErrNotFound
	}
	return p, nil
}

func (c *catalogStub) ListProcedures(ctx context.Context, category string) ([]Procedure, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	var out []Procedure
	for _, p := range c.procedures {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].PriceCents != out[j].PriceCents {
			return out[i].PriceCents < out[j].PriceCents
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *catalogStub) CreateProcedure(ctx context.Context, p Procedure) (Procedure, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return Procedure{}, c.err
	}
	if _, ok := c.procedures[p.ID]; ok {
		return Procedure{}, persistence.ErrDuplicate
	}
	c.procedures[p.ID] = p
	return p, nil
}

// notifierStub records notifications.
type notifierStub struct {
	mu    sync.Mutex
	sent  []notify.Notification
	err   error
	order *[]string
}

func (n *notifierStub) Notify(ctx context.Context, msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	if n.order != nil {
		*n.order = append(*n.order, "notify")
	}
	return n.err
}

// metricsStub counts observations.
type metricsStub struct {
	mu            sync.Mutex
	availability  []string
	cacheHits     int
	cacheMisses   int
	bookings      []string
	notifications []string
}

func (m *metricsStub) ObserveAvailability(reason string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availability = append(m.availability, reason)
}

func (m *metricsStub) ObserveSlotCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.cacheHits++
		return
	}
	m.cacheMisses++
}

func (m *metricsStub) ObserveBooking(operation, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = append(m.bookings, operation+":"+outcome)
}

func (m *metricsStub) ObserveNotification(kind string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.notifications = append(m.notifications, kind+":"+status)
}

// feedStub is a synchronous ChangeSubscriber.
type feedStub struct {
	mu   sync.Mutex
	subs map[persistence.Entity][]func(persistence.ChangeEvent)
}

func (f *feedStub) Subscribe(entity persistence.Entity, fn func(persistence.ChangeEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[persistence.Entity][]func(persistence.ChangeEvent))
	}
	f.subs[entity] = append(f.subs[entity], fn)
	idx := len(f.subs[entity]) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.subs[entity][idx] = nil
	}
}

func (f *feedStub) emit(entity persistence.Entity) {
	f.mu.Lock()
	subs := append([]func(persistence.ChangeEvent){}, f.subs[entity]...)
	f.mu.Unlock()
	for _, fn := range subs {
		if fn != nil {
			fn(persistence.ChangeEvent{Entity: entity, Op: persistence.OpUpdate})
		}
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrWeekday(d time.Weekday) *time.Weekday { return &d }

func ptrInt(v int) *int { return &v }

func sampleProcedures() []Procedure {
	return []Procedure{
		{ID: "cut", Name: "Corte", Category: "Cabelo", PriceCents: 8000, DurationMinutes: 60},
		{ID: "brush", Name: "Escova", Category: "Cabelo", PriceCents: 5000, DurationMinutes: 30},
		{ID: "nails", Name: "Manicure", Category: "Unhas", PriceCents: 3500, DurationMinutes: 45},
		{ID: "broken", Name: "Sem duração", Category: "Outros", PriceCents: 100, DurationMinutes: 0},
	}
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
