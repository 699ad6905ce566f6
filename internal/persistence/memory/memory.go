// Package memory provides a map-backed persistence.Store for tests and
// single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/salon-scheduler/internal/persistence"
)

// Storage keeps every table in maps guarded by one lock.
type Storage struct {
	mu           sync.RWMutex
	appointments map[string]persistence.Appointment
	blockages    map[string]persistence.Blockage
	procedures   map[string]persistence.Procedure
	staff        map[string]persistence.StaffUser
	sessions     map[string]persistence.Session
}

var _ persistence.Store = (*Storage)(nil)

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		appointments: make(map[string]persistence.Appointment),
		blockages:    make(map[string]persistence.Blockage),
		procedures:   make(map[string]persistence.Procedure),
		staff:        make(map[string]persistence.StaffUser),
		sessions:     make(map[string]persistence.Session),
	}
}

// Close is a no-op.
func (s *Storage) Close() error {
	return nil
}

// --- AppointmentRepository ---

// CreateAppointment stores a booking. The overlap check and the insert share
// the write lock, so concurrent guarded inserts cannot both succeed.
func (s *Storage) CreateAppointment(ctx context.Context, appt persistence.Appointment, guard bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appointments[appt.ID]; ok {
		return fmt.Errorf("memory: appointment %s: %w", appt.ID, persistence.ErrDuplicate)
	}
	if !appt.End.After(appt.Start) {
		return fmt.Errorf("memory: appointment %s ends before it starts: %w", appt.ID, persistence.ErrConstraintViolation)
	}

	if guard {
		filter := persistence.Overlapping(appt.Start, appt.End)
		for _, existing := range s.appointments {
			if filter.Matches(existing) {
				return persistence.ErrOverlap
			}
		}
	}

	s.appointments[appt.ID] = appt
	return nil
}

// GetAppointment retrieves a booking by ID.
func (s *Storage) GetAppointment(ctx context.Context, id string) (persistence.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.appointments[id]
	if !ok {
		return persistence.Appointment{}, persistence.ErrNotFound
	}
	return appt, nil
}

// UpdateAppointment replaces a booking, keeping its creation time.
func (s *Storage) UpdateAppointment(ctx context.Context, appt persistence.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.appointments[appt.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if !appt.End.After(appt.Start) {
		return fmt.Errorf("memory: appointment %s ends before it starts: %w", appt.ID, persistence.ErrConstraintViolation)
	}

	appt.CreatedAt = existing.CreatedAt
	s.appointments[appt.ID] = appt
	return nil
}

// ListAppointments returns bookings matching filter ordered by start time.
func (s *Storage) ListAppointments(ctx context.Context, filter persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appointments := make([]persistence.Appointment, 0)
	for _, appt := range s.appointments {
		if filter.Matches(appt) {
			appointments = append(appointments, appt)
		}
	}

	sort.Slice(appointments, func(i, j int) bool {
		a, b := appointments[i], appointments[j]
		if a.Start.Equal(b.Start) {
			return a.ID < b.ID
		}
		if filter.Descending {
			return a.Start.After(b.Start)
		}
		return a.Start.Before(b.Start)
	})

	if filter.Limit > 0 && len(appointments) > filter.Limit {
		appointments = appointments[:filter.Limit]
	}
	return appointments, nil
}

// --- BlockageRepository ---

// CreateBlockage stores a closed period.
func (s *Storage) CreateBlockage(ctx context.Context, blockage persistence.Blockage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blockages[blockage.ID]; ok {
		return fmt.Errorf("memory: blockage %s: %w", blockage.ID, persistence.ErrDuplicate)
	}
	if err := checkBlockage(blockage); err != nil {
		return err
	}

	s.blockages[blockage.ID] = cloneBlockage(blockage)
	return nil
}

// DeleteBlockage removes a closed period by ID.
func (s *Storage) DeleteBlockage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blockages[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.blockages, id)
	return nil
}

// ListBlockages returns matching blockages, ranged ones first by start.
func (s *Storage) ListBlockages(ctx context.Context, filter persistence.BlockageFilter) ([]persistence.Blockage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blockages := make([]persistence.Blockage, 0)
	for _, blockage := range s.blockages {
		if filter.Matches(blockage) {
			blockages = append(blockages, cloneBlockage(blockage))
		}
	}

	sort.Slice(blockages, func(i, j int) bool {
		return lessBlockage(blockages[i], blockages[j])
	})
	return blockages, nil
}

func checkBlockage(blockage persistence.Blockage) error {
	ranged := blockage.Start != nil && blockage.End != nil
	switch {
	case ranged && blockage.Weekday != nil:
		return fmt.Errorf("memory: blockage %s has both range and weekday: %w", blockage.ID, persistence.ErrConstraintViolation)
	case !ranged && blockage.Weekday == nil:
		return fmt.Errorf("memory: blockage %s has neither range nor weekday: %w", blockage.ID, persistence.ErrConstraintViolation)
	case ranged && !blockage.End.After(*blockage.Start):
		return fmt.Errorf("memory: blockage %s ends before it starts: %w", blockage.ID, persistence.ErrConstraintViolation)
	case blockage.Weekday != nil && (*blockage.Weekday < 0 || *blockage.Weekday > 6):
		return fmt.Errorf("memory: blockage %s weekday out of range: %w", blockage.ID, persistence.ErrConstraintViolation)
	}
	return nil
}

func lessBlockage(a, b persistence.Blockage) bool {
	aRanged, bRanged := a.Start != nil, b.Start != nil
	switch {
	case aRanged && bRanged:
		if a.Start.Equal(*b.Start) {
			return a.ID < b.ID
		}
		return a.Start.Before(*b.Start)
	case aRanged != bRanged:
		return aRanged
	case a.Weekday != nil && b.Weekday != nil && *a.Weekday != *b.Weekday:
		return *a.Weekday < *b.Weekday
	}
	return a.ID < b.ID
}

// --- ProcedureRepository ---

// CreateProcedure stores a catalog entry.
func (s *Storage) CreateProcedure(ctx context.Context, procedure persistence.Procedure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.procedures[procedure.ID]; ok {
		return fmt.Errorf("memory: procedure %s: %w", procedure.ID, persistence.ErrDuplicate)
	}
	if procedure.DurationMinutes <= 0 || procedure.PriceCents < 0 {
		return fmt.Errorf("memory: procedure %s: %w", procedure.ID, persistence.ErrConstraintViolation)
	}

	s.procedures[procedure.ID] = cloneProcedure(procedure)
	return nil
}

// GetProcedure retrieves a catalog entry by ID.
func (s *Storage) GetProcedure(ctx context.Context, id string) (persistence.Procedure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	procedure, ok := s.procedures[id]
	if !ok {
		return persistence.Procedure{}, persistence.ErrNotFound
	}
	return cloneProcedure(procedure), nil
}

// ListProcedures returns the catalog ordered by category, price, then name.
func (s *Storage) ListProcedures(ctx context.Context, filter persistence.ProcedureFilter) ([]persistence.Procedure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	procedures := make([]persistence.Procedure, 0, len(s.procedures))
	for _, procedure := range s.procedures {
		if filter.Category != "" && procedure.Category != filter.Category {
			continue
		}
		procedures = append(procedures, cloneProcedure(procedure))
	}

	sort.Slice(procedures, func(i, j int) bool {
		a, b := procedures[i], procedures[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.PriceCents != b.PriceCents {
			return a.PriceCents < b.PriceCents
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return procedures, nil
}

// --- StaffRepository ---

// CreateStaffUser stores a dashboard account. Emails are unique ignoring case.
func (s *Storage) CreateStaffUser(ctx context.Context, user persistence.StaffUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.staff[user.ID]; ok {
		return fmt.Errorf("memory: staff user %s: %w", user.ID, persistence.ErrDuplicate)
	}
	lower := strings.ToLower(user.Email)
	for _, existing := range s.staff {
		if strings.ToLower(existing.Email) == lower {
			return fmt.Errorf("memory: email %s: %w", user.Email, persistence.ErrDuplicate)
		}
	}

	s.staff[user.ID] = user
	return nil
}

// GetStaffUser retrieves an account by ID.
func (s *Storage) GetStaffUser(ctx context.Context, id string) (persistence.StaffUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.staff[id]
	if !ok {
		return persistence.StaffUser{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetStaffUserByEmail retrieves an account by email, ignoring case.
func (s *Storage) GetStaffUserByEmail(ctx context.Context, email string) (persistence.StaffUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.staff {
		if strings.ToLower(user.Email) == lower {
			return user, nil
		}
	}
	return persistence.StaffUser{}, persistence.ErrNotFound
}

// --- SessionRepository ---

// CreateSession stores a session keyed by token.
func (s *Storage) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.Token = strings.TrimSpace(session.Token)
	if session.ID == "" || session.UserID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	if _, ok := s.staff[session.UserID]; !ok {
		return persistence.Session{}, persistence.ErrForeignKeyViolation
	}
	for _, existing := range s.sessions {
		if existing.ID == session.ID {
			return persistence.Session{}, persistence.ErrDuplicate
		}
	}
	if _, ok := s.sessions[session.Token]; ok {
		return persistence.Session{}, persistence.ErrDuplicate
	}

	s.sessions[session.Token] = cloneSession(session)
	return cloneSession(session), nil
}

// GetSession retrieves a session by token.
func (s *Storage) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[strings.TrimSpace(token)]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// UpdateSession replaces the mutable fields of a session found by ID.
func (s *Storage) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, current := range s.sessions {
		if current.ID != session.ID {
			continue
		}
		session.UserID = current.UserID
		session.CreatedAt = current.CreatedAt
		session.Token = strings.TrimSpace(session.Token)
		if session.Token == "" {
			return persistence.Session{}, persistence.ErrConstraintViolation
		}
		delete(s.sessions, token)
		s.sessions[session.Token] = cloneSession(session)
		return cloneSession(session), nil
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// RevokeSession marks the session revoked at revokedAt.
func (s *Storage) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token = strings.TrimSpace(token)
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	revoked := revokedAt.UTC()
	session.RevokedAt = &revoked
	session.UpdatedAt = revoked
	s.sessions[token] = session
	return cloneSession(session), nil
}

// DeleteExpiredSessions drops sessions expiring at or before reference.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if session.ExpiresAt.IsZero() {
			continue
		}
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

// --- Helpers ---

func cloneBlockage(blockage persistence.Blockage) persistence.Blockage {
	clone := blockage
	if blockage.Start != nil {
		start := *blockage.Start
		clone.Start = &start
	}
	if blockage.End != nil {
		end := *blockage.End
		clone.End = &end
	}
	if blockage.Weekday != nil {
		weekday := *blockage.Weekday
		clone.Weekday = &weekday
	}
	if blockage.Reason != nil {
		reason := *blockage.Reason
		clone.Reason = &reason
	}
	return clone
}

func cloneProcedure(procedure persistence.Procedure) persistence.Procedure {
	clone := procedure
	if procedure.Description != nil {
		description := *procedure.Description
		clone.Description = &description
	}
	return clone
}

func cloneSession(session persistence.Session) persistence.Session {
	clone := session
	if session.RevokedAt != nil {
		revoked := *session.RevokedAt
		clone.RevokedAt = &revoked
	}
	return clone
}
