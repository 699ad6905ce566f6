package persistence

import (
	"context"
	"log/slog"
	"time"
)

// Entity names a table observed by the change feed.
type Entity string

const (
	EntityAppointments Entity = "appointments"
	EntityBlockages    Entity = "blockages"
	EntityProcedures   Entity = "procedures"
)

// ChangeOp is the kind of write that produced a change.
type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeEvent announces a write. Subscribers treat it as a hint and re-fetch.
type ChangeEvent struct {
	Entity Entity    `json:"entity"`
	Op     ChangeOp  `json:"op"`
	ID     string    `json:"id,omitempty"`
	At     time.Time `json:"at"`
}

// ChangePublisher broadcasts change events.
type ChangePublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// ChangeFeed delivers change events to subscribers. The returned function
// removes the subscription and is safe to call more than once.
type ChangeFeed interface {
	ChangePublisher
	Subscribe(entity Entity, fn func(ChangeEvent)) (unsubscribe func())
}

// publishingStore announces every successful write on a ChangePublisher.
type publishingStore struct {
	Store
	publisher ChangePublisher
	now       func() time.Time
	logger    *slog.Logger
}

// WithChangeFeed wraps store so successful writes are published. Publish
// failures are logged and never fail the write.
func WithChangeFeed(store Store, publisher ChangePublisher, now func() time.Time, logger *slog.Logger) Store {
	if publisher == nil {
		return store
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &publishingStore{Store: store, publisher: publisher, now: now, logger: logger}
}

func (s *publishingStore) publish(ctx context.Context, entity Entity, op ChangeOp, id string) {
	event := ChangeEvent{Entity: entity, Op: op, ID: id, At: s.now()}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish change", "entity", entity, "op", op, "id", id, "error", err)
	}
}

func (s *publishingStore) CreateAppointment(ctx context.Context, appt Appointment, guard bool) error {
	if err := s.Store.CreateAppointment(ctx, appt, guard); err != nil {
		return err
	}
	s.publish(ctx, EntityAppointments, OpInsert, appt.ID)
	return nil
}

func (s *publishingStore) UpdateAppointment(ctx context.Context, appt Appointment) error {
	if err := s.Store.UpdateAppointment(ctx, appt); err != nil {
		return err
	}
	s.publish(ctx, EntityAppointments, OpUpdate, appt.ID)
	return nil
}

func (s *publishingStore) CreateBlockage(ctx context.Context, blockage Blockage) error {
	if err := s.Store.CreateBlockage(ctx, blockage); err != nil {
		return err
	}
	s.publish(ctx, EntityBlockages, OpInsert, blockage.ID)
	return nil
}

func (s *publishingStore) DeleteBlockage(ctx context.Context, id string) error {
	if err := s.Store.DeleteBlockage(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, EntityBlockages, OpDelete, id)
	return nil
}

func (s *publishingStore) CreateProcedure(ctx context.Context, procedure Procedure) error {
	if err := s.Store.CreateProcedure(ctx, procedure); err != nil {
		return err
	}
	s.publish(ctx, EntityProcedures, OpInsert, procedure.ID)
	return nil
}
