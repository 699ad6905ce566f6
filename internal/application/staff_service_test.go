package application

import (
	"context"
	"errors"
	"testing"
)

type staffRegistryStub struct {
	created []UserCredentials
	err     error
}

func (s *staffRegistryStub) CreateStaffUser(ctx context.Context, credentials UserCredentials) (StaffUser, error) {
	if s.err != nil {
		return StaffUser{}, s.err
	}
	s.created = append(s.created, credentials)
	return credentials.User, nil
}

func TestStaffService_EnsureStaffUser(t *testing.T) {
	t.Parallel()

	fakeHash := func(password string) (string, error) { return "hashed:" + password, nil }

	t.Run("creates the account when missing", func(t *testing.T) {
		t.Parallel()

		registry := &staffRegistryStub{}
		svc := NewStaffService(&credentialStoreStub{}, registry, fakeHash, sequentialIDs("staff"), fixedNow(monday), nil)

		user, created, err := svc.EnsureStaffUser(context.Background(), EnsureStaffParams{Email: " Dona@Salao.com ", Password: "segredo123"})
		if err != nil {
			t.Fatalf("EnsureStaffUser failed: %v", err)
		}
		if !created || user.ID != "staff-1" || user.Email != "dona@salao.com" || user.DisplayName != "dona@salao.com" {
			t.Fatalf("unexpected user: %#v created=%v", user, created)
		}
		if registry.created[0].PasswordHash != "hashed:segredo123" {
			t.Fatalf("expected hashed password, got %q", registry.created[0].PasswordHash)
		}
	})

	t.Run("keeps existing accounts", func(t *testing.T) {
		t.Parallel()

		registry := &staffRegistryStub{}
		creds := &credentialStoreStub{credentials: UserCredentials{User: StaffUser{ID: "existing", Email: "dona@salao.com"}}}
		svc := NewStaffService(creds, registry, fakeHash, nil, nil, nil)

		user, created, err := svc.EnsureStaffUser(context.Background(), EnsureStaffParams{Email: "dona@salao.com", Password: "segredo123"})
		if err != nil {
			t.Fatalf("EnsureStaffUser failed: %v", err)
		}
		if created || user.ID != "existing" || len(registry.created) != 0 {
			t.Fatalf("expected existing account to be reused")
		}
	})

	t.Run("validates email and password", func(t *testing.T) {
		t.Parallel()

		svc := NewStaffService(&credentialStoreStub{}, &staffRegistryStub{}, fakeHash, nil, nil, nil)
		_, _, err := svc.EnsureStaffUser(context.Background(), EnsureStaffParams{Email: "not-an-email", Password: "short"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || len(vErr.FieldErrors) != 2 {
			t.Fatalf("expected two field errors, got %v", err)
		}
	})

	t.Run("maps registry failures", func(t *testing.T) {
		t.Parallel()

		registry := &staffRegistryStub{err: errors.New("read only")}
		svc := NewStaffService(&credentialStoreStub{}, registry, fakeHash, nil, nil, nil)
		_, _, err := svc.EnsureStaffUser(context.Background(), EnsureStaffParams{Email: "dona@salao.com", Password: "segredo123"})
		if ErrorKind(err) != "data_store" {
			t.Fatalf("expected data_store error, got %v", err)
		}
	})
}
