package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// EnsureStaffParams describes the bootstrap staff account.
type EnsureStaffParams struct {
	Email       string
	DisplayName string
	Password    string
}

// StaffService provisions dashboard accounts.
type StaffService struct {
	credentials CredentialStore
	registry    StaffRegistry
	hash        func(password string) (string, error)
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewStaffService wires dependencies for staff provisioning. A nil hash uses
// HashPassword.
func NewStaffService(credentials CredentialStore, registry StaffRegistry, hash func(string) (string, error), idGenerator func() string, now func() time.Time, logger *slog.Logger) *StaffService {
	if hash == nil {
		hash = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &StaffService{
		credentials: credentials,
		registry:    registry,
		hash:        hash,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// EnsureStaffUser creates the account unless one already uses the email.
// created reports whether a new account was written.
func (s *StaffService) EnsureStaffUser(ctx context.Context, params EnsureStaffParams) (user StaffUser, created bool, err error) {
	if s == nil {
		err = fmt.Errorf("StaffService is nil")
		return
	}
	if s.credentials == nil || s.registry == nil {
		err = fmt.Errorf("staff repositories not configured")
		return
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))
	logger := serviceLogger(ctx, s.logger, "StaffService", "EnsureStaffUser", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "staff bootstrap failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "staff user ready", "user_id", user.ID, "created", created)
	}()

	vErr := &ValidationError{}
	if _, parseErr := mail.ParseAddress(email); email == "" || parseErr != nil {
		vErr.add("email", "e-mail inválido")
	}
	if len(params.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("senha deve ter ao menos %d caracteres", MinPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	existing, lookupErr := s.credentials.GetUserCredentialsByEmail(ctx, email)
	switch {
	case lookupErr == nil:
		user = existing.User
		return
	case !isNotFoundError(lookupErr):
		err = mapStoreError("get credentials", lookupErr)
		return
	}

	hash, hashErr := s.hash(params.Password)
	if hashErr != nil {
		err = fmt.Errorf("hash password: %w", hashErr)
		return
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		displayName = email
	}
	now := s.now()
	user, err = s.registry.CreateStaffUser(ctx, UserCredentials{
		User: StaffUser{
			ID:          s.idGenerator(),
			Email:       email,
			DisplayName: displayName,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		PasswordHash: hash,
	})
	if err != nil {
		err = mapStoreError("create staff user", err)
		return
	}
	created = true
	return
}
