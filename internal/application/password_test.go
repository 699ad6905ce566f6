package application

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()

	params := Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}
	hash, err := CreatePasswordHash("segredo123", params)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding: %s", hash)
	}
	if err := VerifyPassword(hash, "segredo123"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "outra"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		hash string
		want error
	}{
		{"plain", ErrInvalidPasswordHash},
		{"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", ErrInvalidPasswordHash},
		{"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA", ErrIncompatiblePasswordVersion},
		{"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA", ErrInvalidPasswordHash},
		{"$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA", ErrInvalidPasswordHash},
	}
	for _, tc := range cases {
		if err := VerifyPassword(tc.hash, "x"); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.hash, tc.want, err)
		}
	}
}
