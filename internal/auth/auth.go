// Package auth verifies player credentials in one of two modes: bcrypt
// over a plaintext password (the default), or a connection-bound scheme
// in which the client proves knowledge of its stored hash by mixing it
// with the connection identifier.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/muddy/internal/storage"
)

// Mode selects the credential scheme.
type Mode string

const (
	// ModeBcrypt stores a bcrypt hash and verifies a plaintext password.
	ModeBcrypt Mode = "bcrypt"
	// ModeConnectionBound stores the client-submitted hash verbatim and
	// verifies Bind(connectionID, storedHash) against the login secret.
	ModeConnectionBound Mode = "connection-bound"
)

// ParseMode validates a configured mode string. Empty selects the
// default.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeBcrypt, nil
	case ModeBcrypt, ModeConnectionBound:
		return Mode(s), nil
	}
	return "", fmt.Errorf("auth: unknown mode %q", s)
}

// ErrInvalidCredentials is returned for every verification failure,
// including unknown usernames, so callers cannot enumerate accounts.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Bind mixes a connection identifier with a stored credential. The
// login secret in connection-bound mode must equal Bind(connID, stored).
// xxhash is not cryptographic; the value only binds a login attempt to
// one connection.
func Bind(connID, stored string) string {
	return strconv.FormatUint(xxhash.Sum64String(connID+stored), 10)
}

// Verifier registers and checks credentials against a credential store.
type Verifier struct {
	mode  Mode
	creds storage.CredentialStore
}

// NewVerifier creates a verifier in the given mode.
//
// Precondition: creds must be non-nil.
func NewVerifier(mode Mode, creds storage.CredentialStore) *Verifier {
	return &Verifier{mode: mode, creds: creds}
}

// Mode returns the configured credential scheme.
func (v *Verifier) Mode() Mode { return v.mode }

// Register stores the credential for a new username. In bcrypt mode the
// secret is the plaintext password and is hashed before storage; in
// connection-bound mode the secret is the client-side hash and is stored
// verbatim.
//
// Postcondition: Returns storage.ErrDuplicateUsername when the username
// is taken.
func (v *Verifier) Register(ctx context.Context, username, secret string) error {
	if username == "" || secret == "" {
		return fmt.Errorf("auth: username and secret must be non-empty")
	}
	credential := secret
	if v.mode == ModeBcrypt {
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		credential = string(hash)
	}
	return v.creds.StoreCredential(ctx, username, credential)
}

// Verify checks a login secret for the username on the given connection.
//
// Postcondition: Returns nil on success or ErrInvalidCredentials on any
// failure; storage faults are returned as-is so callers can distinguish
// a rejection from an outage.
func (v *Verifier) Verify(ctx context.Context, connID, username, secret string) error {
	stored, err := v.creds.Credential(ctx, username)
	if errors.Is(err, storage.ErrUnknownUser) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("loading credential: %w", err)
	}

	switch v.mode {
	case ModeConnectionBound:
		if Bind(connID, stored) != secret {
			return ErrInvalidCredentials
		}
	default:
		if bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) != nil {
			return ErrInvalidCredentials
		}
	}
	return nil
}
