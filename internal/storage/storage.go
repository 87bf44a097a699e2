// Package storage defines the persistence boundary: player snapshots and
// credentials. Backends (file, postgres) live in subpackages; the engine
// core only sees these interfaces.
package storage

import (
	"context"
	"errors"
)

// ErrUnknownUser is returned when a credential or player lookup finds no
// matching username.
var ErrUnknownUser = errors.New("storage: unknown user")

// ErrDuplicateUsername is returned when registering a username that
// already has a credential.
var ErrDuplicateUsername = errors.New("storage: duplicate username")

// PlayerRecord is the persisted snapshot of a player actor.
type PlayerRecord struct {
	Username     string   `json:"username"`
	LocationID   string   `json:"locationId"`
	HP           int      `json:"hp"`
	MaxHP        int      `json:"maxHp"`
	SpeedMs      int      `json:"speedMs"`
	Attack       int      `json:"attack"`
	Defense      int      `json:"defense"`
	Skills       []string `json:"skills"`
	DefaultSkill string   `json:"defaultSkill"`
}

// PlayerStore loads and saves player snapshots.
type PlayerStore interface {
	// LoadPlayers returns every persisted player snapshot.
	LoadPlayers(ctx context.Context) ([]PlayerRecord, error)
	// SavePlayer writes one player snapshot, replacing any previous
	// snapshot for the same username.
	SavePlayer(ctx context.Context, rec PlayerRecord) error
}

// CredentialStore persists the stored credential per username. What the
// credential string contains depends on the auth mode; storage treats it
// as opaque.
type CredentialStore interface {
	// Credential returns the stored credential for the username, or
	// ErrUnknownUser.
	Credential(ctx context.Context, username string) (string, error)
	// StoreCredential records the credential for a new username, or
	// returns ErrDuplicateUsername.
	StoreCredential(ctx context.Context, username, credential string) error
}

// Store is a full persistence backend.
type Store interface {
	PlayerStore
	CredentialStore
	Close()
}
