// Package file persists players and credentials as JSON documents on
// disk. It is the zero-infrastructure backend; the postgres backend is
// the production one.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cory-johannsen/muddy/internal/storage"
)

// Store keeps two JSON files: a players document (username to snapshot)
// and a credentials document (username to stored credential). One mutex
// serializes all file access; concurrent saves never interleave.
type Store struct {
	playersPath string
	credsPath   string

	mu sync.Mutex
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a file store writing to the given paths. Parent
// directories are created; the files themselves appear on first save.
func NewStore(playersPath, credsPath string) (*Store, error) {
	for _, p := range []string{playersPath, credsPath} {
		if p == "" {
			return nil, errors.New("file: players and credentials paths must be non-empty")
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	}
	return &Store{playersPath: playersPath, credsPath: credsPath}, nil
}

// LoadPlayers returns every persisted player snapshot. A missing file
// is an empty store, not an error.
func (s *Store) LoadPlayers(ctx context.Context) ([]storage.PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	players, err := s.readPlayers()
	if err != nil {
		return nil, err
	}
	out := make([]storage.PlayerRecord, 0, len(players))
	for _, rec := range players {
		out = append(out, rec)
	}
	return out, nil
}

// SavePlayer writes one player snapshot, replacing any previous
// snapshot for the same username.
func (s *Store) SavePlayer(ctx context.Context, rec storage.PlayerRecord) error {
	if rec.Username == "" {
		return errors.New("file: player record needs a username")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	players, err := s.readPlayers()
	if err != nil {
		return err
	}
	players[rec.Username] = rec
	return writeJSON(s.playersPath, players)
}

// Credential returns the stored credential for the username.
func (s *Store) Credential(ctx context.Context, username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.readCreds()
	if err != nil {
		return "", err
	}
	c, ok := creds[username]
	if !ok {
		return "", storage.ErrUnknownUser
	}
	return c, nil
}

// StoreCredential records the credential for a new username.
func (s *Store) StoreCredential(ctx context.Context, username, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.readCreds()
	if err != nil {
		return err
	}
	if _, ok := creds[username]; ok {
		return storage.ErrDuplicateUsername
	}
	creds[username] = credential
	return writeJSON(s.credsPath, creds)
}

// Close is a no-op; every operation already syncs to disk.
func (s *Store) Close() {}

func (s *Store) readPlayers() (map[string]storage.PlayerRecord, error) {
	players := make(map[string]storage.PlayerRecord)
	if err := readJSON(s.playersPath, &players); err != nil {
		return nil, fmt.Errorf("reading players file: %w", err)
	}
	return players, nil
}

func (s *Store) readCreds() (map[string]string, error) {
	creds := make(map[string]string)
	if err := readJSON(s.credsPath, &creds); err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	return creds, nil
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// writeJSON replaces the file contents via a temp file and rename so a
// crash mid-write never leaves a truncated document.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
