package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/muddy/internal/storage"
)

// Store persists players and credentials in PostgreSQL.
type Store struct {
	pool *Pool
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a Store backed by the given pool.
//
// Precondition: pool must be a valid, open connection pool with the
// players and credentials tables migrated.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// LoadPlayers returns every persisted player snapshot.
func (s *Store) LoadPlayers(ctx context.Context) ([]storage.PlayerRecord, error) {
	rows, err := s.pool.DB().Query(ctx,
		`SELECT username, location_id, hp, max_hp, speed_ms, attack, defense, skills, default_skill
		 FROM players`)
	if err != nil {
		return nil, fmt.Errorf("querying players: %w", err)
	}
	defer rows.Close()

	var out []storage.PlayerRecord
	for rows.Next() {
		var rec storage.PlayerRecord
		if err := rows.Scan(&rec.Username, &rec.LocationID, &rec.HP, &rec.MaxHP,
			&rec.SpeedMs, &rec.Attack, &rec.Defense, &rec.Skills, &rec.DefaultSkill); err != nil {
			return nil, fmt.Errorf("scanning player row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading players: %w", err)
	}
	return out, nil
}

// SavePlayer upserts one player snapshot keyed by username.
func (s *Store) SavePlayer(ctx context.Context, rec storage.PlayerRecord) error {
	if rec.Username == "" {
		return errors.New("postgres: player record needs a username")
	}
	_, err := s.pool.DB().Exec(ctx,
		`INSERT INTO players (username, location_id, hp, max_hp, speed_ms, attack, defense, skills, default_skill)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (username) DO UPDATE SET
		   location_id = EXCLUDED.location_id,
		   hp = EXCLUDED.hp,
		   max_hp = EXCLUDED.max_hp,
		   speed_ms = EXCLUDED.speed_ms,
		   attack = EXCLUDED.attack,
		   defense = EXCLUDED.defense,
		   skills = EXCLUDED.skills,
		   default_skill = EXCLUDED.default_skill,
		   updated_at = NOW()`,
		rec.Username, rec.LocationID, rec.HP, rec.MaxHP,
		rec.SpeedMs, rec.Attack, rec.Defense, rec.Skills, rec.DefaultSkill)
	if err != nil {
		return fmt.Errorf("upserting player: %w", err)
	}
	return nil
}

// Credential returns the stored credential for the username.
func (s *Store) Credential(ctx context.Context, username string) (string, error) {
	var credential string
	err := s.pool.DB().QueryRow(ctx,
		`SELECT credential FROM credentials WHERE username = $1`,
		username,
	).Scan(&credential)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrUnknownUser
	}
	if err != nil {
		return "", fmt.Errorf("querying credential: %w", err)
	}
	return credential, nil
}

// StoreCredential records the credential for a new username.
func (s *Store) StoreCredential(ctx context.Context, username, credential string) error {
	_, err := s.pool.DB().Exec(ctx,
		`INSERT INTO credentials (username, credential) VALUES ($1, $2)`,
		username, credential)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateUsername
		}
		return fmt.Errorf("inserting credential: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
