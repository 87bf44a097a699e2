package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/muddy/internal/storage"
	"github.com/cory-johannsen/muddy/internal/storage/postgres"
	"github.com/cory-johannsen/muddy/internal/testutil"
)

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func setupStore(t *testing.T) *postgres.Store {
	t.Helper()
	return postgres.NewStore(testutil.NewPool(t))
}

func makeRecord(username string) storage.PlayerRecord {
	return storage.PlayerRecord{
		Username: username, LocationID: "gate", HP: 25, MaxHP: 30,
		SpeedMs: 500, Attack: 10, Defense: 2,
		Skills: []string{"punch", "kick"}, DefaultSkill: "punch",
	}
}

func TestStore_SaveAndLoadPlayers(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ava := makeRecord(uniqueName("ava"))
	bo := makeRecord(uniqueName("bo"))
	bo.HP = 12
	require.NoError(t, s.SavePlayer(ctx, ava))
	require.NoError(t, s.SavePlayer(ctx, bo))

	players, err := s.LoadPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, 2)

	byName := map[string]storage.PlayerRecord{}
	for _, rec := range players {
		byName[rec.Username] = rec
	}
	assert.Equal(t, ava, byName[ava.Username])
	assert.Equal(t, 12, byName[bo.Username].HP)
}

func TestStore_SavePlayerUpserts(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	rec := makeRecord(uniqueName("ava"))
	require.NoError(t, s.SavePlayer(ctx, rec))

	rec.HP = 1
	rec.LocationID = "tunnel"
	require.NoError(t, s.SavePlayer(ctx, rec))

	players, err := s.LoadPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, 1, players[0].HP)
	assert.Equal(t, "tunnel", players[0].LocationID)
}

func TestStore_SavePlayerRequiresUsername(t *testing.T) {
	s := setupStore(t)
	assert.Error(t, s.SavePlayer(context.Background(), storage.PlayerRecord{}))
}

func TestStore_Credentials(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	name := uniqueName("ava")

	_, err := s.Credential(ctx, name)
	assert.ErrorIs(t, err, storage.ErrUnknownUser)

	require.NoError(t, s.StoreCredential(ctx, name, "stored-hash"))

	got, err := s.Credential(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "stored-hash", got)

	assert.ErrorIs(t, s.StoreCredential(ctx, name, "other"), storage.ErrDuplicateUsername)
}
