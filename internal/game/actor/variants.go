package actor

// Player is the connection-backed actor variant. The embedded Actor
// carries all combat state; the player ID is the account username.
type Player struct {
	*Actor
}

// NewPlayer creates a player actor. The username doubles as both ID and
// display name.
//
// Precondition: username must be non-empty; stats.MaxHP and stats.Speed
// must be > 0.
func NewPlayer(username string, stats Stats, locationID string, skills []string, defaultSkill string) *Player {
	return &Player{
		Actor: New(username, username, KindPlayer, stats, locationID, skills, defaultSkill),
	}
}

// Monster is the world-spawned actor variant. HomeLocation records where
// the monster was placed at load time, independent of where it currently
// stands.
type Monster struct {
	*Actor
	// HomeLocation is the location the monster belongs to per the world
	// definition. Respawn logic (out of scope here) would use it.
	HomeLocation string
}

// NewMonster creates a monster actor at its home location.
//
// Precondition: id and name must be non-empty; stats.MaxHP and
// stats.Speed must be > 0.
func NewMonster(id, name string, stats Stats, homeLocation string, skills []string, defaultSkill string) *Monster {
	return &Monster{
		Actor:        New(id, name, KindMonster, stats, homeLocation, skills, defaultSkill),
		HomeLocation: homeLocation,
	}
}
