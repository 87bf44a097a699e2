package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zoneYAML = `
zone:
  id: sewers
  name: The Sewers
  description: Damp tunnels under the city.
  start_location: gate
  locations:
    - id: gate
      description: |
        A rusted gate blocks the way down.
      exits:
        north: tunnel
    - id: tunnel
      description: A narrow tunnel.
      exits:
        south: gate
`

const monsterYAML = `
monsters:
  - name: Rat
    location: tunnel
    hp: 20
    speed_ms: 800
    attack: 3
    defense: 0
    skills: [bite]
    default_skill: bite
  - name: Slime
    location: gate
    hp: 12
    speed_ms: 1200
    attack: 2
    defense: 1
    default_skill: bite
    count: 2
`

func TestLoadZoneFromBytes(t *testing.T) {
	zone, err := LoadZoneFromBytes([]byte(zoneYAML))
	require.NoError(t, err)

	assert.Equal(t, "sewers", zone.ID)
	assert.Equal(t, "gate", zone.StartLocation)
	require.Len(t, zone.Locations, 2)

	gate := zone.Locations["gate"]
	require.NotNil(t, gate)
	assert.Equal(t, "sewers", gate.ZoneID)
	assert.Equal(t, "A rusted gate blocks the way down.", gate.Description, "description must be trimmed")
	assert.Equal(t, "tunnel", gate.Exits[North])
}

func TestLoadZoneFromBytes_InvalidYAML(t *testing.T) {
	_, err := LoadZoneFromBytes([]byte(":\n :::"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing zone YAML")
}

func TestLoadZoneFromBytes_FailsValidation(t *testing.T) {
	_, err := LoadZoneFromBytes([]byte(`
zone:
  id: broken
  name: Broken
  start_location: missing
  locations:
    - id: only
      description: The only location.
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating zone")
}

func TestLoadZonesFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sewers.yaml"), []byte(zoneYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	zones, err := LoadZonesFromDir(dir)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "sewers", zones[0].ID)
}

func TestLoadZonesFromDir_Empty(t *testing.T) {
	_, err := LoadZonesFromDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no zone files")
}

func TestLoadMonstersFromBytes(t *testing.T) {
	defs, err := LoadMonstersFromBytes([]byte(monsterYAML))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	rat := defs[0]
	assert.Equal(t, "Rat", rat.Name)
	assert.Equal(t, "tunnel", rat.Location)
	assert.Equal(t, 20, rat.HP)
	assert.Equal(t, 800, rat.SpeedMs)
	assert.Equal(t, 1, rat.Count, "count defaults to 1")

	assert.Equal(t, 2, defs[1].Count)
}

func TestLoadMonstersFromBytes_FailsValidation(t *testing.T) {
	_, err := LoadMonstersFromBytes([]byte(`
monsters:
  - name: Ghost
    location: gate
    hp: 0
    speed_ms: 500
    default_skill: wail
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hp must be")
}

func TestLoadMonstersFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roster.yaml"), []byte(monsterYAML), 0o644))

	defs, err := LoadMonstersFromDir(dir)
	require.NoError(t, err)
	assert.Len(t, defs, 2)

	// An empty roster directory is fine: a world may have no monsters.
	defs, err = LoadMonstersFromDir(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, defs)
}
