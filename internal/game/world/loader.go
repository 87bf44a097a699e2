package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlZoneFile is the top-level YAML structure for zone files.
type yamlZoneFile struct {
	Zone yamlZone `yaml:"zone"`
}

// yamlZone is the YAML representation of a zone.
type yamlZone struct {
	ID            string         `yaml:"id"`
	Name          string         `yaml:"name"`
	Description   string         `yaml:"description"`
	StartLocation string         `yaml:"start_location"`
	Locations     []yamlLocation `yaml:"locations"`
}

// yamlLocation is the YAML representation of a location.
type yamlLocation struct {
	ID          string            `yaml:"id"`
	Description string            `yaml:"description"`
	Exits       map[string]string `yaml:"exits"`
}

// yamlMonsterFile is the top-level YAML structure for monster roster files.
type yamlMonsterFile struct {
	Monsters []yamlMonster `yaml:"monsters"`
}

// yamlMonster is the YAML representation of a roster entry.
type yamlMonster struct {
	Name         string   `yaml:"name"`
	Location     string   `yaml:"location"`
	HP           int      `yaml:"hp"`
	SpeedMs      int      `yaml:"speed_ms"`
	Attack       int      `yaml:"attack"`
	Defense      int      `yaml:"defense"`
	Skills       []string `yaml:"skills"`
	DefaultSkill string   `yaml:"default_skill"`
	Count        int      `yaml:"count"`
}

// LoadZoneFromFile reads and validates a single zone YAML file.
//
// Precondition: path must point to a valid YAML zone file.
// Postcondition: Returns a validated Zone or a non-nil error.
func LoadZoneFromFile(path string) (*Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading zone file %s: %w", path, err)
	}
	zone, err := LoadZoneFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading zone from %s: %w", path, err)
	}
	return zone, nil
}

// LoadZoneFromBytes parses and validates a zone from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the zone schema.
// Postcondition: Returns a validated Zone or a non-nil error.
func LoadZoneFromBytes(data []byte) (*Zone, error) {
	var file yamlZoneFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing zone YAML: %w", err)
	}

	zone := convertYAMLZone(file.Zone)
	if err := zone.Validate(); err != nil {
		return nil, fmt.Errorf("validating zone: %w", err)
	}
	return zone, nil
}

// LoadZonesFromDir loads all YAML files in a directory as zones.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated zones or the first error encountered.
func LoadZonesFromDir(dir string) ([]*Zone, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading zone directory %s: %w", dir, err)
	}

	var zones []*Zone
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		zone, err := LoadZoneFromFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		zones = append(zones, zone)
	}

	if len(zones) == 0 {
		return nil, fmt.Errorf("no zone files found in %s", dir)
	}
	return zones, nil
}

// LoadMonstersFromBytes parses and validates a monster roster from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the roster schema.
// Postcondition: Returns validated roster entries or a non-nil error.
func LoadMonstersFromBytes(data []byte) ([]MonsterDef, error) {
	var file yamlMonsterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing monster YAML: %w", err)
	}

	defs := make([]MonsterDef, 0, len(file.Monsters))
	for _, ym := range file.Monsters {
		def := MonsterDef{
			Name:         ym.Name,
			Location:     ym.Location,
			HP:           ym.HP,
			SpeedMs:      ym.SpeedMs,
			Attack:       ym.Attack,
			Defense:      ym.Defense,
			Skills:       ym.Skills,
			DefaultSkill: ym.DefaultSkill,
			Count:        ym.Count,
		}
		if def.Count == 0 {
			def.Count = 1
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadMonstersFromDir loads all YAML files in a directory as monster rosters.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated roster entries; an empty directory
// yields an empty roster, not an error.
func LoadMonstersFromDir(dir string) ([]MonsterDef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading monster directory %s: %w", dir, err)
	}

	var defs []MonsterDef
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading monster file %s: %w", entry.Name(), err)
		}
		fileDefs, err := LoadMonstersFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading monsters from %s: %w", entry.Name(), err)
		}
		defs = append(defs, fileDefs...)
	}
	return defs, nil
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// convertYAMLZone converts the parsed YAML structures into domain types.
func convertYAMLZone(yz yamlZone) *Zone {
	zone := &Zone{
		ID:            yz.ID,
		Name:          yz.Name,
		Description:   yz.Description,
		StartLocation: yz.StartLocation,
		Locations:     make(map[string]*Location, len(yz.Locations)),
	}

	for _, yl := range yz.Locations {
		loc := &Location{
			ID:          yl.ID,
			ZoneID:      yz.ID,
			Description: strings.TrimSpace(yl.Description),
			Exits:       make(map[Direction]string, len(yl.Exits)),
		}
		for dir, target := range yl.Exits {
			loc.Exits[Direction(dir)] = target
		}
		zone.Locations[loc.ID] = loc
	}
	return zone
}
