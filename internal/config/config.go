// Package config provides Viper-based configuration loading for the
// muddy server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// NatsConfig holds the gateway transport settings.
type NatsConfig struct {
	// Embedded runs an in-process NATS server instead of dialling URL.
	Embedded bool `mapstructure:"embedded"`
	// Host is the bind address for the embedded server.
	Host string `mapstructure:"host"`
	// Port is the client port for the embedded server.
	Port int `mapstructure:"port"`
	// URL is the server to dial when not embedded.
	URL string `mapstructure:"url"`
	// SubjectPrefix namespaces every gateway subject.
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// Addr returns the "host:port" bind address for the embedded server.
func (n NatsConfig) Addr() string {
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

// ClientURL returns the URL clients and the server itself connect to.
func (n NatsConfig) ClientURL() string {
	if n.Embedded {
		return fmt.Sprintf("nats://%s:%d", n.Host, n.Port)
	}
	return n.URL
}

// TelnetConfig holds the telnet frontend listener settings.
type TelnetConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ReadTimeout bounds how long a client may idle between lines.
	// Zero disables the idle timeout.
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// AuthConfig holds credential verification settings.
type AuthConfig struct {
	// Mode is the credential scheme: "bcrypt" or "connection-bound".
	Mode string `mapstructure:"mode"`
}

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	// Backend is "file" or "postgres".
	Backend string `mapstructure:"backend"`
	// PlayersFile is the players JSON path for the file backend.
	PlayersFile string `mapstructure:"players_file"`
	// CredentialsFile is the credentials JSON path for the file backend.
	CredentialsFile string `mapstructure:"credentials_file"`
}

// GameConfig holds content paths, cadence intervals, and new-player
// defaults.
type GameConfig struct {
	// ZoneDir holds the zone YAML definitions.
	ZoneDir string `mapstructure:"zone_dir"`
	// MonsterDir holds the monster roster YAML definitions.
	MonsterDir string `mapstructure:"monster_dir"`
	// ScriptDir holds the death-hook Lua scripts. Empty disables scripting.
	ScriptDir string `mapstructure:"script_dir"`
	// ScriptInstructionLimit caps Lua opcodes per hook call. Zero uses
	// the scripting package default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`

	// PushInterval is the per-session location/stats push cadence.
	PushInterval time.Duration `mapstructure:"push_interval"`
	// StatusInterval is the per-encounter status/death-check cadence.
	StatusInterval time.Duration `mapstructure:"status_interval"`
	// HintInterval is the server-wide hint broadcast cadence.
	HintInterval time.Duration `mapstructure:"hint_interval"`
	// HintText is the broadcast hint line.
	HintText string `mapstructure:"hint_text"`
	// RegenInterval is the passive recovery cadence.
	RegenInterval time.Duration `mapstructure:"regen_interval"`
	// RegenAmount is the HP restored per recovery tick.
	RegenAmount int `mapstructure:"regen_amount"`

	// StartLocation is where new players spawn.
	StartLocation string `mapstructure:"start_location"`
	// PlayerMaxHP, PlayerSpeed, PlayerAttack, and PlayerDefense are the
	// stats of a freshly registered player.
	PlayerMaxHP   int           `mapstructure:"player_max_hp"`
	PlayerSpeed   time.Duration `mapstructure:"player_speed"`
	PlayerAttack  int           `mapstructure:"player_attack"`
	PlayerDefense int           `mapstructure:"player_defense"`
	// PlayerSkills are the skills a new player knows.
	PlayerSkills []string `mapstructure:"player_skills"`
	// PlayerDefaultSkill is used when a fight intent names no skill.
	PlayerDefaultSkill string `mapstructure:"player_default_skill"`
}

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Nats     NatsConfig     `mapstructure:"nats"`
	Telnet   TelnetConfig   `mapstructure:"telnet"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Game     GameConfig     `mapstructure:"game"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error
// describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Storage.Backend == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateNats(c.Nats); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateTelnet(c.Telnet); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateAuth(c.Auth); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateNats(n NatsConfig) error {
	var errs []string
	if n.Embedded {
		if n.Port < 1 || n.Port > 65535 {
			errs = append(errs, fmt.Sprintf("nats.port must be 1-65535, got %d", n.Port))
		}
	} else if n.URL == "" {
		errs = append(errs, "nats.url must not be empty when nats.embedded is false")
	}
	if n.SubjectPrefix == "" {
		errs = append(errs, "nats.subject_prefix must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	// Port 0 lets the OS pick an ephemeral port.
	if t.Port < 0 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 0-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateAuth(a AuthConfig) error {
	switch a.Mode {
	case "", "bcrypt", "connection-bound":
		return nil
	}
	return fmt.Errorf("auth.mode must be one of [bcrypt, connection-bound], got %q", a.Mode)
}

func validateStorage(s StorageConfig) error {
	switch s.Backend {
	case "file":
		var errs []string
		if s.PlayersFile == "" {
			errs = append(errs, "storage.players_file must not be empty")
		}
		if s.CredentialsFile == "" {
			errs = append(errs, "storage.credentials_file must not be empty")
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	case "postgres":
		return nil
	}
	return fmt.Errorf("storage.backend must be one of [file, postgres], got %q", s.Backend)
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.ZoneDir == "" {
		errs = append(errs, "game.zone_dir must not be empty")
	}
	if g.PushInterval <= 0 {
		errs = append(errs, "game.push_interval must be positive")
	}
	if g.StatusInterval <= 0 {
		errs = append(errs, "game.status_interval must be positive")
	}
	if g.HintInterval <= 0 {
		errs = append(errs, "game.hint_interval must be positive")
	}
	if g.RegenInterval <= 0 {
		errs = append(errs, "game.regen_interval must be positive")
	}
	if g.RegenAmount < 1 {
		errs = append(errs, fmt.Sprintf("game.regen_amount must be >= 1, got %d", g.RegenAmount))
	}
	if g.StartLocation == "" {
		errs = append(errs, "game.start_location must not be empty")
	}
	if g.PlayerMaxHP < 1 {
		errs = append(errs, fmt.Sprintf("game.player_max_hp must be >= 1, got %d", g.PlayerMaxHP))
	}
	if g.PlayerSpeed <= 0 {
		errs = append(errs, "game.player_speed must be positive")
	}
	if g.PlayerDefaultSkill == "" {
		errs = append(errs, "game.player_default_skill must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies
// environment variable overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with MUDDY_ prefix
	v.SetEnvPrefix("MUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper
// instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "muddy")
	v.SetDefault("database.password", "muddy")
	v.SetDefault("database.name", "muddy")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("nats.embedded", true)
	v.SetDefault("nats.host", "127.0.0.1")
	v.SetDefault("nats.port", 4222)
	v.SetDefault("nats.subject_prefix", "muddy")

	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "0")
	v.SetDefault("telnet.write_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("auth.mode", "bcrypt")

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.players_file", "data/players.json")
	v.SetDefault("storage.credentials_file", "data/credentials.json")

	v.SetDefault("game.zone_dir", "content/world")
	v.SetDefault("game.monster_dir", "content/monsters")
	v.SetDefault("game.push_interval", "1s")
	v.SetDefault("game.status_interval", "500ms")
	v.SetDefault("game.hint_interval", "60s")
	v.SetDefault("game.hint_text", "Type 'fight <target>' to attack a monster in your location.")
	v.SetDefault("game.regen_interval", "3s")
	v.SetDefault("game.regen_amount", 1)
	v.SetDefault("game.start_location", "gate")
	v.SetDefault("game.player_max_hp", 30)
	v.SetDefault("game.player_speed", "1500ms")
	v.SetDefault("game.player_attack", 5)
	v.SetDefault("game.player_defense", 2)
	v.SetDefault("game.player_skills", []string{"punch", "kick"})
	v.SetDefault("game.player_default_skill", "punch")
}
