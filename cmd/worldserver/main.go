// Package main provides the world server binary: it loads the world,
// wires the game subsystems to the NATS gateway, and serves player
// intents until shut down.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/cory-johannsen/muddy/internal/auth"
	"github.com/cory-johannsen/muddy/internal/config"
	"github.com/cory-johannsen/muddy/internal/game/actor"
	"github.com/cory-johannsen/muddy/internal/game/combat"
	"github.com/cory-johannsen/muddy/internal/game/recovery"
	"github.com/cory-johannsen/muddy/internal/game/session"
	"github.com/cory-johannsen/muddy/internal/game/world"
	"github.com/cory-johannsen/muddy/internal/gameserver"
	"github.com/cory-johannsen/muddy/internal/gateway"
	"github.com/cory-johannsen/muddy/internal/observability"
	"github.com/cory-johannsen/muddy/internal/scripting"
	"github.com/cory-johannsen/muddy/internal/server"
	"github.com/cory-johannsen/muddy/internal/storage"
	filestore "github.com/cory-johannsen/muddy/internal/storage/file"
	"github.com/cory-johannsen/muddy/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	// Load world
	worldStart := time.Now()
	zones, err := world.LoadZonesFromDir(cfg.Game.ZoneDir)
	if err != nil {
		logger.Fatal("loading zones", zap.Error(err))
	}
	worldStore, err := world.NewStore(zones)
	if err != nil {
		logger.Fatal("building world store", zap.Error(err))
	}
	logger.Info("world loaded",
		zap.Int("zones", len(zones)),
		zap.Int("locations", worldStore.LocationCount()),
		zap.Duration("elapsed", time.Since(worldStart)),
	)

	// Populate monsters
	if cfg.Game.MonsterDir != "" {
		defs, err := world.LoadMonstersFromDir(cfg.Game.MonsterDir)
		if err != nil {
			logger.Fatal("loading monster roster", zap.Error(err))
		}
		spawned := 0
		for _, def := range defs {
			count := def.Count
			if count < 1 {
				count = 1
			}
			for i := 0; i < count; i++ {
				if _, err := worldStore.Spawn(def); err != nil {
					logger.Fatal("spawning monster",
						zap.String("name", def.Name),
						zap.String("location", def.Location),
						zap.Error(err))
				}
				spawned++
			}
		}
		logger.Info("monsters spawned", zap.Int("count", spawned))
	}

	// Open persistence backend
	var store storage.Store
	switch cfg.Storage.Backend {
	case "postgres":
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		store = postgres.NewStore(pool)
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
	default:
		store, err = filestore.NewStore(cfg.Storage.PlayersFile, cfg.Storage.CredentialsFile)
		if err != nil {
			logger.Fatal("opening file store", zap.Error(err))
		}
		logger.Info("file store opened",
			zap.String("players", cfg.Storage.PlayersFile),
			zap.String("credentials", cfg.Storage.CredentialsFile),
		)
	}
	defer store.Close()

	mode, err := auth.ParseMode(cfg.Auth.Mode)
	if err != nil {
		logger.Fatal("resolving auth mode", zap.Error(err))
	}
	verifier := auth.NewVerifier(mode, store)

	// Start NATS: embedded by default, external when configured.
	var embedded *gateway.Embedded
	natsURL := cfg.Nats.ClientURL()
	if cfg.Nats.Embedded {
		embedded, err = gateway.StartEmbedded(cfg.Nats.Host, cfg.Nats.Port)
		if err != nil {
			logger.Fatal("starting embedded nats server", zap.Error(err))
		}
		natsURL = embedded.ClientURL()
		logger.Info("embedded nats server ready", zap.String("url", natsURL))
	}
	conn, err := nats.Connect(natsURL, nats.Name("muddy-worldserver"))
	if err != nil {
		logger.Fatal("connecting to nats", zap.String("url", natsURL), zap.Error(err))
	}
	out := gateway.NewNATS(conn, cfg.Nats.SubjectPrefix, logger)

	// Game subsystems
	regen := recovery.NewEngine(cfg.Game.RegenInterval, cfg.Game.RegenAmount)

	scripts := scripting.NewManager(logger)
	if cfg.Game.ScriptDir != "" {
		if err := scripts.Load(cfg.Game.ScriptDir, cfg.Game.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading death scripts", zap.Error(err))
		}
		scripts.Announce = func(text string) {
			out.Broadcast(gateway.ChannelAll, gateway.Notice{Text: text})
		}
	}

	coordinator := combat.NewCoordinator(combat.Config{
		World:          worldStore,
		Recovery:       regen,
		Out:            out,
		StatusInterval: cfg.Game.StatusInterval,
		OnDeath: func(m *actor.Monster, locationID string) {
			scripts.OnDeath(m.Name(), m.ID(), locationID)
		},
		Logger: logger,
	})

	sessions := session.NewRegistry(session.Config{
		World:        worldStore,
		Players:      store,
		Verifier:     verifier,
		Recovery:     regen,
		Out:          out,
		PushInterval: cfg.Game.PushInterval,
		Defaults: session.Defaults{
			Stats: actor.Stats{
				MaxHP:   cfg.Game.PlayerMaxHP,
				Speed:   cfg.Game.PlayerSpeed,
				Attack:  cfg.Game.PlayerAttack,
				Defense: cfg.Game.PlayerDefense,
			},
			Skills:        cfg.Game.PlayerSkills,
			DefaultSkill:  cfg.Game.PlayerDefaultSkill,
			StartLocation: cfg.Game.StartLocation,
		},
		Logger: logger,
	})
	if err := sessions.Hydrate(ctx); err != nil {
		logger.Fatal("hydrating players", zap.Error(err))
	}

	srv := gameserver.New(gameserver.Config{
		Sessions:     sessions,
		Combat:       coordinator,
		World:        worldStore,
		Out:          out,
		HintInterval: cfg.Game.HintInterval,
		HintText:     cfg.Game.HintText,
		Logger:       logger,
	})

	// Wire lifecycle. Stop order is the reverse of Add order: game
	// subsystems first, then the gateway, then the transport.
	lifecycle := server.NewLifecycle(logger)

	if embedded != nil {
		lifecycle.Add("nats", &server.FuncService{
			StartFn: func() error { return nil },
			StopFn:  func() { embedded.Shutdown() },
		})
	}

	done := make(chan struct{})
	lifecycle.Add("gateway", &server.FuncService{
		StartFn: func() error {
			if err := out.Serve(ctx, srv.Handle); err != nil {
				return err
			}
			srv.StartHints()
			logger.Info("gateway serving",
				zap.String("prefix", cfg.Nats.SubjectPrefix),
				zap.Duration("startup", time.Since(start)),
			)
			<-done
			return nil
		},
		StopFn: func() {
			srv.Stop()
			out.Stop()
			conn.Close()
			close(done)
		},
	})

	lifecycle.Add("game", &server.FuncService{
		StartFn: func() error { return nil },
		StopFn: func() {
			coordinator.Close()
			sessions.Close(ctx)
			regen.Close()
			scripts.Close()
		},
	})

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
