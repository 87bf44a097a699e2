package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// deathHook is the Lua global invoked when a monster dies.
const deathHook = "on_death"

// Manager owns one sandboxed VM holding every loaded death script and
// dispatches hook calls into it. The mutex serializes calls; an LState
// is single-threaded and deaths can happen on concurrent encounter
// cadences.
type Manager struct {
	mu        sync.Mutex
	state     *lua.LState
	cancel    context.CancelFunc
	instLimit int
	logger    *zap.Logger

	// Announce, when set, lets scripts broadcast a line to every
	// connection via engine.announce(text).
	Announce func(text string)
}

// NewManager creates a Manager with no scripts loaded. Hook calls on an
// empty manager are no-ops.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Load builds a fresh sandboxed VM, registers the engine module, and
// executes every *.lua file in scriptDir in lexicographic order,
// replacing any previously loaded VM.
//
// Precondition: scriptDir must be a readable directory.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.registerEngine(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	if m.state != nil {
		m.cancel()
		m.state.Close()
	}
	m.state = L
	m.cancel = cancel
	m.instLimit = instLimit
	m.mu.Unlock()

	m.logger.Info("death scripts loaded",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)))
	return nil
}

// OnDeath calls the on_death(name, id, location) Lua global, if
// defined. Lua runtime errors are logged at Warn level and never
// propagated; a monster death must not fail because a script did.
func (m *Manager) OnDeath(name, id, locationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		return
	}
	L := m.state
	fn := L.GetGlobal(deathHook)
	if fn == lua.LNil {
		return
	}

	// Each call gets a fresh opcode budget.
	ctx, cancel := newCountingContext(m.budget())
	m.cancel()
	m.cancel = cancel
	L.SetContext(ctx)

	err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LString(name), lua.LString(id), lua.LString(locationID))
	if err != nil {
		m.logger.Warn("death script error",
			zap.String("monster", id),
			zap.Error(err))
	}
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		m.cancel()
		m.state.Close()
		m.state = nil
	}
}

func (m *Manager) budget() int {
	if m.instLimit <= 0 {
		return DefaultInstructionLimit
	}
	return m.instLimit
}

// registerEngine registers the engine.* Lua table.
func (m *Manager) registerEngine(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "announce", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		if m.Announce != nil {
			m.Announce(text)
		}
		return 0
	}))
	L.SetField(engine, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Info("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	L.SetGlobal("engine", engine)
}
