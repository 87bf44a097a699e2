package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func loadedManager(t *testing.T, body string) *Manager {
	t.Helper()
	dir := t.TempDir()
	writeScript(t, dir, "death.lua", body)
	m := NewManager(zap.NewNop())
	require.NoError(t, m.Load(dir, 0))
	t.Cleanup(m.Close)
	return m
}

func TestOnDeath_CallsHook(t *testing.T) {
	m := loadedManager(t, `
		deaths = {}
		function on_death(name, id, location)
			deaths[#deaths + 1] = name .. "@" .. location
		end
	`)

	m.OnDeath("Rat", "rat-gate-1", "gate")
	m.OnDeath("Bat", "bat-cave-1", "cave")

	m.mu.Lock()
	L := m.state
	got := L.GetGlobal("deaths")
	n := L.ObjLen(got)
	m.mu.Unlock()
	assert.Equal(t, 2, n)
}

func TestOnDeath_NoHookDefinedIsNoOp(t *testing.T) {
	m := loadedManager(t, `x = 1`)
	m.OnDeath("Rat", "rat-gate-1", "gate")
}

func TestOnDeath_EmptyManagerIsNoOp(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.OnDeath("Rat", "rat-gate-1", "gate")
}

func TestOnDeath_AnnounceReachesCallback(t *testing.T) {
	m := loadedManager(t, `
		function on_death(name, id, location)
			engine.announce(name .. " has been slain!")
		end
	`)

	var announced []string
	m.Announce = func(text string) { announced = append(announced, text) }

	m.OnDeath("Rat", "rat-gate-1", "gate")
	require.Len(t, announced, 1)
	assert.Equal(t, "Rat has been slain!", announced[0])
}

func TestOnDeath_RuntimeErrorDoesNotPropagate(t *testing.T) {
	m := loadedManager(t, `
		function on_death(name, id, location)
			error("boom")
		end
	`)
	m.OnDeath("Rat", "rat-gate-1", "gate")
}

func TestOnDeath_RunawayScriptIsTerminated(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "death.lua", `
		function on_death(name, id, location)
			while true do end
		end
	`)
	m := NewManager(zap.NewNop())
	require.NoError(t, m.Load(dir, 10_000))
	t.Cleanup(m.Close)

	// Must return rather than spin forever.
	m.OnDeath("Rat", "rat-gate-1", "gate")
}

func TestLoad_BadScriptFails(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "bad.lua", `function broken(`)
	m := NewManager(zap.NewNop())
	assert.Error(t, m.Load(dir, 0))
}

func TestLoad_MissingDirFails(t *testing.T) {
	m := NewManager(zap.NewNop())
	assert.Error(t, m.Load(filepath.Join(t.TempDir(), "absent"), 0))
}

func TestSandbox_DangerousGlobalsRemoved(t *testing.T) {
	L, cancel := NewSandboxedState(0)
	defer func() {
		cancel()
		L.Close()
	}()

	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, "nil", L.GetGlobal(name).Type().String(), name)
	}
}
