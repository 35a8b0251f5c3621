// Package plugin manages Lua plugins that register hook handlers.
//
// Plugins are listed explicitly in configuration; there is no directory
// scanning. Each plugin gets its own sandboxed Lua state and registers
// through the "hooks" module, tagged with its domain.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/config"
	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/hook"
	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/logging"
	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/plugin/lua"
)

// Info describes a loaded plugin.
type Info struct {
	Name     string    `json:"name"`
	Script   string    `json:"script"`
	Domain   string    `json:"domain"`
	Handlers []string  `json:"handlers"`
	LoadedAt time.Time `json:"loaded_at"`
}

type loaded struct {
	cfg      config.PluginConfig
	state    *lua.State
	module   *lua.HookModule
	loadedAt time.Time
}

// Manager manages the lifecycle of all plugins.
type Manager struct {
	mu sync.Mutex

	hooks  *hook.Hooks
	logger *slog.Logger

	// Loaded plugins by name
	plugins map[string]*loaded

	// Plugin load order (for deterministic iteration)
	loadOrder []string

	stateOpts []lua.StateOption
	closed    bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithStateOptions sets the options every plugin state is created with.
func WithStateOptions(opts ...lua.StateOption) ManagerOption {
	return func(m *Manager) {
		m.stateOpts = opts
	}
}

// NewManager creates a plugin manager registering into hooks.
func NewManager(hooks *hook.Hooks, opts ...ManagerOption) *Manager {
	m := &Manager{
		hooks:   hooks,
		logger:  logging.Discard(),
		plugins: make(map[string]*loaded),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.WithComponent(m.logger, "plugin")
	return m
}

// Load creates a state for the plugin, installs the hooks module and runs
// the plugin script. A script that fails leaves nothing registered.
func (m *Manager) Load(ctx context.Context, cfg config.PluginConfig) error {
	if !cfg.IsEnabled() {
		return fmt.Errorf("plugin %q: %w", cfg.Name, ErrPluginDisabled)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	if _, exists := m.plugins[cfg.Name]; exists {
		return fmt.Errorf("plugin %q: %w", cfg.Name, ErrAlreadyLoaded)
	}

	state := lua.NewState(m.stateOpts...)
	module := lua.NewHookModule(m.hooks, state, cfg.Name, cfg.DomainOrName())

	if err := module.Install(); err != nil {
		state.Close()
		return &LoadError{Plugin: cfg.Name, Script: cfg.Script, Err: err}
	}
	if err := state.DoFile(ctx, cfg.Script); err != nil {
		module.Cleanup()
		state.Close()
		m.logger.Error("plugin load failed", "plugin", cfg.Name, "script", cfg.Script, "error", err)
		return &LoadError{Plugin: cfg.Name, Script: cfg.Script, Err: err}
	}

	m.plugins[cfg.Name] = &loaded{
		cfg:      cfg,
		state:    state,
		module:   module,
		loadedAt: time.Now(),
	}
	m.loadOrder = append(m.loadOrder, cfg.Name)

	m.logger.Info("plugin loaded",
		"plugin", cfg.Name,
		"domain", cfg.DomainOrName(),
		"handlers", len(module.Registered()),
	)
	return nil
}

// LoadAll loads every enabled plugin in order. A failing plugin does not
// prevent the others from loading; all failures are returned joined.
func (m *Manager) LoadAll(ctx context.Context, cfgs []config.PluginConfig) error {
	var errs []error
	for _, cfg := range cfgs {
		if !cfg.IsEnabled() {
			m.logger.Debug("plugin disabled", "plugin", cfg.Name)
			continue
		}
		if err := m.Load(ctx, cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unload removes every handler the plugin registered and closes its state.
func (m *Manager) Unload(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.plugins[name]
	if !exists {
		return fmt.Errorf("plugin %q: %w", name, ErrNotLoaded)
	}

	m.unloadLocked(name, p)
	return nil
}

func (m *Manager) unloadLocked(name string, p *loaded) {
	removed := p.module.Cleanup()
	p.state.Close()

	delete(m.plugins, name)
	for i, n := range m.loadOrder {
		if n == name {
			m.loadOrder = append(m.loadOrder[:i], m.loadOrder[i+1:]...)
			break
		}
	}

	m.logger.Info("plugin unloaded", "plugin", name, "handlers", removed)
}

// Get returns information about a loaded plugin.
func (m *Manager) Get(name string) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.plugins[name]
	if !exists {
		return Info{}, false
	}
	return p.info(), true
}

// Loaded returns the loaded plugins in load order.
func (m *Manager) Loaded() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Info, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		out = append(out, m.plugins[name].info())
	}
	return out
}

// Close unloads every plugin in reverse load order. Further loads fail.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for i := len(m.loadOrder) - 1; i >= 0; i-- {
		name := m.loadOrder[i]
		m.unloadLocked(name, m.plugins[name])
	}
	return nil
}

func (p *loaded) info() Info {
	return Info{
		Name:     p.cfg.Name,
		Script:   p.cfg.Script,
		Domain:   p.cfg.DomainOrName(),
		Handlers: p.module.Registered(),
		LoadedAt: p.loadedAt,
	}
}
