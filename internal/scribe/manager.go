package scribe

import (
	"log/slog"
	"sync"
)

// Manager tracks live controllers, one per connected client.
type Manager struct {
	defaults    Config
	controllers map[string]*Controller
	mu          sync.RWMutex
	log         *slog.Logger
}

// NewManager returns a manager whose controllers inherit defaults. Per-user
// fields are filled in by Create.
func NewManager(defaults Config, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if defaults.Logger == nil {
		defaults.Logger = log
	}
	return &Manager{
		defaults:    defaults,
		controllers: make(map[string]*Controller),
		log:         log.With("component", "scribe_manager"),
	}
}

func (m *Manager) Defaults() Config {
	return m.defaults
}

// Create starts a controller. Zero fields of cfg fall back to the manager
// defaults.
func (m *Manager) Create(cfg Config) *Controller {
	d := m.defaults
	if cfg.Capture == nil {
		cfg.Capture = d.Capture
	}
	if cfg.Recognizer == nil {
		cfg.Recognizer = d.Recognizer
	}
	if cfg.Transcriber == nil {
		cfg.Transcriber = d.Transcriber
	}
	if cfg.Improver == nil {
		cfg.Improver = d.Improver
	}
	if cfg.Synthesizer == nil {
		cfg.Synthesizer = d.Synthesizer
	}
	if cfg.Mode == "" {
		cfg.Mode = d.Mode
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = d.CallTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = d.Logger
	}

	c := NewController(cfg)

	m.mu.Lock()
	m.controllers[c.ID()] = c
	m.mu.Unlock()

	m.log.Info("controller created", "controller_id", c.ID(), "user_id", cfg.UserID, "mode", cfg.Mode)
	return c
}

func (m *Manager) Get(id string) (*Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.controllers[id]
	return c, ok
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	c, ok := m.controllers[id]
	if ok {
		delete(m.controllers, id)
	}
	m.mu.Unlock()

	if c != nil {
		c.Close()
		m.log.Info("controller removed", "controller_id", id)
	}
}

func (m *Manager) ForUser(userID string) []*Controller {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Controller
	for _, c := range m.controllers {
		if c.UserID() == userID {
			out = append(out, c)
		}
	}
	return out
}

func (m *Manager) ForUserCount(userID string) int {
	return len(m.ForUser(userID))
}

// CloseUser closes every controller owned by userID and reports how many
// were closed.
func (m *Manager) CloseUser(userID string) int {
	m.mu.Lock()
	var closing []*Controller
	for id, c := range m.controllers {
		if c.UserID() == userID {
			closing = append(closing, c)
			delete(m.controllers, id)
		}
	}
	m.mu.Unlock()

	for _, c := range closing {
		c.Close()
	}
	if len(closing) > 0 {
		m.log.Info("user controllers closed", "user_id", userID, "count", len(closing))
	}
	return len(closing)
}

type Info struct {
	ControllerID string `json:"controller_id"`
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
	State        State  `json:"state"`
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.controllers)
}

func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.controllers))
	for _, c := range m.controllers {
		snap := c.Current()
		infos = append(infos, Info{
			ControllerID: c.ID(),
			UserID:       c.UserID(),
			SessionID:    snap.SessionID,
			State:        snap.State,
		})
	}
	return infos
}

// StateCounts groups live controllers by their current state.
func (m *Manager) StateCounts() map[State]int {
	counts := make(map[State]int)
	for _, info := range m.List() {
		counts[info.State]++
	}
	return counts
}

func (m *Manager) Shutdown() error {
	m.mu.Lock()
	controllers := make([]*Controller, 0, len(m.controllers))
	for _, c := range m.controllers {
		controllers = append(controllers, c)
	}
	m.controllers = make(map[string]*Controller)
	m.mu.Unlock()

	for _, c := range controllers {
		c.Close()
	}
	return nil
}
