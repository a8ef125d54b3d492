package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"blurcam/internal/logger"
	"blurcam/internal/service/notify"
	"blurcam/internal/service/pipeline"
	"blurcam/internal/service/websocket"
	"blurcam/internal/settings"
)

// ErrAlreadyRunning is returned by Start while a run is active.
var ErrAlreadyRunning = errors.New("pipeline already running")

// Manager owns the pipeline runs of the process: it starts a fresh
// controller per run, forwards settings changes to the active one and
// publishes status to control clients.
type Manager struct {
	ctx      context.Context
	settings *settings.Store
	deps     pipeline.Deps
	hub      *websocket.HubService
	logger   *logger.Logger

	mu      sync.Mutex
	current *pipeline.Controller
	status  string
	last    pipeline.Stats
}

// NewManager returns a Manager whose runs live no longer than ctx. Events
// in deps, if set, receive pipeline events alongside the hub.
func NewManager(ctx context.Context, store *settings.Store, deps pipeline.Deps, hub *websocket.HubService, logger *logger.Logger) *Manager {
	m := &Manager{
		ctx:      ctx,
		settings: store,
		hub:      hub,
		logger:   logger,
		status:   pipeline.StatusStopped,
	}
	sinks := notify.Multi{hub, notify.StatusFunc(m.setStatus)}
	if deps.Events != nil {
		sinks = append(sinks, deps.Events)
	}
	deps.Events = sinks
	if deps.Logger == nil {
		deps.Logger = logger
	}
	m.deps = deps
	return m
}

// Start begins a run with the current settings.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && !isDone(m.current) {
		return ErrAlreadyRunning
	}

	c := pipeline.NewController(m.settings.Get().PipelineConfig(), m.deps)
	if err := c.Start(m.ctx); err != nil {
		return err
	}
	m.current = c
	m.logger.Info("Pipeline run %s started", c.RunID())

	go func() {
		err := c.Wait()
		m.mu.Lock()
		m.last = c.Stats()
		m.mu.Unlock()
		if err != nil {
			m.logger.Error("Pipeline run %s ended: %v", c.RunID(), err)
			return
		}
		m.logger.Info("Pipeline run %s stopped", c.RunID())
	}()
	return nil
}

// Stop ends the active run and waits for it to release its resources.
func (m *Manager) Stop() {
	m.mu.Lock()
	c := m.current
	m.mu.Unlock()
	if c == nil {
		return
	}
	c.RequestStop()
	_ = c.Wait()
}

// Running reports whether a run is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && !isDone(m.current)
}

// Status returns the latest status text.
func (m *Manager) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Stats returns counters of the active run, or of the last finished one.
func (m *Manager) Stats() pipeline.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && !isDone(m.current) {
		return m.current.Stats()
	}
	return m.last
}

// Settings returns the settings store.
func (m *Manager) Settings() *settings.Store {
	return m.settings
}

// GetWebsocketService returns the control event hub.
func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hub
}

// ApplySettings pushes new settings to the active run and to control clients.
func (m *Manager) ApplySettings(s settings.Settings) {
	m.mu.Lock()
	c := m.current
	m.mu.Unlock()
	if c != nil && !isDone(c) {
		c.UpdateConfig(s.PipelineConfig())
	}
	m.hub.Publish(websocket.Event{Type: websocket.EventSettings, Settings: s})
}

func (m *Manager) setStatus(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = text
}

func isDone(c *pipeline.Controller) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}
