package pipeline

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"blurcam/internal/logger"
	"blurcam/internal/model"
	"blurcam/internal/service/ai"
	"blurcam/internal/service/capture"
	"blurcam/internal/service/notify"
	"blurcam/internal/service/output"
)

// ErrAlreadyStarted is returned by Start on a controller that has run.
var ErrAlreadyStarted = errors.New("pipeline already started")

// Deps are the collaborators of a run.
type Deps struct {
	Camera      capture.Opener
	CameraIndex int
	// Device may be nil; the run then paces without a virtual camera.
	Device output.DeviceOpener
	Loader ai.Loader
	Events model.EventSink
	Clock  clock.Clock
	Logger *logger.Logger
}

// Stats is a point-in-time view of a run.
type Stats struct {
	RunID      string    `json:"run_id"`
	State      string    `json:"state"`
	Frames     uint64    `json:"frames"`
	Regions    uint64    `json:"regions"`
	ModelLoads int64     `json:"model_loads"`
	StartedAt  time.Time `json:"started_at"`
}

// Controller runs the capture, detect, redact, publish loop on one worker
// goroutine. A Controller runs once; start a new one for the next run.
type Controller struct {
	deps    Deps
	initial model.PipelineConfig
	configs *notify.Mailbox[model.PipelineConfig]
	logger  *logger.Logger
	runID   string

	started atomic.Bool
	stop    atomic.Bool
	state   atomic.Int32
	status  atomic.String

	frames     atomic.Uint64
	regions    atomic.Uint64
	modelLoads atomic.Int64
	startedAt  atomic.Time

	done chan struct{}
	err  error
}

// NewController prepares a run with cfg. Nothing is opened until Start.
func NewController(cfg model.PipelineConfig, deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Camera == nil {
		deps.Camera = capture.OpenSource
	}
	runID := uuid.NewString()
	return &Controller{
		deps:    deps,
		initial: cfg.Clone(),
		configs: notify.NewMailbox[model.PipelineConfig](1),
		logger:  deps.Logger.Named("pipeline").With("run", runID),
		runID:   runID,
		done:    make(chan struct{}),
	}
}

// Start launches the worker. The run ends on RequestStop, when ctx is
// cancelled, or on a fatal error.
func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	c.startedAt.Store(c.deps.Clock.Now())
	go func() {
		defer close(c.done)
		c.err = c.run(ctx)
	}()
	return nil
}

// RequestStop asks the worker to finish after the current iteration.
func (c *Controller) RequestStop() {
	c.stop.Store(true)
}

// Wait blocks until the run has stopped and returns its fatal error, if any.
// It returns nil for a controller that was never started.
func (c *Controller) Wait() error {
	if !c.started.Load() {
		return nil
	}
	<-c.done
	return c.err
}

// Done is closed when the run has stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// UpdateConfig hands a new snapshot to the worker. Only the latest snapshot
// not yet picked up is kept.
func (c *Controller) UpdateConfig(cfg model.PipelineConfig) {
	c.configs.Put(cfg.Clone())
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Status returns the last status text reported.
func (c *Controller) Status() string {
	return c.status.Load()
}

// RunID identifies this run in logs.
func (c *Controller) RunID() string {
	return c.runID
}

// Stats returns counters for this run.
func (c *Controller) Stats() Stats {
	return Stats{
		RunID:      c.runID,
		State:      c.State().String(),
		Frames:     c.frames.Load(),
		Regions:    c.regions.Load(),
		ModelLoads: c.modelLoads.Load(),
		StartedAt:  c.startedAt.Load(),
	}
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debug("State %s", s)
}

func (c *Controller) report(text string) {
	c.status.Store(text)
	if c.deps.Events != nil {
		c.deps.Events.OnStatus(text)
	}
}

func (c *Controller) stopRequested(ctx context.Context) bool {
	return c.stop.Load() || ctx.Err() != nil
}
