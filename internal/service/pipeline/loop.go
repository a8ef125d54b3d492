package pipeline

import (
	"context"
	"slices"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"blurcam/internal/model"
	"blurcam/internal/service/ai"
	"blurcam/internal/service/capture"
	"blurcam/internal/service/compositor"
	"blurcam/internal/service/output"
	"blurcam/internal/service/redaction"
)

// runState is everything that lives across iterations of one run. Only the
// worker goroutine touches it.
type runState struct {
	cfg        model.PipelineConfig
	source     capture.Source
	sink       *output.Sink
	engine     *ai.Engine
	compositor *compositor.Compositor
	frame      gocv.Mat
}

func (c *Controller) run(ctx context.Context) (err error) {
	st := &runState{
		cfg:        c.initial,
		engine:     ai.NewEngine(c.deps.Loader, c.logger),
		compositor: compositor.New(),
		frame:      gocv.NewMat(),
	}
	defer func() {
		c.setState(Stopping)
		if releaseErr := c.release(st); releaseErr != nil {
			c.logger.Warning("Release failed: %v", releaseErr)
		}
		if err == nil {
			c.report(StatusStopped)
		}
		c.setState(Stopped)
		c.logger.Info("Run finished after %d frames", c.frames.Load())
	}()

	c.setState(ConnectingCamera)
	c.report(StatusConnecting)
	source, err := c.deps.Camera(c.deps.CameraIndex, st.cfg.Width, st.cfg.Height)
	if err != nil {
		c.logger.Error("Could not open camera %d: %v", c.deps.CameraIndex, err)
		c.report(StatusCameraNotFound)
		return err
	}
	st.source = source
	c.logger.Info("Camera %d opened at %dx%d", c.deps.CameraIndex, st.cfg.Width, st.cfg.Height)

	c.setState(StartingOutput)
	c.report(StatusStartingOutput)
	st.sink = c.openSink(ctx, st.cfg)

	c.setState(Running)
	c.logger.Info("Starting video loop")
	for !c.stopRequested(ctx) {
		if err := c.applyPending(st); err != nil {
			return err
		}
		if err := c.step(st); err != nil {
			return err
		}
	}
	return nil
}

// openSink creates the virtual camera, falling back to a device-less sink.
func (c *Controller) openSink(ctx context.Context, cfg model.PipelineConfig) *output.Sink {
	var device output.Device
	err := errors.Wrap(output.ErrVirtualDeviceUnavailable, "no device configured")
	if c.deps.Device != nil {
		device, err = c.deps.Device(ctx, cfg.Width, cfg.Height, cfg.FPS)
	}
	if err != nil {
		c.logger.Error("Virtual camera error: %v", err)
		c.logger.Warning("Running in GUI-only mode (no virtual camera output)")
		c.report(StatusGUIOnly)
		return output.NewSink(nil, c.deps.Events, c.deps.Clock, cfg.FPS)
	}
	c.logger.Info("Virtual camera active: %s", device.Name())
	c.report(StatusActivePrefix + device.Name())
	return output.NewSink(device, c.deps.Events, c.deps.Clock, cfg.FPS)
}

// applyPending takes the latest config snapshot, if any. Geometry and rate
// stay fixed for the run.
func (c *Controller) applyPending(st *runState) error {
	var next model.PipelineConfig
	select {
	case next = <-c.configs.C():
	default:
		return nil
	}
	next.Width, next.Height, next.FPS = st.cfg.Width, st.cfg.Height, st.cfg.FPS

	prev := st.cfg
	st.cfg = next
	switch {
	case prev.Mode != next.Mode:
		c.logger.Info("Detection mode changed to %s", next.Mode)
		st.engine.Invalidate()
	case next.Mode == model.OpenVocabulary && !slices.Equal(prev.CustomLabels, next.CustomLabels):
		if err := st.engine.SetLabels(next.CustomLabels); err != nil {
			c.logger.Error("Failed to apply custom labels: %v", err)
			c.report(StatusModelLoadFailed)
			return err
		}
	}
	return nil
}

// step processes one frame.
func (c *Controller) step(st *runState) error {
	if err := st.source.Read(&st.frame); err != nil {
		c.logger.Error("Failed to read frame from camera: %v", err)
		c.report(StatusDisconnected)
		return err
	}

	var regions []model.Region
	if st.cfg.AutoRedact {
		mode := st.cfg.DetectionMode()
		if err := st.engine.EnsureLoaded(mode, c.report); err != nil {
			c.report(StatusModelLoadFailed)
			return err
		}
		c.modelLoads.Store(int64(st.engine.Loads()))

		detections, err := st.engine.Infer(st.frame, mode.Kind(), st.cfg.Threshold)
		if err != nil {
			// publishing the frame unredacted is worse than stopping
			c.logger.Error("Detection failed: %v", err)
			c.report(StatusDetectionFailed)
			return err
		}
		regions = redaction.Decide(detections, mode, st.frame.Cols(), st.frame.Rows())
	}

	preview, err := c.compose(st, regions)
	if err != nil {
		c.logger.Error("Redaction failed: %v", err)
		c.report(StatusDetectionFailed)
		return err
	}
	defer preview.Close()

	if err := st.sink.Publish(st.frame); err != nil {
		c.logger.Error("Virtual camera write failed: %v", err)
		c.report(StatusOutputLost)
		return err
	}

	if frame, err := compositor.PreviewFrame(preview); err != nil {
		c.logger.Warning("Failed to build preview frame: %v", err)
	} else {
		st.sink.Preview(frame)
	}

	c.frames.Inc()
	c.regions.Add(uint64(len(regions)))
	return nil
}

// compose redacts st.frame and returns the preview. Annotation failures fall
// back to previewing the redacted frame; only redaction failures are returned.
func (c *Controller) compose(st *runState, regions []model.Region) (gocv.Mat, error) {
	preview, err := st.compositor.Compose(&st.frame, regions, st.cfg.PreviewRaw)
	if err == nil {
		return preview, nil
	}
	preview.Close()
	if errors.Is(err, compositor.ErrRedact) {
		return gocv.Mat{}, err
	}

	c.logger.Warning("Failed to annotate preview: %v", err)
	if err := st.compositor.Redact(&st.frame, regions); err != nil {
		return gocv.Mat{}, err
	}
	return st.frame.Clone(), nil
}

// release closes everything the run opened.
func (c *Controller) release(st *runState) error {
	var err error
	if st.sink != nil {
		err = multierr.Append(err, st.sink.Close())
	}
	if st.source != nil {
		err = multierr.Append(err, st.source.Close())
	}
	err = multierr.Append(err, st.engine.Close())
	err = multierr.Append(err, st.frame.Close())
	return err
}
