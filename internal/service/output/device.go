package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/atomic"
	"gocv.io/x/gocv"

	"blurcam/internal/logger"
)

var (
	// ErrVirtualDeviceUnavailable is returned when the virtual camera cannot be created.
	ErrVirtualDeviceUnavailable = errors.New("virtual camera unavailable")
	// ErrDeviceWrite is returned when a frame cannot be delivered to a created device.
	ErrDeviceWrite = errors.New("virtual camera write failed")
)

// startupGrace is how long ffmpeg gets to reject the device before it counts as created.
const startupGrace = 300 * time.Millisecond

// Device is a virtual camera that accepts full BGR frames.
type Device interface {
	Send(frame gocv.Mat) error
	Name() string
	Close() error
}

// DeviceOpener creates a virtual camera with a fixed geometry and rate.
type DeviceOpener func(ctx context.Context, width, height, fps int) (Device, error)

// FFmpegDevice feeds raw bgr24 frames through an ffmpeg process into a
// v4l2loopback node, converted to yuv420p.
type FFmpegDevice struct {
	name      string
	frameSize int

	writer *io.PipeWriter
	cancel context.CancelFunc
	done   chan struct{}
	runErr *atomic.Error

	closeOnce sync.Once
	closeErr  error
}

// FFmpegOpener returns a DeviceOpener writing to the v4l2 node at device.
func FFmpegOpener(ffmpegPath, device string, logger *logger.Logger) DeviceOpener {
	return func(ctx context.Context, width, height, fps int) (Device, error) {
		d, err := OpenFFmpegDevice(ctx, ffmpegPath, device, width, height, fps, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

// OpenFFmpegDevice starts ffmpeg writing to device. It fails with
// ErrVirtualDeviceUnavailable when ffmpeg or the node is missing, or when
// ffmpeg exits during startup.
func OpenFFmpegDevice(ctx context.Context, ffmpegPath, device string, width, height, fps int, logger *logger.Logger) (*FFmpegDevice, error) {
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, errors.Wrapf(ErrVirtualDeviceUnavailable, "invalid geometry %dx%d@%d", width, height, fps)
	}
	path, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, errors.Wrapf(ErrVirtualDeviceUnavailable, "ffmpeg not found: %v", err)
	}
	if _, err := os.Stat(device); err != nil {
		return nil, errors.Wrapf(ErrVirtualDeviceUnavailable, "device %s: %v", device, err)
	}

	reader, writer := io.Pipe()
	runCtx, cancel := context.WithCancel(ctx)
	d := &FFmpegDevice{
		name:      device,
		frameSize: width * height * 3,
		writer:    writer,
		cancel:    cancel,
		done:      make(chan struct{}),
		runErr:    atomic.NewError(nil),
	}

	stream := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "bgr24",
		"s":         fmt.Sprintf("%dx%d", width, height),
		"framerate": fps,
	}).Output(device, ffmpeg.KwArgs{
		"format":  "v4l2",
		"pix_fmt": "yuv420p",
	}).WithInput(reader)
	stream.Context = runCtx

	go func() {
		defer close(d.done)
		err := stream.Run(ffmpeg.SetFfmpegPath(path))
		if err == nil {
			err = errors.New("ffmpeg exited")
		}
		d.runErr.Store(err)
		reader.CloseWithError(err)
	}()

	select {
	case <-d.done:
		cancel()
		return nil, errors.Wrapf(ErrVirtualDeviceUnavailable, "ffmpeg: %v", d.runErr.Load())
	case <-time.After(startupGrace):
	}

	logger.Info("Virtual camera started on %s (%dx%d @ %d fps)", device, width, height, fps)
	return d, nil
}

// Name returns the device node.
func (d *FFmpegDevice) Name() string {
	return d.name
}

// Send writes one frame; it blocks while ffmpeg is behind.
func (d *FFmpegDevice) Send(frame gocv.Mat) error {
	data := frame.ToBytes()
	if len(data) != d.frameSize {
		return errors.Wrapf(ErrDeviceWrite, "%s: frame is %d bytes, device expects %d", d.name, len(data), d.frameSize)
	}
	if _, err := d.writer.Write(data); err != nil {
		return errors.Wrapf(ErrDeviceWrite, "%s: %v", d.name, err)
	}
	return nil
}

// Close stops ffmpeg. It is safe to call more than once.
func (d *FFmpegDevice) Close() error {
	d.closeOnce.Do(func() {
		err := d.writer.Close()
		select {
		case <-d.done:
		case <-time.After(2 * time.Second):
			d.cancel()
			<-d.done
		}
		d.cancel()
		d.closeErr = err
	})
	return d.closeErr
}

var _ Device = (*FFmpegDevice)(nil)

