// Package capture owns the physical camera handle.
package capture

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

var (
	// ErrDeviceNotFound is returned when the camera cannot be opened.
	ErrDeviceNotFound = errors.New("camera not found")
	// ErrReadFailed is returned when a frame cannot be read from an open camera.
	ErrReadFailed = errors.New("camera read failed")
)

// Source produces BGR frames at a fixed resolution.
type Source interface {
	// Read fills dst with the next frame. Errors are not retryable.
	Read(dst *gocv.Mat) error
	Close() error
}

// Opener opens a Source for a device at the requested resolution.
type Opener func(deviceIndex, width, height int) (Source, error)

// Camera reads frames from a local video device through OpenCV.
type Camera struct {
	device  int
	size    image.Point
	capture *gocv.VideoCapture
	raw     gocv.Mat

	closeOnce sync.Once
	closeErr  error
}

// Open opens video device deviceIndex and asks it for width x height frames.
// Frames are resized to that size regardless of what the device delivers.
func Open(deviceIndex, width, height int) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(deviceIndex)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceNotFound, "device %d: %v", deviceIndex, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Wrapf(ErrDeviceNotFound, "device %d", deviceIndex)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(height))

	return &Camera{
		device:  deviceIndex,
		size:    image.Pt(width, height),
		capture: vc,
		raw:     gocv.NewMat(),
	}, nil
}

// OpenSource adapts Open to the Opener signature.
func OpenSource(deviceIndex, width, height int) (Source, error) {
	c, err := Open(deviceIndex, width, height)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Read implements Source.
func (c *Camera) Read(dst *gocv.Mat) error {
	if ok := c.capture.Read(&c.raw); !ok || c.raw.Empty() {
		return errors.Wrapf(ErrReadFailed, "device %d", c.device)
	}
	if err := fit(c.raw, dst, c.size); err != nil {
		return errors.Wrapf(ErrReadFailed, "device %d: %v", c.device, err)
	}
	return nil
}

// Close releases the device. It is safe to call more than once.
func (c *Camera) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = multierr.Combine(c.capture.Close(), c.raw.Close())
	})
	return c.closeErr
}

// fit copies src into dst, resizing when the sizes differ.
func fit(src gocv.Mat, dst *gocv.Mat, size image.Point) error {
	if src.Cols() == size.X && src.Rows() == size.Y {
		return src.CopyTo(dst)
	}
	return gocv.Resize(src, dst, size, 0, 0, gocv.InterpolationLinear)
}
