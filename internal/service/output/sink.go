package output

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"gocv.io/x/gocv"

	"blurcam/internal/model"
)

// Sink publishes primary frames to the virtual device and previews to the
// event sink. Without a device it only paces.
type Sink struct {
	device   Device
	events   model.EventSink
	clock    clock.Clock
	pacer    *Pacer
	fallback time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewSink returns a Sink for one run. device may be nil.
func NewSink(device Device, events model.EventSink, clk clock.Clock, fps int) *Sink {
	return &Sink{
		device:   device,
		events:   events,
		clock:    clk,
		pacer:    NewPacer(clk, fps),
		fallback: FallbackInterval(fps),
	}
}

// Publish sends frame to the device and waits for the next frame slot.
// Without a device it sleeps the fallback interval instead.
func (s *Sink) Publish(frame gocv.Mat) error {
	if s.device == nil {
		s.clock.Sleep(s.fallback)
		return nil
	}
	if err := s.device.Send(frame); err != nil {
		return err
	}
	s.pacer.Wait()
	return nil
}

// Preview forwards a preview frame to the event sink.
func (s *Sink) Preview(frame model.PreviewFrame) {
	if s.events != nil {
		s.events.OnPreviewFrame(frame)
	}
}

// DeviceName returns the device node, if a device is attached.
func (s *Sink) DeviceName() (string, bool) {
	if s.device == nil {
		return "", false
	}
	return s.device.Name(), true
}

// Close releases the device once.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		if s.device != nil {
			s.closeErr = s.device.Close()
		}
	})
	return s.closeErr
}
