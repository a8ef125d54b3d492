package output

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gocv.io/x/gocv"

	"blurcam/internal/logger"
	"blurcam/internal/model"
)

type fakeDevice struct {
	sent    int
	closed  int
	sendErr error
}

func (d *fakeDevice) Send(gocv.Mat) error {
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent++
	return nil
}

func (d *fakeDevice) Name() string { return "/dev/video10" }

func (d *fakeDevice) Close() error {
	d.closed++
	return nil
}

type recordingEvents struct {
	previews []model.PreviewFrame
}

func (r *recordingEvents) OnStatus(string) {}

func (r *recordingEvents) OnPreviewFrame(f model.PreviewFrame) {
	r.previews = append(r.previews, f)
}

func TestPacerDelay(t *testing.T) {
	mock := clock.NewMock()
	p := NewPacer(mock, 30)
	interval := time.Second / 30

	test.That(t, p.delay(), test.ShouldEqual, time.Duration(0))
	test.That(t, p.delay(), test.ShouldEqual, interval)

	mock.Add(interval + 10*time.Millisecond)
	test.That(t, p.delay(), test.ShouldEqual, interval-10*time.Millisecond)

	// more than a frame behind: restart from now
	mock.Add(5 * interval)
	test.That(t, p.delay(), test.ShouldEqual, time.Duration(0))
	test.That(t, p.delay(), test.ShouldEqual, interval)
}

func TestFallbackInterval(t *testing.T) {
	test.That(t, FallbackInterval(30), test.ShouldEqual, 33*time.Millisecond)
	test.That(t, FallbackInterval(15), test.ShouldEqual, 66*time.Millisecond)
	test.That(t, FallbackInterval(0), test.ShouldEqual, time.Duration(0))
}

func TestPublishWithoutDeviceIsPaced(t *testing.T) {
	events := &recordingEvents{}
	sink := NewSink(nil, events, clock.New(), 30)
	frame := gocv.NewMat()
	defer frame.Close()

	_, ok := sink.DeviceName()
	test.That(t, ok, test.ShouldBeFalse)

	start := time.Now()
	var stamps []time.Time
	for i := 0; i < 3; i++ {
		test.That(t, sink.Publish(frame), test.ShouldBeNil)
		stamps = append(stamps, time.Now())
	}
	test.That(t, time.Since(start), test.ShouldBeGreaterThanOrEqualTo, 99*time.Millisecond)
	for i := 1; i < len(stamps); i++ {
		test.That(t, stamps[i].Sub(stamps[i-1]), test.ShouldBeGreaterThanOrEqualTo, 33*time.Millisecond)
	}

	sink.Preview(model.PreviewFrame{Width: 1, Height: 1, Pix: []byte{1, 2, 3}})
	test.That(t, events.previews, test.ShouldHaveLength, 1)
	test.That(t, sink.Close(), test.ShouldBeNil)
}

func TestPublishToDevice(t *testing.T) {
	device := &fakeDevice{}
	sink := NewSink(device, nil, clock.New(), 1000)
	frame := gocv.NewMat()
	defer frame.Close()

	name, ok := sink.DeviceName()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, name, test.ShouldEqual, "/dev/video10")

	for i := 0; i < 5; i++ {
		test.That(t, sink.Publish(frame), test.ShouldBeNil)
	}
	test.That(t, device.sent, test.ShouldEqual, 5)

	device.sendErr = errors.Wrap(ErrDeviceWrite, "broken pipe")
	err := sink.Publish(frame)
	test.That(t, errors.Is(err, ErrDeviceWrite), test.ShouldBeTrue)

	test.That(t, sink.Close(), test.ShouldBeNil)
	test.That(t, sink.Close(), test.ShouldBeNil)
	test.That(t, device.closed, test.ShouldEqual, 1)
}

func TestOpenMissingDevice(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "video99")
	_, err := OpenFFmpegDevice(context.Background(), "ffmpeg", missing, 1280, 720, 30, logger.NewNop())
	test.That(t, errors.Is(err, ErrVirtualDeviceUnavailable), test.ShouldBeTrue)

	_, err = OpenFFmpegDevice(context.Background(), "ffmpeg", missing, 0, 720, 30, logger.NewNop())
	test.That(t, errors.Is(err, ErrVirtualDeviceUnavailable), test.ShouldBeTrue)
}

func TestFFmpegDeviceSendErrors(t *testing.T) {
	pr, pw := io.Pipe()
	d := &FFmpegDevice{name: "/dev/video10", frameSize: 4 * 2 * 3, writer: pw}

	wrong := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 3, 3, gocv.MatTypeCV8UC3)
	defer wrong.Close()
	err := d.Send(wrong)
	test.That(t, errors.Is(err, ErrDeviceWrite), test.ShouldBeTrue)

	test.That(t, pr.Close(), test.ShouldBeNil)
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 2, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()
	err = d.Send(frame)
	test.That(t, errors.Is(err, ErrDeviceWrite), test.ShouldBeTrue)
}
