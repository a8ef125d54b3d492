package ui

import (
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"gocv.io/x/gocv"

	"blurcam/internal/logger"
	"blurcam/internal/model"
	"blurcam/internal/settings"
)

type fakeControls struct {
	running bool
	starts  int
	stops   int
	store   *settings.Store
}

func (f *fakeControls) Start() error {
	f.starts++
	f.running = true
	return nil
}

func (f *fakeControls) Stop() {
	f.stops++
	f.running = false
}

func (f *fakeControls) Running() bool             { return f.running }
func (f *fakeControls) Status() string            { return "Active: /dev/video10" }
func (f *fakeControls) Settings() *settings.Store { return f.store }

func TestHandleKey(t *testing.T) {
	controls := &fakeControls{store: settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), logger.NewNop())}
	p := NewPreview("test", nil, controls, logger.NewNop())

	test.That(t, p.handleKey(' '), test.ShouldBeFalse)
	test.That(t, controls.starts, test.ShouldEqual, 1)
	test.That(t, p.handleKey(' '), test.ShouldBeFalse)
	test.That(t, controls.stops, test.ShouldEqual, 1)

	test.That(t, p.handleKey('b'), test.ShouldBeFalse)
	test.That(t, controls.store.Get().AutoRedact, test.ShouldBeFalse)
	test.That(t, p.handleKey('r'), test.ShouldBeFalse)
	test.That(t, controls.store.Get().PreviewRaw, test.ShouldBeTrue)
	test.That(t, p.handleKey('o'), test.ShouldBeFalse)
	test.That(t, controls.store.Get().OpenVocabulary, test.ShouldBeTrue)

	test.That(t, p.handleKey('x'), test.ShouldBeFalse)
	test.That(t, p.handleKey('q'), test.ShouldBeTrue)
	test.That(t, p.handleKey(keyEsc), test.ShouldBeTrue)
}

func TestToMat(t *testing.T) {
	dst := gocv.NewMat()
	defer dst.Close()

	frame := model.PreviewFrame{Width: 2, Height: 1, Pix: []byte{255, 0, 0, 0, 0, 255}}
	test.That(t, toMat(frame, &dst), test.ShouldBeNil)
	test.That(t, dst.Cols(), test.ShouldEqual, 2)
	test.That(t, dst.Rows(), test.ShouldEqual, 1)
	// red in RGB is the third channel in BGR
	test.That(t, dst.GetUCharAt(0, 2), test.ShouldEqual, uint8(255))
	test.That(t, dst.GetUCharAt(0, 0), test.ShouldEqual, uint8(0))
	test.That(t, dst.GetUCharAt(0, 3), test.ShouldEqual, uint8(255))

	bad := model.PreviewFrame{Width: 2, Height: 2, Pix: []byte{1, 2, 3}}
	test.That(t, toMat(bad, &dst), test.ShouldNotBeNil)
}
