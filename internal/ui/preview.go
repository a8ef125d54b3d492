package ui

import (
	"context"
	"image"
	"image/color"
	"runtime"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"blurcam/internal/logger"
	"blurcam/internal/model"
	"blurcam/internal/settings"
)

// ErrClosed is returned by Run when the user quits from the window.
var ErrClosed = errors.New("preview window closed")

const (
	keyEsc = 27
	noKey  = -1
	pollMs = 15
	textY  = 24
)

// Controls is what the preview window can drive.
type Controls interface {
	Start() error
	Stop()
	Running() bool
	Status() string
	Settings() *settings.Store
}

// Preview shows the director view in a local window.
//
// Keys: q or Esc quits, space starts or stops the pipeline, b toggles
// auto-redaction, r toggles showing the redacted output, o toggles the
// open-vocabulary model.
type Preview struct {
	title    string
	frames   <-chan model.PreviewFrame
	controls Controls
	logger   *logger.Logger
}

// NewPreview returns a preview window reading frames from frames.
func NewPreview(title string, frames <-chan model.PreviewFrame, controls Controls, logger *logger.Logger) *Preview {
	return &Preview{title: title, frames: frames, controls: controls, logger: logger}
}

// Run shows frames until ctx is done or the user quits.
func (p *Preview) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	window := gocv.NewWindow(p.title)
	defer window.Close()

	canvas := gocv.NewMat()
	defer canvas.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-p.frames:
			if err := toMat(frame, &canvas); err != nil {
				p.logger.Warning("Dropping preview frame: %v", err)
				break
			}
			p.overlay(&canvas)
			if err := window.IMShow(canvas); err != nil {
				p.logger.Warning("Failed to show preview frame: %v", err)
			}
		default:
		}

		if key := window.WaitKey(pollMs); key != noKey {
			if p.handleKey(key) {
				return ErrClosed
			}
		}
	}
}

// handleKey applies a key press and reports whether the window should close.
func (p *Preview) handleKey(key int) bool {
	switch key & 0xff {
	case 'q', keyEsc:
		return true
	case ' ':
		if p.controls.Running() {
			p.controls.Stop()
		} else if err := p.controls.Start(); err != nil {
			p.logger.Warning("Could not start pipeline: %v", err)
		}
	case 'b':
		p.toggle(settings.KeyAutoRedact, func(s settings.Settings) bool { return s.AutoRedact })
	case 'r':
		p.toggle(settings.KeyPreviewRaw, func(s settings.Settings) bool { return s.PreviewRaw })
	case 'o':
		p.toggle(settings.KeyOpenVocabulary, func(s settings.Settings) bool { return s.OpenVocabulary })
	}
	return false
}

func (p *Preview) toggle(key string, get func(settings.Settings) bool) {
	store := p.controls.Settings()
	if err := store.Set(key, !get(store.Get())); err != nil {
		p.logger.Warning("Could not toggle %s: %v", key, err)
	}
}

func (p *Preview) overlay(canvas *gocv.Mat) {
	status := p.controls.Status()
	if status == "" {
		return
	}
	_ = gocv.PutText(canvas, status, image.Pt(10, textY), gocv.FontHersheySimplex, 0.6, color.RGBA{G: 255, A: 255}, 2)
}

// toMat converts an RGB preview frame into a BGR Mat in dst.
func toMat(frame model.PreviewFrame, dst *gocv.Mat) error {
	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Pix) != frame.Width*frame.Height*3 {
		return errors.Errorf("malformed %dx%d frame with %d bytes", frame.Width, frame.Height, len(frame.Pix))
	}
	rgb, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pix)
	if err != nil {
		return errors.Wrap(err, "wrap preview bytes")
	}
	defer rgb.Close()
	return gocv.CvtColor(rgb, dst, gocv.ColorRGBToBGR)
}
