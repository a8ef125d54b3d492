// Package compositor blurs redaction regions and draws the annotated preview.
package compositor

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"blurcam/internal/model"
)

// ErrRedact is returned when a region could not be blurred. The frame must
// not be published after it.
var ErrRedact = errors.New("redaction failed")

const (
	// BlurKernel is the side of the square Gaussian kernel used for redaction.
	BlurKernel  = 51
	labelOffset = 10
)

// Compositor applies redaction blur and preview annotations to frames.
type Compositor struct {
	kernel    image.Point
	color     color.RGBA
	thickness int
	fontScale float64
}

// New returns a Compositor with the standard heavy blur and red annotations.
func New() *Compositor {
	return &Compositor{
		kernel:    image.Pt(BlurKernel, BlurKernel),
		color:     color.RGBA{R: 255, G: 0, B: 0, A: 0},
		thickness: 2,
		fontScale: 0.9,
	}
}

// Redact blurs each region of frame in place. Regions are processed
// independently; overlapping areas are blurred once per region. Each region
// is blurred as an isolated patch, so pixels outside it never bleed in.
func (c *Compositor) Redact(frame *gocv.Mat, regions []model.Region) error {
	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	for _, r := range regions {
		if r.Rect.Empty() || !r.Rect.In(bounds) {
			return errors.Wrapf(ErrRedact, "region %v outside %dx%d frame", r.Rect, bounds.Dx(), bounds.Dy())
		}
		if err := c.blur(frame, r.Rect); err != nil {
			return errors.Wrapf(ErrRedact, "region %v: %v", r.Rect, err)
		}
	}
	return nil
}

func (c *Compositor) blur(frame *gocv.Mat, rect image.Rectangle) error {
	roi := frame.Region(rect)
	defer roi.Close()
	patch := roi.Clone()
	defer patch.Close()

	// sigma 0 lets OpenCV derive it from the kernel size
	if err := gocv.GaussianBlur(patch, &patch, c.kernel, 0, 0, gocv.BorderDefault); err != nil {
		return err
	}
	return patch.CopyTo(&roi)
}

// Annotate returns a copy of frame with a box and label drawn for every region.
// The caller owns the returned Mat.
func (c *Compositor) Annotate(frame gocv.Mat, regions []model.Region) (gocv.Mat, error) {
	out := frame.Clone()
	for _, r := range regions {
		if err := gocv.Rectangle(&out, r.Rect, c.color, c.thickness); err != nil {
			out.Close()
			return gocv.NewMat(), errors.Wrap(err, "failed to draw rectangle")
		}
		pt := image.Pt(r.Rect.Min.X, r.Rect.Min.Y-labelOffset)
		if err := gocv.PutText(&out, r.Label, pt, gocv.FontHersheySimplex, c.fontScale, c.color, c.thickness); err != nil {
			out.Close()
			return gocv.NewMat(), errors.Wrap(err, "failed to draw text")
		}
	}
	return out, nil
}

// Compose redacts frame in place, making it the frame to publish, and returns
// the preview. With previewRaw the preview is a copy of the redacted frame;
// otherwise it is the un-redacted frame with boxes and labels. The caller owns
// the returned Mat. An error wrapping ErrRedact means frame is not safe to
// publish; any other error is an annotation failure and frame is untouched.
func (c *Compositor) Compose(frame *gocv.Mat, regions []model.Region, previewRaw bool) (gocv.Mat, error) {
	if previewRaw {
		if err := c.Redact(frame, regions); err != nil {
			return gocv.NewMat(), err
		}
		return frame.Clone(), nil
	}

	preview, err := c.Annotate(*frame, regions)
	if err != nil {
		return gocv.NewMat(), err
	}
	if err := c.Redact(frame, regions); err != nil {
		preview.Close()
		return gocv.NewMat(), err
	}
	return preview, nil
}

// PreviewFrame converts a BGR frame to the tightly packed RGB layout
// preview consumers expect.
func PreviewFrame(frame gocv.Mat) (model.PreviewFrame, error) {
	rgb := gocv.NewMat()
	defer rgb.Close()
	if err := gocv.CvtColor(frame, &rgb, gocv.ColorBGRToRGB); err != nil {
		return model.PreviewFrame{}, errors.Wrap(err, "failed to convert preview to RGB")
	}
	return model.PreviewFrame{
		Width:  rgb.Cols(),
		Height: rgb.Rows(),
		Pix:    rgb.ToBytes(),
	}, nil
}
