package model

// PreviewFrame is an interleaved RGB image, row-major with a tight stride:
// len(Pix) == Width*Height*3.
type PreviewFrame struct {
	Width  int
	Height int
	Pix    []byte
}

// EventSink receives one-way notifications from the pipeline worker.
// Implementations must not block the caller.
type EventSink interface {
	OnStatus(text string)
	OnPreviewFrame(frame PreviewFrame)
}
