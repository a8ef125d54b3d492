package notify

import (
	"go.uber.org/atomic"

	"blurcam/internal/model"
)

const statusBacklog = 16

// Channels is an EventSink that queues events for asynchronous consumers.
// Previews keep only the newest frame; status keeps a short backlog and the
// latest text.
type Channels struct {
	Status  *Mailbox[string]
	Preview *Mailbox[model.PreviewFrame]

	latest atomic.String
}

// NewChannels returns an empty Channels sink.
func NewChannels() *Channels {
	return &Channels{
		Status:  NewMailbox[string](statusBacklog),
		Preview: NewMailbox[model.PreviewFrame](1),
	}
}

// OnStatus implements model.EventSink.
func (c *Channels) OnStatus(text string) {
	c.latest.Store(text)
	c.Status.Put(text)
}

// OnPreviewFrame implements model.EventSink.
func (c *Channels) OnPreviewFrame(frame model.PreviewFrame) {
	c.Preview.Put(frame)
}

// LatestStatus returns the most recent status text.
func (c *Channels) LatestStatus() string {
	return c.latest.Load()
}

// Multi forwards every event to each sink in order.
type Multi []model.EventSink

// OnStatus implements model.EventSink.
func (m Multi) OnStatus(text string) {
	for _, s := range m {
		s.OnStatus(text)
	}
}

// OnPreviewFrame implements model.EventSink.
func (m Multi) OnPreviewFrame(frame model.PreviewFrame) {
	for _, s := range m {
		s.OnPreviewFrame(frame)
	}
}

// StatusFunc adapts a function to an EventSink that ignores previews.
type StatusFunc func(text string)

// OnStatus implements model.EventSink.
func (f StatusFunc) OnStatus(text string) { f(text) }

// OnPreviewFrame implements model.EventSink.
func (StatusFunc) OnPreviewFrame(model.PreviewFrame) {}

var (
	_ model.EventSink = (*Channels)(nil)
	_ model.EventSink = Multi(nil)
	_ model.EventSink = StatusFunc(nil)
)
