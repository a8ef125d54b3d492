package notify

import (
	"sync"
	"testing"

	"go.viam.com/test"

	"blurcam/internal/model"
)

func TestMailboxDropsOldest(t *testing.T) {
	m := NewMailbox[int](2)
	test.That(t, m.Put(1), test.ShouldBeFalse)
	test.That(t, m.Put(2), test.ShouldBeFalse)
	test.That(t, m.Put(3), test.ShouldBeTrue)

	test.That(t, <-m.C(), test.ShouldEqual, 2)
	test.That(t, <-m.C(), test.ShouldEqual, 3)
	test.That(t, m.Drops(), test.ShouldEqual, uint64(1))
}

func TestMailboxZeroSizeHoldsOne(t *testing.T) {
	m := NewMailbox[string](0)
	m.Put("a")
	m.Put("b")
	test.That(t, <-m.C(), test.ShouldEqual, "b")
}

func TestMailboxConcurrentPutNeverBlocks(t *testing.T) {
	m := NewMailbox[int](1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Put(i*100 + j)
			}
		}(i)
	}
	wg.Wait()
	test.That(t, len(m.C()), test.ShouldEqual, 1)
	test.That(t, m.Drops(), test.ShouldEqual, uint64(799))
}

func TestChannelsKeepNewestPreview(t *testing.T) {
	c := NewChannels()
	for i := 1; i <= 3; i++ {
		c.OnPreviewFrame(model.PreviewFrame{Width: i})
	}
	frame := <-c.Preview.C()
	test.That(t, frame.Width, test.ShouldEqual, 3)

	c.OnStatus("Connecting to Camera...")
	c.OnStatus("Active: /dev/video10")
	test.That(t, c.LatestStatus(), test.ShouldEqual, "Active: /dev/video10")
	test.That(t, <-c.Status.C(), test.ShouldEqual, "Connecting to Camera...")
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewChannels(), NewChannels()
	var seen []string
	m := Multi{a, b, StatusFunc(func(s string) { seen = append(seen, s) })}

	m.OnStatus("Stopped")
	m.OnPreviewFrame(model.PreviewFrame{Width: 2})

	test.That(t, a.LatestStatus(), test.ShouldEqual, "Stopped")
	test.That(t, b.LatestStatus(), test.ShouldEqual, "Stopped")
	test.That(t, seen, test.ShouldResemble, []string{"Stopped"})
	test.That(t, (<-b.Preview.C()).Width, test.ShouldEqual, 2)
}
