package download

import (
	"testing"
	"time"

	"github.com/hasod/hasod-go/internal/queue"
)

func TestNotifierDeliversSnapshots(t *testing.T) {
	n := NewNotifier(nil)
	ch := n.SubscribeSnapshots()

	n.PublishSnapshot(queue.Snapshot{QueuedCount: 3})

	select {
	case snap := <-ch:
		if snap.QueuedCount != 3 {
			t.Errorf("QueuedCount = %d, want 3", snap.QueuedCount)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for snapshot")
	}
}

func TestNotifierDropsWhenSubscriberFull(t *testing.T) {
	n := NewNotifier(nil)
	ch := n.SubscribeSnapshots()

	// Overfill the buffer; the publisher must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 600; i++ {
			n.PublishSnapshot(queue.Snapshot{QueuedCount: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishSnapshot blocked on a full subscriber")
	}

	if len(ch) != cap(ch) {
		t.Errorf("buffer holds %d events, want full buffer of %d", len(ch), cap(ch))
	}
}

func TestNotifierPanelCallback(t *testing.T) {
	n := NewNotifier(nil)

	got := make(chan PanelUpdate, 1)
	n.SetPanelCallback(func(u PanelUpdate) { got <- u })

	n.PublishPanel(PanelUpdate{Phase: "Downloading", Progress: 42.5, Title: "Song", QueuedCount: 2})

	select {
	case u := <-got:
		if u.Phase != "Downloading" || u.Progress != 42.5 || u.Title != "Song" || u.QueuedCount != 2 {
			t.Errorf("unexpected update: %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for panel update")
	}
}

func TestNotifierPanelCallbackPanicIsContained(t *testing.T) {
	n := NewNotifier(nil)

	fired := make(chan struct{}, 2)
	n.SetPanelCallback(func(u PanelUpdate) {
		fired <- struct{}{}
		panic("callback bug")
	})

	n.PublishPanel(PanelUpdate{Phase: "Downloading"})
	n.PublishPanel(PanelUpdate{Phase: "Converting"})

	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatalf("callback %d never ran", i+1)
		}
	}
}

func TestNotifierNilPanelCallback(t *testing.T) {
	n := NewNotifier(nil)
	// Must not panic without a callback installed.
	n.PublishPanel(PanelUpdate{Phase: "Downloading"})
	n.SetPanelCallback(nil)
	n.PublishPanel(PanelUpdate{Phase: "Converting"})
}
