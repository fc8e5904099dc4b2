package download

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hasod/hasod-go/internal/queue"
)

// PanelUpdate is the compact progress view pushed to the panel
// callback: just enough to render a one-line status.
type PanelUpdate struct {
	Phase       string  `json:"phase"`
	Progress    float64 `json:"progress"`
	Title       string  `json:"title"`
	QueuedCount int     `json:"queued_count"`
}

// Notifier fans queue snapshots out to subscribers and forwards panel
// updates to an optional callback. Slow subscribers lose events rather
// than block the processing loop.
type Notifier struct {
	mu          sync.RWMutex
	subscribers []chan queue.Snapshot
	panel       func(PanelUpdate)
	logger      *zap.Logger
}

// NewNotifier creates a notifier with no subscribers
func NewNotifier(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{logger: logger}
}

// SubscribeSnapshots registers a new snapshot listener. The returned
// channel is buffered; events are dropped when the buffer is full.
func (n *Notifier) SubscribeSnapshots() <-chan queue.Snapshot {
	ch := make(chan queue.Snapshot, 256)
	n.mu.Lock()
	n.subscribers = append(n.subscribers, ch)
	n.mu.Unlock()
	return ch
}

// SetPanelCallback installs the compact-panel callback, replacing any
// previous one. Pass nil to disable panel updates.
func (n *Notifier) SetPanelCallback(fn func(PanelUpdate)) {
	n.mu.Lock()
	n.panel = fn
	n.mu.Unlock()
}

// PublishSnapshot delivers a snapshot to every subscriber
func (n *Notifier) PublishSnapshot(snap queue.Snapshot) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.subscribers {
		select {
		case ch <- snap:
		default:
			n.logger.Debug("snapshot subscriber buffer full, dropping event")
		}
	}
}

// PublishPanel invokes the panel callback in its own goroutine so a
// misbehaving callback cannot stall or crash the processing loop.
func (n *Notifier) PublishPanel(update PanelUpdate) {
	n.mu.RLock()
	fn := n.panel
	n.mu.RUnlock()

	if fn == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				n.logger.Error("panel callback panicked", zap.Any("panic", r))
			}
		}()
		fn(update)
	}()
}
