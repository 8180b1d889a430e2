package eora

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aretw0/eora/pkg/domain"
)

// reindexDebounce groups bursts of knowledge base changes into one reindex.
const reindexDebounce = 500 * time.Millisecond

// watchBuffer is how many change IDs a subscriber may lag behind before
// further IDs are dropped for it.
const watchBuffer = 16

// watchHub fans the change IDs of a single reindex loop out to every
// subscriber. The loop starts with the first subscriber and stops when the
// last one leaves or the assistant is closed.
type watchHub struct {
	mu     sync.Mutex
	subs   map[chan string]struct{}
	cancel context.CancelFunc
	done   chan struct{}
	gen    uint64
}

// Watch reindexes whenever a knowledge base note changes and emits the ID of
// every change after the index has been rebuilt. All callers share one reindex
// loop. The channel closes when ctx is done or the assistant is closed.
func (a *Assistant) Watch(ctx context.Context) (<-chan string, error) {
	if a.knowledge == nil {
		return nil, &domain.Error{Kind: domain.ErrNotImplemented, Op: "watch", Err: errors.New("no knowledge base configured")}
	}

	h := &a.watch
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel == nil {
		loopCtx, cancel := context.WithCancel(context.Background())
		changes, err := a.knowledge.Watch(loopCtx)
		if err != nil {
			cancel()
			return nil, err
		}
		h.cancel = cancel
		h.done = make(chan struct{})
		h.gen++
		go a.reindexLoop(loopCtx, h.gen, changes)
		a.logger.Debug("knowledge base watch loop started")
	}

	ch := make(chan string, watchBuffer)
	if h.subs == nil {
		h.subs = make(map[chan string]struct{})
	}
	h.subs[ch] = struct{}{}

	done := h.done
	go func() {
		select {
		case <-ctx.Done():
			h.unsubscribe(ch)
		case <-done:
		}
	}()
	return ch, nil
}

func (a *Assistant) reindexLoop(ctx context.Context, gen uint64, changes <-chan string) {
	defer a.watch.finish(gen)

	var pending []string
	timer := time.NewTimer(reindexDebounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-changes:
			if !ok {
				return
			}
			pending = append(pending, id)
			timer.Reset(reindexDebounce)
		case <-timer.C:
			a.logger.Info("knowledge base changed, reindexing", "changes", len(pending))
			if _, err := a.Index(ctx); err != nil {
				a.logger.Error("reindex failed", "err", err)
			}
			for _, id := range pending {
				if dropped := a.watch.broadcast(id); dropped > 0 {
					a.logger.Warn("watch subscribers lagging, change dropped", "note", id, "dropped", dropped)
				}
			}
			pending = pending[:0]
		}
	}
}

// broadcast never blocks the reindex loop; it returns how many subscribers
// missed id because their buffer was full.
func (h *watchHub) broadcast(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	dropped := 0
	for ch := range h.subs {
		select {
		case ch <- id:
		default:
			dropped++
		}
	}
	return dropped
}

func (h *watchHub) unsubscribe(ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; !ok {
		return
	}
	delete(h.subs, ch)
	close(ch)
	if len(h.subs) == 0 {
		h.stopLocked()
	}
}

// finish tears the hub down when loop gen ends on its own, e.g. because the
// knowledge base watcher closed.
func (h *watchHub) finish(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.gen == gen && h.cancel != nil {
		h.stopLocked()
	}
}

func (h *watchHub) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

func (h *watchHub) stopLocked() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
		close(h.done)
		h.done = nil
	}
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// Watchers reports how many subscribers currently share the reindex loop.
func (a *Assistant) Watchers() int {
	a.watch.mu.Lock()
	defer a.watch.mu.Unlock()
	return len(a.watch.subs)
}
