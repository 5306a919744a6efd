package storage

import "sync"

// EntityKind names one of the five stored collections for change
// notifications.
type EntityKind string

const (
	KindCategory   EntityKind = "expense_category"
	KindExpense    EntityKind = "expense_transaction"
	KindPerson     EntityKind = "person"
	KindBorrowLend EntityKind = "borrow_lend_transaction"
	KindSettlement EntityKind = "settlement"
)

// watcher fans mutation signals out to subscribers. Channels are buffered
// with capacity one and written with a non-blocking send, so a slow consumer
// coalesces bursts into a single pending notification instead of blocking
// the writer.
type watcher struct {
	mu   sync.Mutex
	subs map[EntityKind]map[chan struct{}]struct{}
}

func newWatcher() *watcher {
	return &watcher{subs: make(map[EntityKind]map[chan struct{}]struct{})}
}

func (w *watcher) subscribe(kinds ...EntityKind) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	w.mu.Lock()
	for _, kind := range kinds {
		if w.subs[kind] == nil {
			w.subs[kind] = make(map[chan struct{}]struct{})
		}
		w.subs[kind][ch] = struct{}{}
	}
	w.mu.Unlock()

	cancel := func() {
		w.mu.Lock()
		for _, kind := range kinds {
			delete(w.subs[kind], ch)
		}
		w.mu.Unlock()
	}
	return ch, cancel
}

func (w *watcher) notify(kind EntityKind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for ch := range w.subs[kind] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
