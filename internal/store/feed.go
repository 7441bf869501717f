package store

import "sync"

// Feed serializes deliveries to one subscriber. Pushes never block the
// writer; a dedicated goroutine drains the queue in order, so callbacks may
// call back into the store.
type Feed struct {
	onSnapshot func(Snapshot)
	onError    func(error)

	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

// NewFeed starts the delivery goroutine. onError may be nil.
func NewFeed(onSnapshot func(Snapshot), onError func(error)) *Feed {
	f := &Feed{
		onSnapshot: onSnapshot,
		onError:    onError,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	go f.run()
	return f
}

// Push queues a snapshot for delivery.
func (f *Feed) Push(s Snapshot) {
	s.Event = s.Event.Clone()
	f.enqueue(func() { f.onSnapshot(s) })
}

// Fail queues an error for delivery.
func (f *Feed) Fail(err error) {
	if f.onError == nil || err == nil {
		return
	}
	f.enqueue(func() { f.onError(err) })
}

// Close stops delivery. Queued items that were not delivered yet are dropped.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.queue = nil
	close(f.done)
}

func (f *Feed) enqueue(item func()) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.queue = append(f.queue, item)
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *Feed) run() {
	for {
		select {
		case <-f.done:
			return
		case <-f.wake:
		}
		for {
			f.mu.Lock()
			if f.closed || len(f.queue) == 0 {
				f.mu.Unlock()
				break
			}
			item := f.queue[0]
			f.queue = f.queue[1:]
			f.mu.Unlock()
			item()
		}
	}
}
