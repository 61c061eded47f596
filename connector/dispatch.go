package connector

import "sync"

// SerialDispatcher runs deliveries one at a time, in the order their
// requests completed, on a single goroutine.
type SerialDispatcher struct {
	mu     sync.RWMutex
	queue  chan func()
	closed bool
	done   chan struct{}
}

func NewSerialDispatcher(buffer int) *SerialDispatcher {
	d := &SerialDispatcher{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *SerialDispatcher) loop() {
	defer close(d.done)
	for fn := range d.queue {
		fn()
	}
}

// Dispatch queues fn. After Close it runs fn on the calling goroutine.
func (d *SerialDispatcher) Dispatch(fn func()) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		fn()
		return
	}
	d.queue <- fn
	d.mu.RUnlock()
}

// Close stops accepting work and waits for queued deliveries to finish.
func (d *SerialDispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
	return nil
}
