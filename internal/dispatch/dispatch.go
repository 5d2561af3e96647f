// Package dispatch decouples snapshot delivery from extraction. Producers
// enqueue commands onto a bounded channel; a single worker goroutine drains
// it in order, so a slow client applies backpressure to the producer instead
// of interleaving writes.
package dispatch

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/scribechat/scribechat/models"
)

// Deliverer writes one snapshot to the peer. A models.ErrPeerGone return
// stops further delivery without failing the stream.
type Deliverer interface {
	Deliver(snapshot models.AnswerSnapshot) error
}

type commandKind int

const (
	cmdDeliver commandKind = iota
	cmdFinish
)

type command struct {
	kind     commandKind
	snapshot models.AnswerSnapshot
}

// Dispatcher owns the delivery queue for one chat turn. Finish is enqueued
// on every exit path of the producer and is idempotent; after the worker
// processes it nothing more is delivered.
type Dispatcher struct {
	deliverer Deliverer
	queue     chan command

	finishOnce sync.Once
	done       chan struct{}
	logger     *log.Logger

	mu       sync.Mutex
	peerGone bool
}

func NewDispatcher(deliverer Deliverer, depth int) *Dispatcher {
	if depth <= 0 {
		depth = 64
	}
	d := &Dispatcher{
		deliverer: deliverer,
		queue:     make(chan command, depth),
		done:      make(chan struct{}),
		logger:    log.New(log.Writer(), "[DISPATCH] ", log.LstdFlags),
	}
	go d.run()
	return d
}

// Deliver enqueues a snapshot. It blocks when the queue is full, which is
// the backpressure the producer relies on. Delivery order is enqueue order.
func (d *Dispatcher) Deliver(snapshot models.AnswerSnapshot) {
	select {
	case <-d.done:
		// worker already processed Finish, drop silently
	default:
		select {
		case d.queue <- command{kind: cmdDeliver, snapshot: snapshot}:
		case <-d.done:
		}
	}
}

// Finish signals end of stream. Safe to call from any exit path, any number
// of times; only the first call enqueues the sentinel.
func (d *Dispatcher) Finish() {
	d.finishOnce.Do(func() {
		d.queue <- command{kind: cmdFinish}
	})
}

// Join waits until the worker has processed Finish, up to the given bound.
// It reports whether the worker drained in time.
func (d *Dispatcher) Join(timeout time.Duration) bool {
	select {
	case <-d.done:
		return true
	case <-time.After(timeout):
		d.logger.Printf("worker did not drain within %s", timeout)
		return false
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for cmd := range d.queue {
		if cmd.kind == cmdFinish {
			return
		}
		if d.gone() {
			continue // keep draining, deliver nothing
		}
		if err := d.deliverer.Deliver(cmd.snapshot); err != nil {
			if errors.Is(err, models.ErrPeerGone) {
				d.setGone()
				continue
			}
			d.logger.Printf("delivery failed: %v", err)
		}
	}
}

func (d *Dispatcher) gone() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.peerGone
}

func (d *Dispatcher) setGone() {
	d.mu.Lock()
	d.peerGone = true
	d.mu.Unlock()
}
