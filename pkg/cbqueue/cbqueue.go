// Package cbqueue runs callbacks one at a time, in push order, on a single
// dispatch goroutine.
package cbqueue

import (
	"sync"
	"time"
)

type CBQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	head   *asyncCB
	tail   *asyncCB
	size   int
	closed bool
	done   chan struct{}
}

type asyncCB struct {
	fn   func(delay time.Duration)
	tm   time.Time
	next *asyncCB
}

// New returns a queue with its dispatcher already running.
func New() *CBQueue {
	q := &CBQueue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.dispatch()
	return q
}

func (q *CBQueue) dispatch() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for q.head == nil {
			q.cond.Wait()
		}
		curr := q.head
		q.head = curr.next
		if curr == q.tail {
			q.tail = nil
		}
		q.size--
		q.mu.Unlock()

		if curr.fn == nil {
			return
		}
		curr.fn(time.Since(curr.tm))
	}
}

// Push enqueues f. It reports false once the queue has been closed.
func (q *CBQueue) Push(f func(delay time.Duration)) bool {
	if f == nil {
		panic("cbqueue: pushing a nil callback")
	}
	return q.push(f)
}

func (q *CBQueue) push(f func(time.Duration)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if f == nil {
		q.closed = true
	}
	cb := &asyncCB{fn: f, tm: time.Now()}
	if q.tail != nil {
		q.tail.next = cb
	} else {
		q.head = cb
	}
	q.tail = cb
	q.size++
	q.cond.Signal()
	return true
}

// Len is the number of callbacks still waiting to run.
func (q *CBQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Close lets already queued callbacks finish, then stops the dispatcher.
func (q *CBQueue) Close() {
	q.push(nil)
}

// Done is closed when the dispatcher has exited.
func (q *CBQueue) Done() <-chan struct{} {
	return q.done
}
