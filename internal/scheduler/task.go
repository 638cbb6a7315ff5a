package scheduler

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc arms a one-shot timer that calls f after d.
type AfterFunc func(d time.Duration, f func()) Timer

// RealTime arms wall-clock timers.
func RealTime(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Token is shared between a Task and its callbacks. Once cancelled no
// further callback runs.
type Token struct {
	cancelled atomic.Bool
}

func (t *Token) Cancel()         { t.cancelled.Store(true) }
func (t *Token) Cancelled() bool { return t.cancelled.Load() }

// Task calls fn every interval until cancelled. Each firing re-arms the next
// before running fn.
type Task struct {
	mu       sync.Mutex
	after    AfterFunc
	interval time.Duration
	fn       func(*Token)
	token    *Token
	timer    Timer
}

func NewTask(after AfterFunc, interval time.Duration, fn func(*Token)) *Task {
	if after == nil {
		after = RealTime
	}
	return &Task{after: after, interval: interval, fn: fn, token: &Token{}}
}

// Start arms the first firing one interval from now.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token.Cancelled() || t.timer != nil {
		return
	}
	t.arm()
}

func (t *Task) arm() {
	t.timer = t.after(t.interval, t.fire)
}

func (t *Task) fire() {
	t.mu.Lock()
	if t.token.Cancelled() {
		t.mu.Unlock()
		return
	}
	t.arm()
	tok := t.token
	t.mu.Unlock()
	t.fn(tok)
}

// Cancel stops the pending timer. It is safe to call more than once.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token.Cancel()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Task) Token() *Token { return t.token }
