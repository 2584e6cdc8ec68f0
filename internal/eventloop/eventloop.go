// Package eventloop implements the single-threaded cooperative reactor
// from spec.md §4.4: file events (readable/writable per fd), time events
// (single-shot or periodic), and a pre-sleep hook, driven by a Linux
// epoll instance via golang.org/x/sys/unix — the idiomatic Go analogue
// of the C `ae.c`/Rust `ae.rs` reactor the spec describes. There is no
// teacher analogue for this subsystem (cc-backend is a goroutine-per-
// request net/http server, not a reactor); it is grounded directly on
// spec.md §4.4's own iteration algorithm.
package eventloop

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Mask is the set of readiness conditions a file event is registered for.
type Mask uint8

const (
	None Mask = 0
	R    Mask = 1 << 0
	W    Mask = 1 << 1
)

// FileHandler is invoked when fd becomes ready for the registered
// condition.
type FileHandler func(fd int)

// NoMore is the sentinel TimeHandler implementations return to cancel
// further invocations (spec.md §4.4 "if it returns NO_MORE, delete it").
const NoMore = -1

// TimeHandler runs when a time event fires; its return value is the
// delay, in milliseconds, until the next firing, or NoMore to cancel.
type TimeHandler func() int64

type fileEvent struct {
	mask            Mask
	readFn, writeFn FileHandler
}

type timeEvent struct {
	id       int64
	deadline time.Time
	handler  TimeHandler
	canceled bool
}

// Loop is one reactor instance. The zero value is not usable; use New.
type Loop struct {
	epfd int

	mu        sync.Mutex // guards registration state touched from outside Run's goroutine (e.g. accept callbacks scheduling writes)
	files     map[int]*fileEvent
	timers    []*timeEvent
	nextTimer int64
	preSleep  func()
	stop      bool
}

// New creates an epoll instance.
func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Loop{
		epfd:  epfd,
		files: make(map[int]*fileEvent),
	}, nil
}

// Close releases the epoll fd.
func (l *Loop) Close() error {
	return unix.Close(l.epfd)
}

// SetPreSleepHook installs a callback invoked once per iteration before
// the poll call (spec.md §4.4 step 1).
func (l *Loop) SetPreSleepHook(f func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.preSleep = f
}

// AddFileEvent registers (or extends) fd's mask with a handler. mask must
// be R or W; to watch both, call twice.
func (l *Loop) AddFileEvent(fd int, mask Mask, handler FileHandler) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fe, existed := l.files[fd]
	if !existed {
		fe = &fileEvent{}
		l.files[fd] = fe
	}
	op := unix.EPOLL_CTL_MOD
	if !existed {
		op = unix.EPOLL_CTL_ADD
	}
	newMask := fe.mask | mask
	if mask&R != 0 {
		fe.readFn = handler
	}
	if mask&W != 0 {
		fe.writeFn = handler
	}
	fe.mask = newMask

	ev := unix.EpollEvent{Fd: int32(fd), Events: epollEvents(newMask)}
	return unix.EpollCtl(l.epfd, op, fd, &ev)
}

// RemoveFileEvent clears mask from fd's registration, deregistering from
// epoll entirely once no interest remains.
func (l *Loop) RemoveFileEvent(fd int, mask Mask) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fe, ok := l.files[fd]
	if !ok {
		return nil
	}
	fe.mask &^= mask
	if mask&R != 0 {
		fe.readFn = nil
	}
	if mask&W != 0 {
		fe.writeFn = nil
	}
	if fe.mask == None {
		delete(l.files, fd)
		return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	}
	ev := unix.EpollEvent{Fd: int32(fd), Events: epollEvents(fe.mask)}
	return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func epollEvents(m Mask) uint32 {
	var e uint32
	if m&R != 0 {
		e |= unix.EPOLLIN
	}
	if m&W != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

// AddTimeEvent schedules handler to run after delayMs milliseconds,
// returning an id RemoveTimeEvent can use to cancel it early.
func (l *Loop) AddTimeEvent(delayMs int64, handler TimeHandler) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextTimer++
	id := l.nextTimer
	l.timers = append(l.timers, &timeEvent{
		id:       id,
		deadline: time.Now().Add(time.Duration(delayMs) * time.Millisecond),
		handler:  handler,
	})
	return id
}

// RemoveTimeEvent cancels a pending timer by id.
func (l *Loop) RemoveTimeEvent(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, te := range l.timers {
		if te.id == id {
			te.canceled = true
		}
	}
}

// nearestDeadline scans the (typically handful-sized) timer list for the
// earliest deadline; spec.md §4.4 explicitly permits O(N) here ("design
// note: acceptable for the expected handful of timers, replaceable with a
// heap").
func (l *Loop) nearestDeadline() (time.Time, bool) {
	var nearest time.Time
	found := false
	for _, te := range l.timers {
		if te.canceled {
			continue
		}
		if !found || te.deadline.Before(nearest) {
			nearest = te.deadline
			found = true
		}
	}
	return nearest, found
}

// Stop requests the loop to exit after the current iteration.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stop = true
}

// Run drives the reactor until Stop is called. It implements the exact
// iteration spec.md §4.4 specifies.
func (l *Loop) Run() error {
	events := make([]unix.EpollEvent, 128)
	for {
		l.mu.Lock()
		if l.stop {
			l.mu.Unlock()
			return nil
		}
		if l.preSleep != nil {
			hook := l.preSleep
			l.mu.Unlock()
			hook()
			l.mu.Lock()
		}
		deadline, hasTimer := l.nearestDeadline()
		l.mu.Unlock()

		waitMs := -1
		if hasTimer {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			waitMs = int(remaining.Milliseconds())
		}

		n, err := unix.EpollWait(l.epfd, events, waitMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		l.dispatchFileEvents(events[:n])
		l.sweepTimers()
	}
}

func (l *Loop) dispatchFileEvents(events []unix.EpollEvent) {
	for _, ev := range events {
		fd := int(ev.Fd)

		l.mu.Lock()
		fe, ok := l.files[fd]
		l.mu.Unlock()
		if !ok {
			continue
		}

		if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			l.mu.Lock()
			fe, stillReg := l.files[fd]
			var readFn FileHandler
			if stillReg && fe.mask&R != 0 {
				readFn = fe.readFn
			}
			l.mu.Unlock()
			if readFn != nil {
				readFn(fd)
			}
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			// Re-check registration: the read-handler above may have
			// deregistered fd entirely (spec.md §4.4 step 4).
			l.mu.Lock()
			fe, stillReg := l.files[fd]
			var writeFn FileHandler
			if stillReg && fe.mask&W != 0 {
				writeFn = fe.writeFn
			}
			l.mu.Unlock()
			if writeFn != nil {
				writeFn(fd)
			}
		}
	}
}

func (l *Loop) sweepTimers() {
	now := time.Now()
	l.mu.Lock()
	due := l.timers[:0:0]
	remaining := l.timers[:0:0]
	for _, te := range l.timers {
		if !te.canceled && !te.deadline.After(now) {
			due = append(due, te)
		} else if !te.canceled {
			remaining = append(remaining, te)
		}
	}
	added := len(l.timers)
	l.mu.Unlock()

	for _, te := range due {
		delay := te.handler()
		if delay == NoMore {
			continue
		}
		te.deadline = time.Now().Add(time.Duration(delay) * time.Millisecond)
		remaining = append(remaining, te)
	}

	l.mu.Lock()
	// Keep timers AddTimeEvent registered while the handlers ran.
	l.timers = append(remaining, l.timers[added:]...)
	l.mu.Unlock()
}
