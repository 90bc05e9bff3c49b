package main

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

var errBusClosed = errors.New("bus signal channel closed")

// event is either a bus signal or a completed asynchronous call.
type event struct {
	signal *dbus.Signal
	call   *dbus.Call
}

// eventLoop is the single dispatcher for signals and async call replies.
// Blocking operations run it with their own stop condition.
type eventLoop struct {
	signals <-chan *dbus.Signal
	calls   chan *dbus.Call
}

func newEventLoop(signals <-chan *dbus.Signal) *eventLoop {
	return &eventLoop{
		signals: signals,
		// Object.Go refuses unbuffered channels.
		calls: make(chan *dbus.Call, 4),
	}
}

// run hands events to handle until it returns true. There is no timeout;
// only ctx can interrupt the wait.
func (l *eventLoop) run(ctx context.Context, handle func(event) bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-l.signals:
			if !ok {
				return errBusClosed
			}
			if handle(event{signal: sig}) {
				return nil
			}
		case call := <-l.calls:
			if handle(event{call: call}) {
				return nil
			}
		}
	}
}

// drain discards signals queued while no wait was running.
func (l *eventLoop) drain() {
	for {
		select {
		case _, ok := <-l.signals:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
