package main

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestEventLoopDeliversCallsAndSignals(t *testing.T) {
	signals := make(chan *dbus.Signal, 2)
	loop := newEventLoop(signals)

	sig := &dbus.Signal{Name: deviceFoundSignal}
	signals <- sig
	err := loop.run(context.Background(), func(ev event) bool {
		return ev.signal == sig
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	first, want := &dbus.Call{}, &dbus.Call{}
	loop.calls <- first
	loop.calls <- want
	var calls []*dbus.Call
	err = loop.run(context.Background(), func(ev event) bool {
		calls = append(calls, ev.call)
		return ev.call == want
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(calls) != 2 || calls[0] != first {
		t.Fatalf("calls delivered out of order: %v", calls)
	}
}

func TestEventLoopClosedBus(t *testing.T) {
	signals := make(chan *dbus.Signal)
	close(signals)
	err := newEventLoop(signals).run(context.Background(), func(event) bool { return false })
	if !errors.Is(err, errBusClosed) {
		t.Fatalf("run = %v, want errBusClosed", err)
	}
}
