package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const defaultAgentPath = dbus.ObjectPath("/test/agent")

// adapterAPI is the part of org.bluez.Adapter (and org.bluez.Device) the
// session drives.
type adapterAPI interface {
	Path() dbus.ObjectPath
	ListDevices() ([]dbus.ObjectPath, error)
	DeviceProperties(path dbus.ObjectPath) (map[string]dbus.Variant, error)
	StartDiscovery() error
	FindDevice(address string) (dbus.ObjectPath, error)
	RemoveDevice(path dbus.ObjectPath) error
	CreatePairedDevice(address string, agentPath dbus.ObjectPath, capability string, done chan *dbus.Call) *dbus.Call
	RegisterAgent(agentPath dbus.ObjectPath, capability string) error
	UnregisterAgent(agentPath dbus.ObjectPath) error
}

// agentExporter publishes agent objects on the bus.
type agentExporter interface {
	exportAgent(a *agent, path dbus.ObjectPath) error
	unexportAgent(path dbus.ObjectPath)
}

// session ties one adapter to the event loop and the agent used while
// pairing.
type session struct {
	adapter    adapterAPI
	loop       *eventLoop
	agents     agentExporter
	prompt     prompter
	logger     *log.Logger
	agentPath  dbus.ObjectPath
	capability string
}

func newSession(ad adapterAPI, loop *eventLoop, agents agentExporter, p prompter, cfg Config) *session {
	s := &session{
		adapter:    ad,
		loop:       loop,
		agents:     agents,
		prompt:     p,
		logger:     log.Default(),
		agentPath:  dbus.ObjectPath(cfg.AgentPath),
		capability: cfg.Capability,
	}
	if s.agentPath == "" {
		s.agentPath = defaultAgentPath
	}
	if s.capability == "" {
		s.capability = CapabilityDisplayYesNo
	}
	return s
}

// listDevices returns the devices the adapter already knows about.
func (s *session) listDevices() (deviceList, error) {
	paths, err := s.adapter.ListDevices()
	if err != nil {
		return nil, err
	}
	var devices deviceList
	for _, path := range paths {
		props, err := s.adapter.DeviceProperties(path)
		if err != nil {
			s.logger.Printf("skipping %s: %v", path, err)
			continue
		}
		address, _ := props["Address"].Value().(string)
		if address == "" {
			s.logger.Printf("skipping %s: no address", path)
			continue
		}
		devices.add(newDevice(address, props))
	}
	return devices, nil
}

// lookupDevice returns the known device with address, or a fresh unpaired
// record when the adapter has not seen it yet.
func (s *session) lookupDevice(address string) (*Device, error) {
	devices, err := s.listDevices()
	if err != nil {
		return nil, err
	}
	if d := devices.find(address); d != nil {
		return d, nil
	}
	return &Device{Address: strings.ToUpper(address)}, nil
}

// discover starts a scan and collects found devices until the adapter
// reports that discovery stopped.
func (s *session) discover(ctx context.Context) (deviceList, error) {
	s.loop.drain()
	if err := s.adapter.StartDiscovery(); err != nil {
		return nil, err
	}
	var devices deviceList
	err := s.loop.run(ctx, func(ev event) bool {
		sig := ev.signal
		if sig == nil || sig.Path != s.adapter.Path() {
			return false
		}
		switch sig.Name {
		case deviceFoundSignal:
			if len(sig.Body) < 2 {
				return false
			}
			address, ok := sig.Body[0].(string)
			if !ok {
				return false
			}
			props, _ := sig.Body[1].(map[string]dbus.Variant)
			devices.add(newDevice(address, props))
		case propertyChangedSignal:
			if len(sig.Body) < 2 {
				return false
			}
			name, _ := sig.Body[0].(string)
			if name != "Discovering" {
				return false
			}
			value, ok := sig.Body[1].(dbus.Variant)
			if !ok {
				return false
			}
			if discovering, ok := value.Value().(bool); ok && !discovering {
				return true
			}
		}
		return false
	})
	if err != nil {
		return devices, errors.Wrap(err, "discovery")
	}
	return devices, nil
}

// pair pairs d with the adapter. Pairing failures are logged and leave d
// unpaired; only an interrupted wait is returned.
func (s *session) pair(ctx context.Context, d *Device) error {
	if d.Paired {
		s.logger.Printf("Device %s already paired", d.Address)
		return nil
	}

	ag := newAgent(s.prompt, s.logger)
	ag.exitOnRelease = false
	if err := s.agents.exportAgent(ag, s.agentPath); err != nil {
		s.logger.Printf("Creating device failed: %v", err)
		return nil
	}
	defer s.agents.unexportAgent(s.agentPath)

	call := s.adapter.CreatePairedDevice(d.Address, s.agentPath, s.capability, s.loop.calls)
	err := s.loop.run(ctx, func(ev event) bool {
		return ev.call == call
	})
	if err != nil {
		return errors.Wrapf(err, "pair %s", d.Address)
	}

	var path dbus.ObjectPath
	if err := call.Store(&path); err != nil {
		s.logger.Printf("Creating device failed: %v", err)
		return nil
	}
	d.Paired = true
	s.logger.Printf("New device (%s)", path)
	return nil
}

// bluezDevice returns the daemon object for d, pairing d first if needed.
// It returns "" when the daemon does not know the device.
func (s *session) bluezDevice(ctx context.Context, d *Device) (dbus.ObjectPath, error) {
	if !d.Paired {
		if err := s.pair(ctx, d); err != nil {
			return "", err
		}
	}
	path, err := s.adapter.FindDevice(d.Address)
	if err != nil {
		if dbusErrorName(err) == errNameDoesNotExist {
			s.logger.Printf("Device does not exist")
		} else {
			s.logger.Printf("find device %s: %v", d.Address, err)
		}
		return "", nil
	}
	return path, nil
}

// unpair removes d from the daemon.
func (s *session) unpair(ctx context.Context, d *Device) error {
	path, err := s.bluezDevice(ctx, d)
	if err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	if err := s.adapter.RemoveDevice(path); err != nil {
		s.logger.Printf("%v", err)
		return nil
	}
	d.Paired = false
	return nil
}

// serveAgent registers a long-lived agent with the adapter and answers
// prompts until the daemon releases it or ctx is cancelled.
func (s *session) serveAgent(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ag := newAgent(s.prompt, s.logger)
	ag.onRelease = cancel
	if err := s.agents.exportAgent(ag, s.agentPath); err != nil {
		return err
	}
	defer s.agents.unexportAgent(s.agentPath)

	if err := s.adapter.RegisterAgent(s.agentPath, s.capability); err != nil {
		return err
	}
	s.logger.Printf("Agent registered at %s", s.agentPath)

	<-ctx.Done()
	if err := s.adapter.UnregisterAgent(s.agentPath); err != nil {
		// Fails after Release.
		s.logger.Printf("%v", err)
	}
	return nil
}

func printDevice(w io.Writer, d *Device) {
	fmt.Fprintf(w, "Device %s\n", d.Address)
	fmt.Fprintf(w, "\tPaired: %v\n", d.Paired)
}

func printDevices(w io.Writer, devices deviceList) {
	for _, d := range devices {
		printDevice(w, d)
	}
}

func (s *session) pairAll(ctx context.Context, w io.Writer, devices deviceList) error {
	for _, d := range devices {
		printDevice(w, d)
		if !d.Paired {
			if err := s.pair(ctx, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// run pairs every known device, then discovers and pairs new ones.
func (s *session) run(ctx context.Context, w io.Writer) error {
	fmt.Fprintln(w, "List current devices")
	devices, err := s.listDevices()
	if err != nil {
		return err
	}
	if err := s.pairAll(ctx, w, devices); err != nil {
		return err
	}

	fmt.Fprintln(w, "Discover new devices")
	devices, err = s.discover(ctx)
	if err != nil {
		return err
	}
	return s.pairAll(ctx, w, devices)
}
