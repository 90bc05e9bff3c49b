package main

import (
	"log"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/pkg/errors"
)

// macFromPath extracts a MAC address from a BlueZ device object path such as
// "/org/bluez/1234/hci0/dev_AA_BB_CC_DD_EE_FF".
func macFromPath(path dbus.ObjectPath) string {
	s := string(path)
	i := strings.LastIndex(s, "/dev_")
	if i < 0 {
		return ""
	}
	return strings.ReplaceAll(s[i+len("/dev_"):], "_", ":")
}

// bluez wraps a system D-Bus connection for BlueZ operations.
type bluez struct {
	conn   *dbus.Conn
	logger *log.Logger
}

func newBluez() (*bluez, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "connect to system bus")
	}
	// Quick check that BlueZ is on the bus.
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "list bus names")
	}
	found := false
	for _, n := range names {
		if n == busName {
			found = true
			break
		}
	}
	if !found {
		conn.Close()
		return nil, errors.New("org.bluez not found on system bus, is bluetooth.service running?")
	}
	return &bluez{conn: conn, logger: log.Default()}, nil
}

func (b *bluez) close() {
	b.conn.Close()
}

// resolveAdapter returns the adapter named by id, or the default adapter when
// id is empty. errAdapterNotFound is returned when the daemon has no such
// adapter.
func (b *bluez) resolveAdapter(id string) (*adapter, error) {
	manager := b.conn.Object(busName, managerPath)
	var (
		path dbus.ObjectPath
		err  error
	)
	if id != "" {
		err = manager.Call(managerIface+".FindAdapter", 0, id).Store(&path)
	} else {
		err = manager.Call(managerIface+".DefaultAdapter", 0).Store(&path)
	}
	if err != nil {
		return nil, adapterLookupError(b.logger, err)
	}
	return &adapter{conn: b.conn, path: path}, nil
}

// adapterLookupError maps a failed FindAdapter/DefaultAdapter reply to
// errAdapterNotFound, logging it, or wraps any other failure.
func adapterLookupError(logger *log.Logger, err error) error {
	if dbusErrorName(err) == errNameNoSuchAdapter {
		logger.Printf("No adapter available")
		return errAdapterNotFound
	}
	return errors.Wrap(err, "resolve adapter")
}

// subscribeAdapterSignals installs a match rule for every org.bluez.Adapter
// signal emitted by path and returns the channel they are delivered on.
func (b *bluez) subscribeAdapterSignals(path dbus.ObjectPath) (chan *dbus.Signal, error) {
	rule := "type='signal',interface='" + adapterIface + "',path='" + string(path) + "'"
	if err := b.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
		return nil, errors.Wrap(err, "add adapter match rule")
	}
	ch := make(chan *dbus.Signal, 16)
	b.conn.Signal(ch)
	return ch, nil
}

// --- agent export ---

var agentIntrospectData = introspect.Interface{
	Name: agentIface,
	Methods: []introspect.Method{
		{Name: "Release"},
		{
			Name: "Authorize",
			Args: []introspect.Arg{
				{Name: "device", Type: "o", Direction: "in"},
				{Name: "uuid", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "RequestPinCode",
			Args: []introspect.Arg{
				{Name: "device", Type: "o", Direction: "in"},
				{Name: "pincode", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "RequestPasskey",
			Args: []introspect.Arg{
				{Name: "device", Type: "o", Direction: "in"},
				{Name: "passkey", Type: "u", Direction: "out"},
			},
		},
		{
			Name: "DisplayPasskey",
			Args: []introspect.Arg{
				{Name: "device", Type: "o", Direction: "in"},
				{Name: "passkey", Type: "u", Direction: "in"},
			},
		},
		{
			Name: "RequestConfirmation",
			Args: []introspect.Arg{
				{Name: "device", Type: "o", Direction: "in"},
				{Name: "passkey", Type: "u", Direction: "in"},
			},
		},
		{
			Name: "ConfirmModeChange",
			Args: []introspect.Arg{
				{Name: "mode", Type: "s", Direction: "in"},
			},
		},
		{Name: "Cancel"},
	},
}

var agentNode = introspect.Node{
	Interfaces: []introspect.Interface{
		introspect.IntrospectData,
		agentIntrospectData,
	},
}

func (b *bluez) exportAgent(a *agent, path dbus.ObjectPath) error {
	if err := b.conn.Export(a, path, agentIface); err != nil {
		return errors.Wrapf(err, "export agent at %s", path)
	}
	err := b.conn.Export(introspect.NewIntrospectable(&agentNode), path, "org.freedesktop.DBus.Introspectable")
	if err != nil {
		b.conn.Export(nil, path, agentIface)
		return errors.Wrapf(err, "export agent introspection at %s", path)
	}
	return nil
}

func (b *bluez) unexportAgent(path dbus.ObjectPath) {
	b.conn.Export(nil, path, agentIface)
	b.conn.Export(nil, path, "org.freedesktop.DBus.Introspectable")
}

// --- adapter ---

// adapter is a handle on one org.bluez.Adapter object.
type adapter struct {
	conn *dbus.Conn
	path dbus.ObjectPath
}

func (a *adapter) object() dbus.BusObject {
	return a.conn.Object(busName, a.path)
}

func (a *adapter) Path() dbus.ObjectPath {
	return a.path
}

func (a *adapter) ListDevices() ([]dbus.ObjectPath, error) {
	var paths []dbus.ObjectPath
	if err := a.object().Call(adapterIface+".ListDevices", 0).Store(&paths); err != nil {
		return nil, errors.Wrap(err, "list devices")
	}
	return paths, nil
}

func (a *adapter) DeviceProperties(path dbus.ObjectPath) (map[string]dbus.Variant, error) {
	var props map[string]dbus.Variant
	obj := a.conn.Object(busName, path)
	if err := obj.Call(deviceIface+".GetProperties", 0).Store(&props); err != nil {
		return nil, errors.Wrapf(err, "get properties of %s", path)
	}
	return props, nil
}

func (a *adapter) StartDiscovery() error {
	return errors.Wrap(a.object().Call(adapterIface+".StartDiscovery", 0).Err, "start discovery")
}

func (a *adapter) FindDevice(address string) (dbus.ObjectPath, error) {
	var path dbus.ObjectPath
	if err := a.object().Call(adapterIface+".FindDevice", 0, address).Store(&path); err != nil {
		return "", errors.Wrapf(err, "find device %s", address)
	}
	return path, nil
}

func (a *adapter) RemoveDevice(path dbus.ObjectPath) error {
	return errors.Wrapf(a.object().Call(adapterIface+".RemoveDevice", 0, path).Err, "remove device %s", path)
}

// CreatePairedDevice starts pairing with address. The returned call is sent on
// done once the daemon replies.
func (a *adapter) CreatePairedDevice(address string, agentPath dbus.ObjectPath, capability string, done chan *dbus.Call) *dbus.Call {
	return a.object().Go(adapterIface+".CreatePairedDevice", 0, done, address, agentPath, capability)
}

func (a *adapter) RegisterAgent(agentPath dbus.ObjectPath, capability string) error {
	return errors.Wrap(a.object().Call(adapterIface+".RegisterAgent", 0, agentPath, capability).Err, "register agent")
}

func (a *adapter) UnregisterAgent(agentPath dbus.ObjectPath) error {
	return errors.Wrap(a.object().Call(adapterIface+".UnregisterAgent", 0, agentPath).Err, "unregister agent")
}
