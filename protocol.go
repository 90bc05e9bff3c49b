package main

import (
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

// BlueZ 4 bus names and interfaces.
const (
	busName      = "org.bluez"
	managerPath  = "/"
	managerIface = "org.bluez.Manager"
	adapterIface = "org.bluez.Adapter"
	deviceIface  = "org.bluez.Device"
	agentIface   = "org.bluez.Agent"

	deviceFoundSignal     = adapterIface + ".DeviceFound"
	propertyChangedSignal = adapterIface + ".PropertyChanged"
)

// Error names replied by the daemon or returned by our agent.
const (
	errNameNoSuchAdapter    = "org.bluez.Error.NoSuchAdapter"
	errNameDoesNotExist     = "org.bluez.Error.DoesNotExist"
	errNameRejected         = "org.bluez.Error.Rejected"
	errNameCanceled         = "org.bluez.Error.Canceled"
	errNameInvalidArguments = "org.bluez.Error.InvalidArguments"
)

// Agent IO capabilities understood by CreatePairedDevice and RegisterAgent.
const (
	CapabilityDisplayOnly     = "DisplayOnly"
	CapabilityDisplayYesNo    = "DisplayYesNo"
	CapabilityKeyboardOnly    = "KeyboardOnly"
	CapabilityNoInputNoOutput = "NoInputNoOutput"
	CapabilityKeyboardDisplay = "KeyboardDisplay"
)

func validCapability(c string) bool {
	switch c {
	case CapabilityDisplayOnly, CapabilityDisplayYesNo, CapabilityKeyboardOnly,
		CapabilityNoInputNoOutput, CapabilityKeyboardDisplay:
		return true
	}
	return false
}

var errAdapterNotFound = errors.New("no adapter found")

// dbusErrorName returns the D-Bus error name carried by err, or "" if err is
// not an error reply.
func dbusErrorName(err error) string {
	var ptr *dbus.Error
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Name
	}
	var val dbus.Error
	if errors.As(err, &val) {
		return val.Name
	}
	return ""
}

func rejected(reason string) *dbus.Error {
	return dbus.NewError(errNameRejected, []interface{}{reason})
}

func canceled(reason string) *dbus.Error {
	return dbus.NewError(errNameCanceled, []interface{}{reason})
}

func invalidInput(reason string) *dbus.Error {
	return dbus.NewError(errNameInvalidArguments, []interface{}{reason})
}
