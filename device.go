package main

import (
	"strings"

	"github.com/godbus/dbus/v5"
)

// Device is a remote Bluetooth device as last reported by the daemon.
type Device struct {
	Address string
	Name    string
	Paired  bool
	Class   uint32
	Trusted bool
}

// newDevice builds a Device from a BlueZ property map. Missing or mistyped
// properties keep their zero value.
func newDevice(address string, props map[string]dbus.Variant) *Device {
	d := &Device{Address: address}
	if v, ok := props["Name"].Value().(string); ok {
		d.Name = v
	}
	if v, ok := props["Paired"].Value().(bool); ok {
		d.Paired = v
	}
	if v, ok := props["Class"].Value().(uint32); ok {
		d.Class = v
	}
	if v, ok := props["Trusted"].Value().(bool); ok {
		d.Trusted = v
	}
	return d
}

// deviceList keeps devices in first-seen order, unique by address.
type deviceList []*Device

// add appends d unless a device with the same address is already present.
// It reports whether d was added.
func (l *deviceList) add(d *Device) bool {
	if l.find(d.Address) != nil {
		return false
	}
	*l = append(*l, d)
	return true
}

// find looks address up ignoring case.
func (l deviceList) find(address string) *Device {
	for _, d := range l {
		if strings.EqualFold(d.Address, address) {
			return d
		}
	}
	return nil
}
