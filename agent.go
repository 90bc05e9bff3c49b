package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"
)

const maxPasskey = 999999

// agent implements org.bluez.Agent. The daemon calls its exported methods
// while a pairing or authorization is in progress.
type agent struct {
	prompt prompter
	logger *log.Logger

	// exitOnRelease makes Release call onRelease.
	exitOnRelease bool
	onRelease     func()
}

func newAgent(p prompter, logger *log.Logger) *agent {
	if logger == nil {
		logger = log.Default()
	}
	return &agent{prompt: p, logger: logger, exitOnRelease: true}
}

func describeDevice(path dbus.ObjectPath) string {
	if mac := macFromPath(path); mac != "" {
		return fmt.Sprintf("%s [%s]", path, mac)
	}
	return string(path)
}

// confirm asks question and maps anything but "yes" to a Rejected error.
func (a *agent) confirm(question, reason string) *dbus.Error {
	answer, err := a.prompt.Ask(question)
	if err != nil {
		a.logger.Printf("prompt failed: %v", err)
		return canceled(err.Error())
	}
	if strings.TrimSpace(answer) == "yes" {
		return nil
	}
	return rejected(reason)
}

func (a *agent) Release() *dbus.Error {
	a.logger.Printf("Release")
	if a.exitOnRelease && a.onRelease != nil {
		a.onRelease()
	}
	return nil
}

func (a *agent) Authorize(device dbus.ObjectPath, uuid string) *dbus.Error {
	a.prompt.Show(fmt.Sprintf("Authorize (%s, %s)", describeDevice(device), uuid))
	return a.confirm("Authorize connection (yes/no): ", "Connection rejected by user")
}

func (a *agent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	a.prompt.Show(fmt.Sprintf("RequestPinCode (%s)", describeDevice(device)))
	pin, err := a.prompt.Ask("Enter PIN Code: ")
	if err != nil {
		a.logger.Printf("prompt failed: %v", err)
		return "", canceled(err.Error())
	}
	return pin, nil
}

func (a *agent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	a.prompt.Show(fmt.Sprintf("RequestPasskey (%s)", describeDevice(device)))
	answer, err := a.prompt.Ask("Enter passkey: ")
	if err != nil {
		a.logger.Printf("prompt failed: %v", err)
		return 0, canceled(err.Error())
	}
	passkey, err := parsePasskey(answer)
	if err != nil {
		return 0, invalidInput(err.Error())
	}
	return passkey, nil
}

func (a *agent) DisplayPasskey(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	a.prompt.Show(fmt.Sprintf("DisplayPasskey (%s, %06d)", describeDevice(device), passkey))
	return nil
}

func (a *agent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	a.prompt.Show(fmt.Sprintf("RequestConfirmation (%s, %06d)", describeDevice(device), passkey))
	return a.confirm("Confirm passkey (yes/no): ", "Passkey doesn't match")
}

func (a *agent) ConfirmModeChange(mode string) *dbus.Error {
	a.prompt.Show(fmt.Sprintf("ConfirmModeChange (%s)", mode))
	return a.confirm("Authorize mode change (yes/no): ", "Mode change rejected by user")
}

func (a *agent) Cancel() *dbus.Error {
	a.logger.Printf("Cancel")
	return nil
}

// parsePasskey accepts a decimal passkey of at most six digits.
func parsePasskey(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("passkey %q is not a number", s)
	}
	if n > maxPasskey {
		return 0, fmt.Errorf("passkey %d is out of range", n)
	}
	return uint32(n), nil
}
