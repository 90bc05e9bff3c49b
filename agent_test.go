package main

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"
)

// scriptedPrompter answers prompts from a fixed list.
type scriptedPrompter struct {
	answers []string
	asked   []string
	shown   []string
}

func (p *scriptedPrompter) Ask(question string) (string, error) {
	p.asked = append(p.asked, question)
	if len(p.answers) == 0 {
		return "", io.EOF
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func (p *scriptedPrompter) Show(line string) {
	p.shown = append(p.shown, line)
}

func testAgent(answers ...string) (*agent, *scriptedPrompter, *bytes.Buffer) {
	p := &scriptedPrompter{answers: answers}
	var buf bytes.Buffer
	return newAgent(p, log.New(&buf, "", 0)), p, &buf
}

const testDevicePath = dbus.ObjectPath("/org/bluez/1234/hci0/dev_00_11_22_33_44_55")

func TestAgentYesNoPrompts(t *testing.T) {
	calls := map[string]func(a *agent) *dbus.Error{
		"Authorize": func(a *agent) *dbus.Error {
			return a.Authorize(testDevicePath, "0000110b-0000-1000-8000-00805f9b34fb")
		},
		"RequestConfirmation": func(a *agent) *dbus.Error {
			return a.RequestConfirmation(testDevicePath, 42)
		},
		"ConfirmModeChange": func(a *agent) *dbus.Error {
			return a.ConfirmModeChange("discoverable")
		},
	}

	for name, call := range calls {
		a, _, _ := testAgent("yes")
		if err := call(a); err != nil {
			t.Fatalf("%s(yes) = %v, want nil", name, err)
		}

		for _, answer := range []string{"no", "", "YES", "y"} {
			a, _, _ := testAgent(answer)
			err := call(a)
			if err == nil {
				t.Fatalf("%s(%q) succeeded, want Rejected", name, answer)
			}
			if err.Name != errNameRejected {
				t.Fatalf("%s(%q) error name = %q, want %q", name, answer, err.Name, errNameRejected)
			}
			if len(err.Body) != 1 || err.Body[0] == "" {
				t.Fatalf("%s(%q) error carries no reason: %+v", name, answer, err.Body)
			}
		}
	}
}

func TestAgentPromptFailureCancels(t *testing.T) {
	a, _, _ := testAgent()
	err := a.Authorize(testDevicePath, "uuid")
	if err == nil || err.Name != errNameCanceled {
		t.Fatalf("Authorize without input = %v, want %s", err, errNameCanceled)
	}
	if _, err := a.RequestPinCode(testDevicePath); err == nil || err.Name != errNameCanceled {
		t.Fatalf("RequestPinCode without input = %v, want %s", err, errNameCanceled)
	}
}

func TestAgentRequestPinCodeVerbatim(t *testing.T) {
	a, p, _ := testAgent(" 0000abc")
	pin, err := a.RequestPinCode(testDevicePath)
	if err != nil {
		t.Fatalf("RequestPinCode: %v", err)
	}
	if pin != " 0000abc" {
		t.Fatalf("pin = %q, want verbatim input", pin)
	}
	if len(p.asked) != 1 || p.asked[0] != "Enter PIN Code: " {
		t.Fatalf("unexpected prompts: %q", p.asked)
	}
}

func TestAgentRequestPasskey(t *testing.T) {
	a, _, _ := testAgent("123456")
	passkey, err := a.RequestPasskey(testDevicePath)
	if err != nil {
		t.Fatalf("RequestPasskey: %v", err)
	}
	if passkey != 123456 {
		t.Fatalf("passkey = %d, want 123456", passkey)
	}

	for _, input := range []string{"abc", "12a", "-1", "", "1000000"} {
		a, _, _ := testAgent(input)
		passkey, err := a.RequestPasskey(testDevicePath)
		if err == nil {
			t.Fatalf("RequestPasskey(%q) = %d, want error", input, passkey)
		}
		if err.Name != errNameInvalidArguments {
			t.Fatalf("RequestPasskey(%q) error name = %q", input, err.Name)
		}
	}
}

func TestAgentDisplayPasskeyPads(t *testing.T) {
	a, p, _ := testAgent()
	if err := a.DisplayPasskey(testDevicePath, 42); err != nil {
		t.Fatalf("DisplayPasskey: %v", err)
	}
	if len(p.asked) != 0 {
		t.Fatalf("DisplayPasskey prompted: %q", p.asked)
	}
	if len(p.shown) != 1 || !strings.HasSuffix(p.shown[0], ", 000042)") {
		t.Fatalf("unexpected output: %q", p.shown)
	}
	if !strings.Contains(p.shown[0], "00:11:22:33:44:55") {
		t.Fatalf("output does not name the device: %q", p.shown[0])
	}
}

func TestAgentRelease(t *testing.T) {
	released := 0

	a, _, _ := testAgent()
	a.onRelease = func() { released++ }
	if err := a.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if released != 1 {
		t.Fatalf("exit-on-release agent released %d times, want 1", released)
	}

	a, _, _ = testAgent()
	a.exitOnRelease = false
	a.onRelease = func() { released++ }
	a.Release()
	if released != 1 {
		t.Fatal("transient agent stopped the caller on Release")
	}
}

func TestAgentCancelLogs(t *testing.T) {
	a, _, buf := testAgent()
	if err := a.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !strings.Contains(buf.String(), "Cancel") {
		t.Fatalf("Cancel not logged: %q", buf.String())
	}
}
