package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if body == "" {
		return
	}
	path := filepath.Join(dir, "bluespeak", "config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	writeConfig(t, "")
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg != (Config{}) {
		t.Fatalf("loadConfig without a file = %+v, want zero config", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	writeConfig(t, `{"adapter": "hci1", "capability": "KeyboardDisplay", "agent_path": "/bluespeak/agent"}`)
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := Config{Adapter: "hci1", Capability: CapabilityKeyboardDisplay, AgentPath: "/bluespeak/agent"}
	if cfg != want {
		t.Fatalf("loadConfig = %+v, want %+v", cfg, want)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	writeConfig(t, `{"adapter": `)
	if _, err := loadConfig(); err == nil {
		t.Fatal("loadConfig accepted malformed JSON")
	}
}

func TestConfigMerge(t *testing.T) {
	file := Config{Adapter: "hci1", Capability: CapabilityKeyboardOnly}
	cfg, err := file.merge(Config{Adapter: "hci0", AgentPath: "/x/agent"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	want := Config{Adapter: "hci0", Capability: CapabilityKeyboardOnly, AgentPath: "/x/agent"}
	if cfg != want {
		t.Fatalf("merge = %+v, want %+v", cfg, want)
	}

	for _, bad := range []Config{
		{Capability: "Telepathy"},
		{AgentPath: "relative/agent"},
		{AgentPath: "/trailing/"},
	} {
		if _, err := (Config{}).merge(bad); err == nil {
			t.Fatalf("merge accepted %+v", bad)
		}
	}
}
