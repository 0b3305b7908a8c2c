package swarm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultSwarmConfig("node-1")
	if err := config.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SwarmConfig)
		wantErr error
	}{
		{"empty node name", func(c *SwarmConfig) { c.NodeName = "" }, ErrInvalidNodeName},
		{"zero tick interval", func(c *SwarmConfig) { c.TickInterval = 0 }, ErrInvalidTickInterval},
		{"term shorter than tick", func(c *SwarmConfig) { c.TermDuration = c.TickInterval }, ErrInvalidTermDuration},
		{"zero election timeout", func(c *SwarmConfig) { c.ElectionTimeoutBase = 0 }, ErrInvalidElectionTimeout},
		{"negative jitter", func(c *SwarmConfig) { c.ElectionTimeoutJitter = -time.Second }, ErrInvalidElectionTimeout},
		{"probability above one", func(c *SwarmConfig) { c.NominationProbability = 1.1 }, ErrInvalidNominationProbability},
		{"zero quorum threshold", func(c *SwarmConfig) { c.ElectionQuorumThreshold = 0 }, ErrInvalidQuorumThreshold},
		{"quorum above one", func(c *SwarmConfig) { c.ElectionQuorumThreshold = 1.5 }, ErrInvalidQuorumThreshold},
		{"trust floor above one", func(c *SwarmConfig) { c.MinTrustToLead = 2 }, ErrInvalidQualificationThreshold},
		{"zero sweep interval", func(c *SwarmConfig) { c.SweepInterval = 0 }, ErrInvalidSweepConfig},
		{"zero sweep grace period", func(c *SwarmConfig) { c.SweepGracePeriod = 0 }, ErrInvalidSweepConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultSwarmConfig("node-1")
			tt.mutate(&config)
			if err := config.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swarm.yaml")

	content := []byte(`
node_name: yaml-node
tick_interval: 3s
term_duration: 2m
nomination_probability: 0.25
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.NodeName != "yaml-node" {
		t.Errorf("expected yaml-node, got %s", config.NodeName)
	}
	if config.TickInterval != 3*time.Second {
		t.Errorf("expected 3s tick interval, got %v", config.TickInterval)
	}
	if config.NominationProbability != 0.25 {
		t.Errorf("expected 0.25 probability, got %v", config.NominationProbability)
	}

	// Unset fields fall back to defaults
	if config.ElectionQuorumThreshold != 0.5 {
		t.Errorf("expected default quorum threshold, got %v", config.ElectionQuorumThreshold)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swarm.yaml")

	if err := os.WriteFile(path, []byte("node_name: \"\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidNodeName) {
		t.Errorf("expected ErrInvalidNodeName, got %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/swarm.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
