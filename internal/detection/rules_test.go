package detection

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSSHBruteForceRuleIsValid(t *testing.T) {
	rule := SSHBruteForceRule()
	require.NoError(t, rule.Validate())
	assert.Equal(t, "FAILED_LOGIN", rule.EventType)
	assert.Equal(t, "SSH_BRUTE_FORCE", rule.AlertType)
	assert.Equal(t, 5, rule.Threshold)
	assert.Equal(t, 48*time.Hour, rule.Window)
}

func TestRuleValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rule)
	}{
		{"missing event type", func(r *Rule) { r.EventType = "" }},
		{"missing alert type", func(r *Rule) { r.AlertType = "" }},
		{"zero threshold", func(r *Rule) { r.Threshold = 0 }},
		{"negative window", func(r *Rule) { r.Window = -time.Hour }},
		{"severity too low", func(r *Rule) { r.Severity = 0 }},
		{"severity too high", func(r *Rule) { r.Severity = 6 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := SSHBruteForceRule()
			tt.mutate(&rule)
			assert.Error(t, rule.Validate())
		})
	}
}

func TestLoadRules(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - name: rdp-brute-force
    event_type: FAILED_RDP_LOGIN
    alert_type: RDP_BRUTE_FORCE
    threshold: 10
    window: 1h
    severity: 3
`)

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	assert.Equal(t, "rdp-brute-force", rules[0].Name)
	assert.Equal(t, "FAILED_RDP_LOGIN", rules[0].EventType)
	assert.Equal(t, "RDP_BRUTE_FORCE", rules[0].AlertType)
	assert.Equal(t, 10, rules[0].Threshold)
	assert.Equal(t, time.Hour, rules[0].Window)
	assert.Equal(t, 3, rules[0].Severity)
}

func TestLoadRulesAppliesDefaults(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - name: minimal
    event_type: FAILED_LOGIN
    alert_type: SSH_BRUTE_FORCE
`)

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	defaults := SSHBruteForceRule()
	assert.Equal(t, defaults.Threshold, rules[0].Threshold)
	assert.Equal(t, defaults.Window, rules[0].Window)
	assert.Equal(t, defaults.Severity, rules[0].Severity)
}

func TestLoadRulesRejectsInvalidWindow(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - name: bad-window
    event_type: FAILED_LOGIN
    alert_type: SSH_BRUTE_FORCE
    window: soon
`)

	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestLoadRulesRejectsEmptyFile(t *testing.T) {
	path := writeRulesFile(t, "rules: []\n")

	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestLoadRulesMissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
