package detection

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule describes a windowed count-threshold detection. All rules share this
// shape; SSHBruteForceRule is the built-in default.
type Rule struct {
	Name      string
	EventType string
	AlertType string
	Threshold int
	Window    time.Duration
	Severity  int
}

// SSHBruteForceRule flags sources producing repeated failed logins. The
// window is deliberately generous to accommodate delayed ingestion.
func SSHBruteForceRule() Rule {
	return Rule{
		Name:      "ssh-brute-force",
		EventType: "FAILED_LOGIN",
		AlertType: "SSH_BRUTE_FORCE",
		Threshold: 5,
		Window:    48 * time.Hour,
		Severity:  4,
	}
}

// Validate checks that the rule is runnable.
func (r Rule) Validate() error {
	if r.EventType == "" {
		return fmt.Errorf("rule %q: event_type is required", r.Name)
	}
	if r.AlertType == "" {
		return fmt.Errorf("rule %q: alert_type is required", r.Name)
	}
	if r.Threshold < 1 {
		return fmt.Errorf("rule %q: threshold must be at least 1", r.Name)
	}
	if r.Window <= 0 {
		return fmt.Errorf("rule %q: window must be positive", r.Name)
	}
	if r.Severity < 1 || r.Severity > 5 {
		return fmt.Errorf("rule %q: severity must be between 1 and 5", r.Name)
	}
	return nil
}

type ruleSpec struct {
	Name      string `yaml:"name"`
	EventType string `yaml:"event_type"`
	AlertType string `yaml:"alert_type"`
	Threshold int    `yaml:"threshold"`
	Window    string `yaml:"window"`
	Severity  int    `yaml:"severity"`
}

type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

// LoadRules reads rule definitions from a YAML file. Threshold, window and
// severity fall back to the built-in defaults when omitted.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	defaults := SSHBruteForceRule()
	rules := make([]Rule, 0, len(file.Rules))
	for _, spec := range file.Rules {
		rule := Rule{
			Name:      spec.Name,
			EventType: spec.EventType,
			AlertType: spec.AlertType,
			Threshold: spec.Threshold,
			Severity:  spec.Severity,
		}
		if rule.Threshold == 0 {
			rule.Threshold = defaults.Threshold
		}
		if rule.Severity == 0 {
			rule.Severity = defaults.Severity
		}
		if spec.Window == "" {
			rule.Window = defaults.Window
		} else {
			window, err := time.ParseDuration(spec.Window)
			if err != nil {
				return nil, fmt.Errorf("rule %q: invalid window %q: %w", spec.Name, spec.Window, err)
			}
			rule.Window = window
		}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	if len(rules) == 0 {
		return nil, fmt.Errorf("rules file %s defines no rules", path)
	}
	return rules, nil
}
