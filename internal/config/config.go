package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"

	"github.com/VikingOwl91/procjail/internal/integrity"
	"github.com/VikingOwl91/procjail/internal/jail"
)

var aliasPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// defaultEnvAllowlist is applied when a jail does not set its own.
var defaultEnvAllowlist = []string{
	"PATH", "HOME", "LANG", "LC_ALL", "TERM", "TMPDIR", "TZ", "USER", "SHELL",
}

// JailConfig describes one launchable target.
type JailConfig struct {
	Command      string   `yaml:"command"`
	Args         []string `yaml:"args,omitempty"`
	Dir          string   `yaml:"dir,omitempty"`
	Pin          string   `yaml:"pin,omitempty"`
	AllowedPaths []string `yaml:"allowed_paths,omitempty"`
	Bindings     []string `yaml:"bindings,omitempty"`
	EnvAllowlist []string `yaml:"env_allowlist,omitempty"`
}

type PolicyRule struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
	Effect     string `yaml:"effect"`
}

type PolicyConfig struct {
	Default string       `yaml:"default"`
	Rules   []PolicyRule `yaml:"rules,omitempty"`
}

type Config struct {
	Jails      map[string]JailConfig `yaml:"jails"`
	Policy     PolicyConfig          `yaml:"policy,omitempty"`
	LogLevel   string                `yaml:"log_level"`
	OutputDir  string                `yaml:"output_dir"`
	JailRunner string                `yaml:"jail_runner"`
	Wrapper    string                `yaml:"wrapper"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Jails) == 0 {
		return fmt.Errorf("at least one jail is required")
	}

	for alias, jc := range c.Jails {
		if err := validateAlias(alias); err != nil {
			return err
		}
		if jc.Command == "" {
			return fmt.Errorf("jail %q: command is required", alias)
		}
		if jc.Pin != "" {
			if _, err := integrity.ParsePin(jc.Pin); err != nil {
				return fmt.Errorf("jail %q: %w", alias, err)
			}
		}
		for _, b := range jc.Bindings {
			if _, err := jail.ParseBinding(b); err != nil {
				return fmt.Errorf("jail %q: %w", alias, err)
			}
		}
		if len(jc.EnvAllowlist) == 0 {
			jc.EnvAllowlist = defaultEnvAllowlist
			c.Jails[alias] = jc
		}
	}

	if err := c.validatePolicy(); err != nil {
		return err
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.OutputDir == "" {
		c.OutputDir = "/tmp/procjail-out"
	}
	if c.JailRunner == "" {
		c.JailRunner = "minijail0"
	}

	return nil
}

func validateAlias(alias string) error {
	if alias == "" {
		return fmt.Errorf("jail alias must not be empty")
	}
	if len(alias) > 32 {
		return fmt.Errorf("jail alias %q exceeds 32 characters", alias)
	}
	if !aliasPattern.MatchString(alias) {
		return fmt.Errorf("jail alias %q must match [a-zA-Z0-9_-]+", alias)
	}
	return nil
}

func (c *Config) validatePolicy() error {
	if c.Policy.Default == "" {
		c.Policy.Default = "deny"
	}
	if c.Policy.Default != "allow" && c.Policy.Default != "deny" {
		return fmt.Errorf("policy default must be 'allow' or 'deny', got %q", c.Policy.Default)
	}

	seen := make(map[string]bool)
	for i, rule := range c.Policy.Rules {
		if rule.Effect != "allow" && rule.Effect != "deny" {
			return fmt.Errorf("rule %d (%q): effect must be 'allow' or 'deny', got %q", i, rule.Name, rule.Effect)
		}
		if seen[rule.Name] {
			return fmt.Errorf("rule %d: duplicate rule name %q", i, rule.Name)
		}
		seen[rule.Name] = true
	}

	return validateCELExpressions(c.Policy.Rules)
}

func validateCELExpressions(rules []PolicyRule) error {
	if len(rules) == 0 {
		return nil
	}

	env, err := cel.NewEnv(
		cel.Variable("command", cel.StringType),
		cel.Variable("args", cel.ListType(cel.StringType)),
		cel.Variable("dir", cel.StringType),
	)
	if err != nil {
		return fmt.Errorf("creating CEL environment: %w", err)
	}

	for _, rule := range rules {
		_, issues := env.Compile(rule.Expression)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("rule %q: invalid CEL expression: %w", rule.Name, issues.Err())
		}
	}

	return nil
}
