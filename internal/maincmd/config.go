package maincmd

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// defaultConfigPath is the run profile the run command loads, if it exists.
const defaultConfigPath = ".vela.yaml"

// RunConfig holds the execution limits applied to every Thread the run
// command starts, loaded from a YAML run profile and then overridden by
// VELA_* environment variables (env over profile, then the zero value).
// ModulePath is read from the profile but the run command does not use it.
type RunConfig struct {
	MaxSteps          int      `yaml:"max_steps" env:"VELA_MAX_STEPS"`
	MaxCallStackDepth int      `yaml:"max_call_stack_depth" env:"VELA_MAX_CALL_STACK_DEPTH"`
	DisableRecursion  bool     `yaml:"disable_recursion" env:"VELA_DISABLE_RECURSION"`
	ModulePath        []string `yaml:"module_path"`
}

// loadRunConfig reads path (defaultConfigPath if empty) when it exists,
// then applies any VELA_* environment overrides on top. A missing profile
// file is not an error: every field simply keeps its zero value unless an
// environment variable sets it.
func loadRunConfig(path string) (RunConfig, error) {
	var cfg RunConfig
	if path == "" {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// no run profile, fall through to environment overrides only
	default:
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("reading environment overrides: %w", err)
	}
	return cfg, nil
}
