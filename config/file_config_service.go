package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/dataeng-tools/airmeta/faults"
)

// ResolvePath returns the config file location, honoring the
// AIRMETA_CONFIG override.
func ResolvePath() (string, error) {
	if override := strings.TrimSpace(os.Getenv(ConfigFileEnvVar)); override != "" {
		return expandHome(override)
	}
	return expandHome(DefaultConfigPath)
}

func Load(path string) (*Config, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		var err error
		resolved, err = ResolvePath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, configError(fmt.Sprintf("config file %s not found", resolved), err)
		}
		return nil, configError(fmt.Sprintf("config file %s could not be read", resolved), err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, configError(fmt.Sprintf("config file %s is not valid YAML", resolved), err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LookupEnvironment finds the environment entry by name.
func (c *Config) LookupEnvironment(name string) (Environment, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Environment{}, configError("environment name is required", nil)
	}
	for _, env := range c.Environments {
		if env.Name == trimmed {
			return env, nil
		}
	}
	return Environment{}, configError(fmt.Sprintf("environment %q is not defined in the config file", trimmed), nil)
}

func validate(cfg *Config) error {
	seen := make(map[string]struct{}, len(cfg.Environments))
	for idx := range cfg.Environments {
		env := &cfg.Environments[idx]
		env.Name = strings.TrimSpace(env.Name)
		if env.Name == "" {
			return configError("environments[].name is required", nil)
		}
		if _, dup := seen[env.Name]; dup {
			return configError(fmt.Sprintf("environment %q is defined twice", env.Name), nil)
		}
		seen[env.Name] = struct{}{}

		if strings.TrimSpace(env.WebserverURL) == "" {
			return configError(fmt.Sprintf("environment %q requires webserver-url", env.Name), nil)
		}
		if env.Auth != nil {
			if strings.TrimSpace(env.Auth.Username) == "" || strings.TrimSpace(env.Auth.PasswordSecret) == "" {
				return configError(fmt.Sprintf("environment %q auth requires username and password-secret", env.Name), nil)
			}
		}
	}

	if cfg.SecretStore != nil {
		setCount := 0
		if cfg.SecretStore.File != nil {
			setCount++
		}
		if cfg.SecretStore.Vault != nil {
			setCount++
		}
		if setCount != 1 {
			return configError("secret-store must define exactly one of file, vault", nil)
		}
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return filepath.Clean(path), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", configError("user home directory could not be resolved", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func configError(message string, cause error) error {
	return faults.NewTypedError(faults.ConfigError, message, cause)
}
