package config

const (
	ConfigFileEnvVar  = "AIRMETA_CONFIG"
	DefaultConfigPath = "~/.airmeta/config.yaml"
)

// Config is the on-disk tool configuration: the catalog of reachable
// environments plus the secret store everything else reads credentials from.
type Config struct {
	Environments []Environment `yaml:"environments"`
	SecretStore  *SecretStore  `yaml:"secret-store,omitempty"`
	Defaults     Defaults      `yaml:"defaults,omitempty"`
}

type Environment struct {
	Name         string     `yaml:"name"`
	ProjectID    string     `yaml:"project-id"`
	WebserverURL string     `yaml:"webserver-url"`
	Auth         *BasicAuth `yaml:"auth,omitempty"`
}

// BasicAuth names the API service account. The password itself never lives
// in the config file; PasswordSecret is resolved through the secret store
// once per run.
type BasicAuth struct {
	Username       string `yaml:"username"`
	PasswordSecret string `yaml:"password-secret"`
}

type SecretStore struct {
	File  *FileSecretStore  `yaml:"file,omitempty"`
	Vault *VaultSecretStore `yaml:"vault,omitempty"`
}

type FileSecretStore struct {
	Path           string `yaml:"path"`
	Key            string `yaml:"key,omitempty"`
	KeyFile        string `yaml:"key-file,omitempty"`
	Passphrase     string `yaml:"passphrase,omitempty"`
	PassphraseFile string `yaml:"passphrase-file,omitempty"`
}

type VaultSecretStore struct {
	Address    string `yaml:"address"`
	Token      string `yaml:"token,omitempty"`
	TokenFile  string `yaml:"token-file,omitempty"`
	Mount      string `yaml:"mount,omitempty"`
	KVVersion  int    `yaml:"kv-version,omitempty"`
	PathPrefix string `yaml:"path-prefix,omitempty"`
}

type Defaults struct {
	FailOnImportError *bool `yaml:"fail-on-import-error,omitempty"`
}

func (d Defaults) FailOnImportErrorEnabled() bool {
	if d.FailOnImportError == nil {
		return true
	}
	return *d.FailOnImportError
}
