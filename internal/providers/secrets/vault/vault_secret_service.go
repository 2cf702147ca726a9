// Package vault reads secrets from a HashiCorp Vault KV mount using token
// auth. Each secret name maps to one KV entry whose "value" field holds the
// secret payload.
package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dataeng-tools/airmeta/config"
	"github.com/dataeng-tools/airmeta/debugctx"
	"github.com/dataeng-tools/airmeta/faults"
	"github.com/dataeng-tools/airmeta/secrets"
)

const (
	defaultMount     = "secret"
	defaultKVVersion = 2
	requestTimeout   = 30 * time.Second
	valueField       = "value"
)

var _ secrets.Provider = (*SecretService)(nil)

type SecretService struct {
	client     *http.Client
	address    string
	token      string
	mount      string
	pathPrefix string
	kvVersion  int
}

type kvV2ReadResponse struct {
	Data struct {
		Data map[string]any `json:"data"`
	} `json:"data"`
}

type kvV1ReadResponse struct {
	Data map[string]any `json:"data"`
}

func NewSecretService(cfg config.VaultSecretStore) (*SecretService, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		return nil, configError("secret-store.vault.address is required", nil)
	}
	parsed, err := url.Parse(address)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, configError(fmt.Sprintf("secret-store.vault.address %q is invalid", address), err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" && strings.TrimSpace(cfg.TokenFile) != "" {
		data, err := os.ReadFile(strings.TrimSpace(cfg.TokenFile))
		if err != nil {
			return nil, configError("secret-store.vault.token-file could not be read", err)
		}
		token = strings.TrimSpace(string(data))
	}
	if token == "" {
		return nil, configError("secret-store.vault requires token or token-file", nil)
	}

	kvVersion := cfg.KVVersion
	if kvVersion == 0 {
		kvVersion = defaultKVVersion
	}
	if kvVersion != 1 && kvVersion != 2 {
		return nil, configError(fmt.Sprintf("unsupported vault kv version %d", kvVersion), nil)
	}

	mount := strings.Trim(cfg.Mount, "/")
	if mount == "" {
		mount = defaultMount
	}

	return &SecretService{
		client:     &http.Client{Timeout: requestTimeout},
		address:    strings.TrimSuffix(address, "/"),
		token:      token,
		mount:      mount,
		pathPrefix: strings.Trim(cfg.PathPrefix, "/"),
		kvVersion:  kvVersion,
	}, nil
}

func (s *SecretService) GetSecret(ctx context.Context, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", configError("secret name is required", nil)
	}

	requestURL := s.readURL(trimmed)
	debugctx.Printf(ctx, debugctx.GroupSecrets, "vault read %s", requestURL)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", internalError("vault request could not be created", err)
	}
	request.Header.Set("X-Vault-Token", s.token)

	response, err := s.client.Do(request)
	if err != nil {
		return "", remoteError("vault request failed", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return "", remoteError("vault response could not be read", err)
	}

	switch {
	case response.StatusCode == http.StatusNotFound:
		return "", faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("secret %q not found in vault", trimmed), nil)
	case response.StatusCode >= http.StatusBadRequest:
		return "", remoteError(fmt.Sprintf("vault returned status %d", response.StatusCode), nil)
	}

	data, err := s.decodeData(body)
	if err != nil {
		return "", err
	}

	value, ok := data[valueField].(string)
	if !ok {
		return "", validationError(fmt.Sprintf("vault secret %q has no string %q field", trimmed, valueField), nil)
	}
	return value, nil
}

func (s *SecretService) readURL(name string) string {
	segments := []string{"v1", s.mount}
	if s.kvVersion == 2 {
		segments = append(segments, "data")
	}
	if s.pathPrefix != "" {
		segments = append(segments, s.pathPrefix)
	}
	segments = append(segments, name)
	return s.address + "/" + path.Join(segments...)
}

func (s *SecretService) decodeData(body []byte) (map[string]any, error) {
	if s.kvVersion == 2 {
		var decoded kvV2ReadResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, validationError("vault kv v2 response is malformed", err)
		}
		return decoded.Data.Data, nil
	}

	var decoded kvV1ReadResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, validationError("vault kv v1 response is malformed", err)
	}
	return decoded.Data, nil
}

func configError(message string, cause error) error {
	return faults.NewTypedError(faults.ConfigError, message, cause)
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func remoteError(message string, cause error) error {
	return faults.NewTypedError(faults.RemoteError, message, cause)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
