// Package file implements the secret store as a single AES-GCM encrypted
// JSON document on local disk. The data key is either supplied directly or
// derived from a passphrase with argon2id.
package file

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"

	"github.com/dataeng-tools/airmeta/config"
	"github.com/dataeng-tools/airmeta/debugctx"
	"github.com/dataeng-tools/airmeta/faults"
	"github.com/dataeng-tools/airmeta/secrets"
)

const (
	storeVersion     = 1
	keyLengthBytes   = 32
	nonceLengthBytes = 12
	saltLengthBytes  = 16

	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
)

var _ secrets.Provider = (*SecretService)(nil)

type SecretService struct {
	path       string
	key        []byte
	passphrase []byte

	mu sync.Mutex
}

type encryptedStore struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt,omitempty"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

type secretSnapshot struct {
	Secrets map[string]string `json:"secrets"`
}

func NewSecretService(cfg config.FileSecretStore) (*SecretService, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, configError("secret-store.file.path is required", nil)
	}

	setCount := 0
	for _, set := range []bool{
		strings.TrimSpace(cfg.Key) != "",
		strings.TrimSpace(cfg.KeyFile) != "",
		strings.TrimSpace(cfg.Passphrase) != "",
		strings.TrimSpace(cfg.PassphraseFile) != "",
	} {
		if set {
			setCount++
		}
	}
	if setCount != 1 {
		return nil, configError("secret-store.file must define exactly one of key, key-file, passphrase, passphrase-file", nil)
	}

	service := &SecretService{path: filepath.Clean(path)}

	switch {
	case strings.TrimSpace(cfg.Key) != "":
		key, err := parseEncryptionKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		service.key = key
	case strings.TrimSpace(cfg.KeyFile) != "":
		data, err := os.ReadFile(strings.TrimSpace(cfg.KeyFile))
		if err != nil {
			return nil, configError("secret-store.file.key-file could not be read", err)
		}
		key, err := parseEncryptionKey(string(data))
		if err != nil {
			return nil, err
		}
		service.key = key
	case strings.TrimSpace(cfg.Passphrase) != "":
		service.passphrase = []byte(strings.TrimSpace(cfg.Passphrase))
	default:
		data, err := os.ReadFile(strings.TrimSpace(cfg.PassphraseFile))
		if err != nil {
			return nil, configError("secret-store.file.passphrase-file could not be read", err)
		}
		passphrase := strings.TrimSpace(string(data))
		if passphrase == "" {
			return nil, configError("secret-store.file.passphrase-file must not be empty", nil)
		}
		service.passphrase = []byte(passphrase)
	}

	return service, nil
}

func (s *SecretService) GetSecret(ctx context.Context, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", configError("secret name is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.loadSnapshot()
	if err != nil {
		return "", err
	}

	value, ok := snapshot.Secrets[trimmed]
	if !ok {
		return "", faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("secret %q not found in %s", trimmed, s.path), nil)
	}
	debugctx.Printf(ctx, debugctx.GroupSecrets, "resolved secret %s from file store", trimmed)
	return value, nil
}

// SetSecret stores or replaces one secret, re-encrypting the whole document
// with a fresh nonce.
func (s *SecretService) SetSecret(_ context.Context, name string, value string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return configError("secret name is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.loadSnapshot()
	if err != nil {
		if !faults.IsCategory(err, faults.ConfigError) {
			return err
		}
		snapshot = &secretSnapshot{Secrets: map[string]string{}}
	}
	if snapshot.Secrets == nil {
		snapshot.Secrets = map[string]string{}
	}
	snapshot.Secrets[trimmed] = value

	return s.saveSnapshot(snapshot)
}

func (s *SecretService) loadSnapshot() (*secretSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, configError(fmt.Sprintf("secret store %s does not exist", s.path), err)
		}
		return nil, configError(fmt.Sprintf("secret store %s could not be read", s.path), err)
	}

	var store encryptedStore
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, validationError("secret store document is malformed", err)
	}
	if store.Version != storeVersion {
		return nil, validationError(fmt.Sprintf("unsupported secret store version %d", store.Version), nil)
	}

	salt, err := base64.StdEncoding.DecodeString(store.Salt)
	if err != nil {
		return nil, validationError("secret store salt is malformed", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(store.Nonce)
	if err != nil {
		return nil, validationError("secret store nonce is malformed", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(store.Ciphertext)
	if err != nil {
		return nil, validationError("secret store ciphertext is malformed", err)
	}

	key, err := s.resolveKey(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := decrypt(key, nonce, ciphertext)
	if err != nil {
		return nil, validationError("secret store could not be decrypted (wrong key or passphrase?)", err)
	}

	var snapshot secretSnapshot
	if err := json.Unmarshal(plaintext, &snapshot); err != nil {
		return nil, validationError("secret store payload is malformed", err)
	}
	return &snapshot, nil
}

func (s *SecretService) saveSnapshot(snapshot *secretSnapshot) error {
	plaintext, err := json.Marshal(snapshot)
	if err != nil {
		return internalError("secret store payload could not be encoded", err)
	}

	var salt []byte
	if len(s.passphrase) > 0 {
		salt = make([]byte, saltLengthBytes)
		if _, err := rand.Read(salt); err != nil {
			return internalError("salt generation failed", err)
		}
	}

	key, err := s.resolveKey(salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, nonceLengthBytes)
	if _, err := rand.Read(nonce); err != nil {
		return internalError("nonce generation failed", err)
	}

	ciphertext, err := encrypt(key, nonce, plaintext)
	if err != nil {
		return internalError("secret store encryption failed", err)
	}

	store := encryptedStore{
		Version:    storeVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}
	encoded, err := json.Marshal(store)
	if err != nil {
		return internalError("secret store document could not be encoded", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return configError("secret store directory could not be created", err)
	}
	if err := os.WriteFile(s.path, encoded, 0o600); err != nil {
		return configError("secret store could not be written", err)
	}
	return nil
}

func (s *SecretService) resolveKey(salt []byte) ([]byte, error) {
	if len(s.key) > 0 {
		return s.key, nil
	}
	if len(salt) == 0 {
		return nil, validationError("secret store is passphrase-protected but carries no salt", nil)
	}
	return argon2.IDKey(s.passphrase, salt, kdfTime, kdfMemory, kdfThreads, keyLengthBytes), nil
}

func parseEncryptionKey(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)

	if decoded, err := hex.DecodeString(trimmed); err == nil && len(decoded) == keyLengthBytes {
		return decoded, nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil && len(decoded) == keyLengthBytes {
		return decoded, nil
	}
	return nil, configError("secret-store.file.key must be a 32-byte hex or base64 value", nil)
}

func encrypt(key []byte, nonce []byte, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

func decrypt(key []byte, nonce []byte, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func configError(message string, cause error) error {
	return faults.NewTypedError(faults.ConfigError, message, cause)
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
