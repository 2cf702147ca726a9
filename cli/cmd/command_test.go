package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dataeng-tools/airmeta/config"
	filesecrets "github.com/dataeng-tools/airmeta/internal/providers/secrets/file"
)

const (
	testUsername = "admin"
	testPassword = "s3cret!"
)

// writeTestConfig points AIRMETA_CONFIG at a throwaway config file whose
// secret store already holds the API password.
func writeTestConfig(t *testing.T, webserverURL string) {
	t.Helper()

	dir := t.TempDir()
	storePath := filepath.Join(dir, "secrets.enc")

	store, err := filesecrets.NewSecretService(config.FileSecretStore{
		Path:       storePath,
		Passphrase: "test-passphrase",
	})
	if err != nil {
		t.Fatalf("new secret service: %v", err)
	}
	if err := store.SetSecret(context.Background(), "staging-api-password", testPassword); err != nil {
		t.Fatalf("seed password secret: %v", err)
	}

	configBody := fmt.Sprintf(`environments:
  - name: staging
    project-id: data-staging
    webserver-url: %s
    auth:
      username: %s
      password-secret: staging-api-password
secret-store:
  file:
    path: %s
    passphrase: test-passphrase
`, webserverURL, testUsername, storePath)

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.ConfigFileEnvVar, configPath)
}

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCommand()
	var out, errBuf bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errBuf.String(), err
}

func requireBasicAuth(t *testing.T, r *http.Request) {
	t.Helper()
	user, pass, ok := r.BasicAuth()
	if !ok || user != testUsername || pass != testPassword {
		t.Errorf("request %s %s carried wrong credentials", r.Method, r.URL.Path)
	}
}

func TestListPools(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/pools", func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		if r.URL.Query().Get("offset") != "0" {
			fmt.Fprint(w, `{"pools": []}`)
			return
		}
		fmt.Fprint(w, `{"pools": [{"name": "default_pool", "slots": 128}, {"name": "etl", "slots": 8}]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	writeTestConfig(t, server.URL)

	out, status, err := runCommand(t, "list", "pools", "--environment-name", "staging", "--project-id", "data-staging")
	if err != nil {
		t.Fatalf("list pools: %v", err)
	}
	if !strings.Contains(out, "default_pool - 128") || !strings.Contains(out, "etl - 8") {
		t.Fatalf("unexpected pool listing:\n%s", out)
	}
	if !strings.Contains(status, "[OK]") {
		t.Fatalf("expected a status line, got %q", status)
	}
}

func TestListPoolsNoStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/pools", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pools": []}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	writeTestConfig(t, server.URL)

	_, status, err := runCommand(t, "list", "pools", "--no-status", "--environment-name", "staging", "--project-id", "data-staging")
	if err != nil {
		t.Fatalf("list pools: %v", err)
	}
	if strings.Contains(status, "[OK]") {
		t.Fatalf("--no-status must suppress status lines, got %q", status)
	}
}

func TestListVariables(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/variables", func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		if r.URL.Query().Get("offset") != "0" {
			fmt.Fprint(w, `{"variables": []}`)
			return
		}
		fmt.Fprint(w, `{"variables": [{"key": "retention_days"}, {"key": "owner_email"}]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	writeTestConfig(t, server.URL)

	out, _, err := runCommand(t, "list", "variables", "--environment-name", "staging", "--project-id", "data-staging")
	if err != nil {
		t.Fatalf("list variables: %v", err)
	}
	if !strings.Contains(out, "retention_days") || !strings.Contains(out, "owner_email") {
		t.Fatalf("unexpected variable listing:\n%s", out)
	}
}

func TestListRolesReportsUnsupported(t *testing.T) {
	writeTestConfig(t, "http://localhost:1")

	_, _, err := runCommand(t, "list", "roles", "--environment-name", "staging", "--project-id", "data-staging")
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := ExitCodeForError(err); got != 6 {
		t.Fatalf("expected unsupported exit code 6, got %d (%v)", got, err)
	}
}

func TestListRejectsUnknownMetadataType(t *testing.T) {
	writeTestConfig(t, "http://localhost:1")

	_, status, err := runCommand(t, "list", "datasets", "--environment-name", "staging", "--project-id", "data-staging")
	if err == nil || !IsHandledError(err) {
		t.Fatalf("expected handled usage error, got %v", err)
	}
	if !strings.Contains(status, "Usage:") {
		t.Fatalf("expected usage output, got %q", status)
	}
}

func TestListRequiresEnvironmentName(t *testing.T) {
	_, _, err := runCommand(t, "list", "pools", "--project-id", "data-staging")
	if err == nil {
		t.Fatal("expected a required-flag error")
	}
	if !strings.Contains(err.Error(), "environment-name") {
		t.Fatalf("expected error to name the flag, got %v", err)
	}
}

func TestApplyVariablesFromManifest(t *testing.T) {
	var patched []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/variables/", func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method %s", r.Method)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		patched = append(patched, strings.TrimPrefix(r.URL.Path, "/api/v1/variables/"))
		fmt.Fprint(w, `{}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	writeTestConfig(t, server.URL)

	manifestPath := filepath.Join(t.TempDir(), "variables.json")
	manifestBody := `{
  "metadata_type": "variables",
  "environment_name": "staging",
  "project_id": "data-staging",
  "data": {"retention_days": "30", "owner_email": "data@acme.dev"}
}`
	if err := os.WriteFile(manifestPath, []byte(manifestBody), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	_, status, err := runCommand(t, "apply", "--path", manifestPath)
	if err != nil {
		t.Fatalf("apply variables: %v", err)
	}
	if len(patched) != 2 {
		t.Fatalf("expected 2 PATCH calls, got %v", patched)
	}
	if !strings.Contains(status, "0 deleted, 2 updated") {
		t.Fatalf("unexpected status: %q", status)
	}
}

func TestApplyPoolsDeletesExtrasWithAutoApprove(t *testing.T) {
	var deleted []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/pools", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			fmt.Fprint(w, `{"pools": []}`)
			return
		}
		fmt.Fprint(w, `{"pools": [{"name": "etl", "slots": 8}, {"name": "stale", "slots": 1}]}`)
	})
	mux.HandleFunc("/api/v1/pools/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			deleted = append(deleted, strings.TrimPrefix(r.URL.Path, "/api/v1/pools/"))
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPatch:
			fmt.Fprint(w, `{}`)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	writeTestConfig(t, server.URL)

	manifestPath := filepath.Join(t.TempDir(), "pools.json")
	manifestBody := `{
  "metadata_type": "pools",
  "environment_name": "staging",
  "project_id": "data-staging",
  "data": {"etl": {"slots": 8}}
}`
	if err := os.WriteFile(manifestPath, []byte(manifestBody), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	_, status, err := runCommand(t, "apply", "--path", manifestPath, "--auto-approve")
	if err != nil {
		t.Fatalf("apply pools: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "stale" {
		t.Fatalf("expected stale pool deleted, got %v", deleted)
	}
	if !strings.Contains(status, "1 deleted, 1 updated") {
		t.Fatalf("unexpected status: %q", status)
	}
}

func TestApplyRequiresMetadataTypeOrPath(t *testing.T) {
	_, _, err := runCommand(t, "apply", "--environment-name", "staging")
	if err == nil {
		t.Fatal("expected an error when neither --metadata-type nor --path is set")
	}
}

func TestApplyRejectsMetadataTypeWithPath(t *testing.T) {
	_, _, err := runCommand(t, "apply", "--metadata-type", "pools", "--path", "pools.json")
	if err == nil {
		t.Fatal("expected an error when both --metadata-type and --path are set")
	}
}

func TestSecretSetAndGet(t *testing.T) {
	writeTestConfig(t, "http://localhost:1")

	if _, _, err := runCommand(t, "secret", "set", "team-token", "--value", "tok-123"); err != nil {
		t.Fatalf("secret set: %v", err)
	}

	out, _, err := runCommand(t, "secret", "get", "team-token")
	if err != nil {
		t.Fatalf("secret get: %v", err)
	}
	if strings.TrimSpace(out) != "tok-123" {
		t.Fatalf("expected stored value, got %q", out)
	}
}

func TestSecretGetMissing(t *testing.T) {
	writeTestConfig(t, "http://localhost:1")

	_, _, err := runCommand(t, "secret", "get", "absent")
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := ExitCodeForError(err); got != 4 {
		t.Fatalf("expected not-found exit code 4, got %d (%v)", got, err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "airmeta") {
		t.Fatalf("unexpected version output %q", out)
	}
}
