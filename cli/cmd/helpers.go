package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dataeng-tools/airmeta/config"
	"github.com/dataeng-tools/airmeta/debugctx"
	"github.com/dataeng-tools/airmeta/faults"
	filesecrets "github.com/dataeng-tools/airmeta/internal/providers/secrets/file"
	vaultsecrets "github.com/dataeng-tools/airmeta/internal/providers/secrets/vault"
	gatewayhttp "github.com/dataeng-tools/airmeta/internal/providers/server/http"
	"github.com/dataeng-tools/airmeta/reconciler"
	"github.com/dataeng-tools/airmeta/secrets"
	"github.com/dataeng-tools/airmeta/server"
)

type handledError struct {
	msg string
}

func (handledError) handledMarker() {}

func (e handledError) Error() string {
	return e.msg
}

type handled interface {
	handledMarker()
}

func IsHandledError(err error) bool {
	if err == nil {
		return false
	}
	var h handled
	return errors.As(err, &h)
}

// commandContext wires debug tracing into the command's context.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if len(debugGroups) > 0 {
		ctx = debugctx.WithWriter(debugctx.WithGroups(ctx, debugGroups), cmd.ErrOrStderr())
	}
	return ctx
}

// loadSecretsProvider builds the configured secret store, or nil when the
// config has none.
func loadSecretsProvider(cfg *config.Config) (secrets.Provider, error) {
	if cfg.SecretStore == nil {
		return nil, nil
	}
	if cfg.SecretStore.File != nil {
		return filesecrets.NewSecretService(*cfg.SecretStore.File)
	}
	return vaultsecrets.NewSecretService(*cfg.SecretStore.Vault)
}

type reconcilerParams struct {
	environmentName string
	projectID       string
	dagManifestPath string
	pauseAll        bool
}

// loadReconciler resolves the environment entry, acquires the API
// credential (once per run), and assembles the gateway and kind reconciler.
func loadReconciler(ctx context.Context, kind reconciler.Kind, params reconcilerParams) (reconciler.Reconciler, error) {
	if strings.TrimSpace(params.environmentName) == "" {
		return nil, faults.NewTypedError(faults.ConfigError, "environment name could not be determined (supply --environment-name or a manifest that names one)", nil)
	}

	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}

	env, err := cfg.LookupEnvironment(params.environmentName)
	if err != nil {
		return nil, err
	}

	secretsProvider, err := loadSecretsProvider(cfg)
	if err != nil {
		return nil, err
	}

	credential, err := resolveCredential(ctx, env, secretsProvider)
	if err != nil {
		return nil, err
	}

	gateway, err := gatewayhttp.NewGateway(env.WebserverURL, credential)
	if err != nil {
		return nil, err
	}

	return reconciler.New(kind, gateway, reconciler.Options{
		EnvironmentName:   env.Name,
		ProjectID:         params.projectID,
		DagManifestPath:   params.dagManifestPath,
		PauseAll:          params.pauseAll,
		FailOnImportError: cfg.Defaults.FailOnImportErrorEnabled(),
		Secrets:           secretsProvider,
	})
}

func resolveCredential(ctx context.Context, env config.Environment, secretsProvider secrets.Provider) (server.Credential, error) {
	if env.Auth == nil {
		return server.Credential{}, faults.NewTypedError(faults.ConfigError, fmt.Sprintf("environment %q defines no auth section", env.Name), nil)
	}
	if secretsProvider == nil {
		return server.Credential{}, faults.NewTypedError(faults.ConfigError, "resolving the API password requires a configured secret-store", nil)
	}

	password, err := secretsProvider.GetSecret(ctx, env.Auth.PasswordSecret)
	if err != nil {
		return server.Credential{}, err
	}
	return server.Credential{Username: env.Auth.Username, Password: password}, nil
}

func usageError(cmd *cobra.Command, message string) error {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = "invalid command usage"
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
	fmt.Fprintf(cmd.ErrOrStderr(), "\nError: %s\n", msg)
	return handledError{msg: msg}
}

func successf(cmd *cobra.Command, format string, args ...any) {
	if noStatusOutput {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "[OK] "+format+"\n", args...)
}

func infof(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}

func confirmAction(cmd *cobra.Command, skipPrompt bool, message string) error {
	if skipPrompt {
		return nil
	}
	prompt := newHuhPrompter(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	confirmed, err := prompt.confirm(message, false)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
		return handledError{msg: "operation cancelled"}
	}
	return nil
}

// ExitCodeForError maps the fault taxonomy onto distinct exit codes so
// callers can tell configuration mistakes and unsupported operations apart
// from remote failures.
func ExitCodeForError(err error) int {
	if err == nil {
		return 0
	}

	var typedErr *faults.TypedError
	if !errors.As(err, &typedErr) {
		return 1
	}

	switch typedErr.Category {
	case faults.ConfigError:
		return 2
	case faults.ValidationError:
		return 3
	case faults.NotFoundError:
		return 4
	case faults.RemoteError:
		return 5
	case faults.UnsupportedError:
		return 6
	default:
		return 1
	}
}
