package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dataeng-tools/airmeta/config"
	"github.com/dataeng-tools/airmeta/faults"
	"github.com/dataeng-tools/airmeta/secrets"
)

// secretWriter is implemented by stores that accept writes (the file store;
// Vault entries are managed out of band).
type secretWriter interface {
	SetSecret(ctx context.Context, name string, value string) error
}

func newSecretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage entries of the configured secret store",
	}
	cmd.AddCommand(newSecretGetCommand())
	cmd.AddCommand(newSecretSetCommand())
	return cmd
}

func newSecretGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Print a secret's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := requireSecretsProvider()
			if err != nil {
				return err
			}

			value, err := provider.GetSecret(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			infof(cmd, "%s", value)
			return nil
		},
	}
}

func newSecretSetCommand() *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret, prompting for the value when not supplied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := requireSecretsProvider()
			if err != nil {
				return err
			}

			writer, ok := provider.(secretWriter)
			if !ok {
				return faults.NewTypedError(faults.UnsupportedError, "the configured secret-store does not accept writes", nil)
			}

			if value == "" {
				prompt := newHuhPrompter(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
				value, err = prompt.requiredSecret("Value for " + args[0])
				if err != nil {
					return err
				}
			}

			if err := writer.SetSecret(commandContext(cmd), args[0], value); err != nil {
				return err
			}
			successf(cmd, "stored secret %s", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "The secret value (prompted for when omitted)")
	return cmd
}

func requireSecretsProvider() (secrets.Provider, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	provider, err := loadSecretsProvider(cfg)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, faults.NewTypedError(faults.ConfigError, "no secret-store is configured", nil)
	}
	return provider, nil
}
