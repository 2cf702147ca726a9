package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dataeng-tools/airmeta/debugctx"
)

var (
	noStatusOutput bool
	debugGroups    []string
)

var rootCmd = newRootCommand()

func Execute() error {
	return rootCmd.Execute()
}

func NewRootCommand() *cobra.Command {
	return newRootCommand()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "airmeta",
		Short: "Reconcile a workflow orchestrator's metadata against declarative manifests",
		Long: `airmeta keeps an orchestration environment's metadata in sync with declared state.

Use the CLI to:
  - list pools, connections, variables, and dag states of an environment
  - apply a metadata manifest, removing extras and upserting declared entries
  - manage the local encrypted secret store backing sensitive manifests`,
		Example: `  # List every connection of the staging environment
  airmeta list connections --environment-name staging --project-id data-staging

  # Apply a pools manifest
  airmeta apply --path manifests/staging-pools.json

  # Pause every dag before a maintenance window
  airmeta apply --metadata-type dags --environment-name staging --project-id data-staging --pause-all`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().BoolVar(&noStatusOutput, "no-status", false, "Suppress status messages and print only command output")
	cmd.PersistentFlags().String("debug", "", "Print grouped debug information (groups: network, secrets, reconcile, all)")
	cmd.PersistentFlags().Lookup("debug").NoOptDefVal = debugctx.GroupAll

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		if err == nil {
			return nil
		}
		return usageError(cmd, err.Error())
	})

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("debug")
		debugGroups = nil
		if strings.TrimSpace(raw) != "" {
			debugGroups = strings.Split(raw, ",")
		}
		return nil
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newApplyCommand())
	cmd.AddCommand(newSecretCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}
