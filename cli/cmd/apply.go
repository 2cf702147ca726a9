package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/dataeng-tools/airmeta/manifest"
	"github.com/dataeng-tools/airmeta/reconciler"
)

func newApplyCommand() *cobra.Command {
	var (
		metadataType    string
		manifestPath    string
		environmentName string
		projectID       string
		dagManifest     string
		pauseAll        bool
		autoApprove     bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile an environment's metadata against a manifest",
		Long: `apply drives the remote environment to the state a manifest declares.

Kinds that own their namespace (pools, connections) also delete remote
entries the manifest does not mention; variables, roles, and dags are
updated in place. Destructive plans ask for confirmation unless
--auto-approve is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var desired manifest.Manifest

			kindName := metadataType
			if manifestPath != "" {
				doc, err := manifest.LoadDocument(manifestPath)
				if err != nil {
					return err
				}
				kindName = doc.MetadataType
				desired = doc.Data
				if environmentName == "" {
					environmentName = doc.EnvironmentName
				}
				if projectID == "" {
					projectID = doc.ProjectID
				}
			}

			kind, err := reconciler.ParseKind(kindName)
			if err != nil {
				return usageError(cmd, err.Error())
			}

			ctx := commandContext(cmd)
			recon, err := loadReconciler(ctx, kind, reconcilerParams{
				environmentName: environmentName,
				projectID:       projectID,
				dagManifestPath: dagManifest,
				pauseAll:        pauseAll,
			})
			if err != nil {
				return err
			}

			doomed, err := recon.PlanDeletions(ctx, desired)
			if err != nil {
				return err
			}
			if len(doomed) > 0 {
				infof(cmd, "The following %s are not in the manifest and will be deleted:", kind)
				for _, identifier := range doomed {
					infof(cmd, "  - %s", identifier)
				}
				prompt := "Delete " + strings.Join(doomed, ", ") + "?"
				if err := confirmAction(cmd, autoApprove, prompt); err != nil {
					return err
				}
			}

			result, err := recon.Apply(ctx, desired)
			if err != nil {
				return err
			}

			successf(cmd, "%s reconciled on %s: %d deleted, %d updated", kind, environmentName, len(result.Deleted), len(result.Upserted))
			return nil
		},
	}

	cmd.Flags().StringVar(&metadataType, "metadata-type", "", "The metadata type to reconcile (pools, connections, variables, roles, dags)")
	cmd.Flags().StringVar(&manifestPath, "path", "", "Path to the manifest file declaring the desired state")
	cmd.Flags().StringVar(&environmentName, "environment-name", "", "The name of the target environment (overrides the manifest)")
	cmd.Flags().StringVar(&projectID, "project-id", "", "The project ID of the target environment (overrides the manifest)")
	cmd.Flags().StringVar(&dagManifest, "dag-manifest", "", "If reconciling dags, path to the local dag manifest")
	cmd.Flags().BoolVar(&pauseAll, "pause-all", false, "Pause every dag regardless of the declared pause state")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip the confirmation prompt before deletions")
	cmd.MarkFlagsMutuallyExclusive("metadata-type", "path")
	cmd.MarkFlagsOneRequired("metadata-type", "path")

	return cmd
}
