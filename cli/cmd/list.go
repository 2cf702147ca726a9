package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dataeng-tools/airmeta/reconciler"
)

func newListCommand() *cobra.Command {
	var (
		environmentName string
		projectID       string
		dagManifest     string
	)

	cmd := &cobra.Command{
		Use:   "list <metadata-type>",
		Short: "List the metadata currently present on an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := reconciler.ParseKind(args[0])
			if err != nil {
				return usageError(cmd, err.Error())
			}

			ctx := commandContext(cmd)
			recon, err := loadReconciler(ctx, kind, reconcilerParams{
				environmentName: environmentName,
				projectID:       projectID,
				dagManifestPath: dagManifest,
			})
			if err != nil {
				return err
			}

			listing, err := recon.Read(ctx)
			if err != nil {
				return err
			}

			successf(cmd, "%s in %s:", kind, environmentName)
			return printListing(cmd, kind, listing)
		},
	}

	cmd.Flags().StringVar(&environmentName, "environment-name", "", "The name of the target environment")
	cmd.Flags().StringVar(&projectID, "project-id", "", "The project ID of the target environment")
	cmd.Flags().StringVar(&dagManifest, "dag-manifest", "", "If listing dags, path to the existing metadata manifest")
	_ = cmd.MarkFlagRequired("environment-name")
	_ = cmd.MarkFlagRequired("project-id")

	return cmd
}

func printListing(cmd *cobra.Command, kind reconciler.Kind, listing reconciler.Listing) error {
	switch kind {
	case reconciler.KindDags:
		// json.Marshal sorts map keys, which keeps the report stable.
		encoded, err := json.MarshalIndent(listing.Details, "", "    ")
		if err != nil {
			return err
		}
		infof(cmd, "%s", encoded)
	case reconciler.KindPools:
		for _, identifier := range listing.Identifiers {
			infof(cmd, "%s - %v", identifier, listing.Details[identifier]["slots"])
		}
	default:
		for _, identifier := range listing.Identifiers {
			infof(cmd, "%s", identifier)
		}
	}
	return nil
}
