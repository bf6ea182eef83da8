package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prodmap/prodmap/internal/app"
)

var reembedUserID string

var reembedCmd = &cobra.Command{
	Use:   "reembed <organization-id>",
	Short: "Re-embed every space description and feature request in an organization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		ctx := cmd.Context()

		a, err := app.Setup(ctx, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.RAG.ReembedAll(ctx, reembedUserID, args[0], a.Spaces)
		if err != nil {
			return fmt.Errorf("re-embedding failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"re-embedded %d spaces and %d feature requests (%d skipped, %d failed)\n",
			counts.Spaces, counts.Features, counts.Skipped, counts.Failed)
		return nil
	},
}

func init() {
	reembedCmd.Flags().StringVar(&reembedUserID, "user", "system", "user id to attribute usage to")
	rootCmd.AddCommand(reembedCmd)
}
