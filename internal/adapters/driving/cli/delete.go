package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [source-name]",
	Short: "Delete every chunk of a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := requireService(ingestService != nil, "ingest"); err != nil {
		return err
	}

	n, err := ingestService.DeleteSource(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if n == 0 {
		cmd.Printf("No chunks found for %s.\n", args[0])
		return nil
	}
	cmd.Printf("Deleted %d chunks for %s.\n", n, args[0])
	return nil
}
