package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

var (
	statsJSON     bool
	healthJSON    bool
	backfillLimit int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show chunk store statistics",
	RunE:  runStats,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the store and AI providers",
	Long: `Checks that the chunk store answers and pings the embedding and LLM
providers. Exits with an error when any configured component is unavailable.`,
	RunE: runHealth,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed chunks stored without an embedding",
	Long: `Finds chunks that were stored without an embedding (see
ingest.defer_failed) and embeds them. Chunks that fail again are left for
the next run.`,
	RunE: runBackfill,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output the report as JSON")
	backfillCmd.Flags().IntVarP(&backfillLimit, "limit", "l", 0, "maximum chunks to repair (0 = all)")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(backfillCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := requireService(maintenanceService != nil, "maintenance"); err != nil {
		return err
	}

	stats, err := maintenanceService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}
	if statsJSON {
		return printJSON(cmd, stats)
	}

	cmd.Printf("Chunks:  %d\n", stats.TotalChunks)
	cmd.Printf("Sources: %d\n", stats.UniqueSources)
	if stats.MissingEmbedding > 0 {
		cmd.Printf("Missing embeddings: %d (run 'assistant backfill')\n", stats.MissingEmbedding)
	}
	if len(stats.Sources) == 0 {
		return nil
	}
	cmd.Println()
	for _, s := range stats.Sources {
		cmd.Printf("  %-40s %5d chunks  %s\n", s.SourceName, s.ChunkCount, s.LastIngested.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if err := requireService(maintenanceService != nil, "maintenance"); err != nil {
		return err
	}

	report := maintenanceService.Health(cmd.Context())
	if healthJSON {
		if err := printJSON(cmd, report); err != nil {
			return err
		}
	} else {
		for _, c := range report.Components {
			line := fmt.Sprintf("%-10s %s", c.Name, c.Status)
			if c.Detail != "" {
				line += "  " + c.Detail
			}
			cmd.Println(line)
		}
	}

	if !report.Healthy() {
		return errors.New("one or more components are unavailable")
	}
	return nil
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	if err := requireService(maintenanceService != nil, "maintenance"); err != nil {
		return err
	}

	res, err := maintenanceService.Backfill(cmd.Context(), backfillLimit)
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return fmt.Errorf("%w: configure one with 'assistant settings embedding'", err)
	}
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	cmd.Printf("Scanned %d chunks: %d repaired, %d failed\n", res.Scanned, res.Repaired, res.Failed)
	return nil
}
