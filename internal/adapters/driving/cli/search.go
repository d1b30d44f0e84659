package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/services"
)

var (
	searchTopK      int
	searchThreshold float64
	searchDedupe    bool
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested documents",
	Long: `Embeds the query and ranks every stored chunk by cosine similarity.
Only chunks at or above the similarity threshold are shown, best first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Print prompt-ready context for a query",
	Long: `Runs the same search as 'assistant search' and prints the matches as
the context block a language model would receive, or as JSON context
items with --json.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, retrieveCmd} {
		c.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "maximum number of results (default from search.top_k)")
		c.Flags().Float64VarP(&searchThreshold, "threshold", "t", 0, "minimum similarity in [-1, 1] (default from search.threshold)")
		c.Flags().BoolVar(&searchDedupe, "dedupe", false, "keep only the best chunk of each source")
		c.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
		rootCmd.AddCommand(c)
	}
}

// retrieveOptions merges flags over the configured defaults.
func retrieveOptions(cmd *cobra.Command) domain.RetrieveOptions {
	defaults := searchDefaults()
	opts := domain.RetrieveOptions{
		TopK:           defaults.TopK,
		Threshold:      defaults.Threshold,
		DedupeBySource: defaults.DedupeBySource,
	}
	if cmd.Flags().Changed("top-k") {
		opts.TopK = searchTopK
	}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = searchThreshold
	}
	if cmd.Flags().Changed("dedupe") {
		opts.DedupeBySource = searchDedupe
	}
	return opts
}

func runSearch(cmd *cobra.Command, args []string) error {
	items, err := retrieve(cmd, args[0])
	if err != nil {
		return err
	}
	if searchJSON {
		return printJSON(cmd, map[string]any{"results": items})
	}
	outputSearchTable(cmd, items)
	return nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	items, err := retrieve(cmd, args[0])
	if err != nil {
		return err
	}
	if searchJSON {
		return printJSON(cmd, items)
	}
	cmd.Println(services.BuildContextBlock(items))
	return nil
}

func retrieve(cmd *cobra.Command, query string) ([]domain.ContextItem, error) {
	if err := requireService(retrievalService != nil, "search"); err != nil {
		return nil, err
	}
	items, err := retrievalService.Retrieve(cmd.Context(), query, retrieveOptions(cmd))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.ContextItem{}
	}
	return items, nil
}

func outputSearchTable(cmd *cobra.Command, items []domain.ContextItem) {
	if len(items) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, item := range items {
		// Format: [N] source #seq (score)
		cmd.Printf("  [%d] %s #%d (%.2f)\n", i+1, item.SourceName, item.SequenceIndex, item.SimilarityScore)
		cmd.Printf("      %s\n", snippet(item.ChunkText, 160))
		cmd.Println()
	}
}

// snippet flattens whitespace and cuts text to at most n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
