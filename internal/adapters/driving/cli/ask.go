package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/services"
)

var (
	askTopK      int
	askThreshold float64
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from your documents",
	Long: `Retrieves the most relevant chunks for the question and asks the
configured language model to answer from them. When nothing relevant is
stored the model is still asked, and told that no documents matched.

Requires an LLM provider (see 'assistant settings llm').`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", services.DefaultChatTopK, "number of chunks given to the model")
	askCmd.Flags().Float64VarP(&askThreshold, "threshold", "t", 0, "minimum similarity (default from search.threshold)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireService(chatService != nil, "chat"); err != nil {
		return err
	}

	opts := domain.RetrieveOptions{
		TopK:      askTopK,
		Threshold: searchDefaults().Threshold,
	}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = askThreshold
		opts.ThresholdSet = true
	}

	answer, err := chatService.Ask(cmd.Context(), args[0], opts)
	if errors.Is(err, domain.ErrLLMUnavailable) {
		return fmt.Errorf("%w: configure one with 'assistant settings llm'", err)
	}
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return printJSON(cmd, answer)
	}

	cmd.Println(answer.Text)
	if answer.ContextUsed {
		cmd.Println()
		cmd.Println("Sources:")
		for i, s := range answer.Sources {
			cmd.Printf("  [%d] %s #%d (%.2f)\n", i+1, s.SourceName, s.SequenceIndex, s.SimilarityScore)
		}
	}
	return nil
}
