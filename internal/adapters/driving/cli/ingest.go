package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/connectors/filesystem"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/connectors/web"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

var (
	ingestName         string
	ingestText         string
	ingestReplace      bool
	ingestSkipExisting bool
	ingestWatch        bool
	ingestJSON         bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path|url|-]",
	Short: "Ingest a document into the chunk store",
	Long: `Chunks, embeds and stores a document.

The argument may be a file, a directory, an http(s) URL, or "-" to read
text from standard input. Use --text to ingest a literal string.

Files are named by their base name, URLs by host and path. Directories are
walked recursively (hidden files skipped); sources already stored are
skipped. With --watch the directory is then watched, and changed files
are re-ingested until interrupted.

Examples:
  assistant ingest notes.md
  assistant ingest ~/Documents --watch
  assistant ingest https://example.com/handbook
  cat meeting.txt | assistant ingest - --name meeting
  assistant ingest --text "The wifi password is on the fridge" --name wifi`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestName, "name", "n", "", "source name (required for --text and stdin)")
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "ingest this text instead of a file")
	ingestCmd.Flags().BoolVar(&ingestReplace, "replace", false, "delete existing chunks for the source first")
	ingestCmd.Flags().BoolVar(&ingestSkipExisting, "skip-existing", false, "do nothing if the source is already stored")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching a directory for changes")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the result as JSON")
	ingestCmd.MarkFlagsMutuallyExclusive("replace", "skip-existing")
	rootCmd.AddCommand(ingestCmd)
}

// stdinIsTerminal reports whether r is an interactive terminal.
var stdinIsTerminal = func(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := requireService(ingestService != nil, "ingest"); err != nil {
		return err
	}

	ctx := cmd.Context()
	req := domain.IngestRequest{
		SourceName:   ingestName,
		Replace:      ingestReplace,
		SkipExisting: ingestSkipExisting,
	}

	switch {
	case cmd.Flags().Changed("text"):
		if len(args) > 0 {
			return errors.New("--text cannot be combined with a path argument")
		}
		return ingestLiteral(ctx, cmd, req, ingestText)

	case len(args) == 0:
		return errors.New("nothing to ingest: pass a path, a URL, \"-\" or --text")

	case args[0] == "-":
		if stdinIsTerminal(cmd.InOrStdin()) {
			return errors.New("standard input is a terminal; pipe text in or pass a file")
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		return ingestLiteral(ctx, cmd, req, string(data))

	case web.IsURL(args[0]):
		return ingestURL(ctx, cmd, req, args[0])
	}

	path := filesystem.ResolvePath(args[0])
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if info.IsDir() {
		return ingestDirectory(ctx, cmd, path)
	}
	if ingestWatch {
		return errors.New("--watch needs a directory")
	}
	return ingestFile(ctx, cmd, req, path)
}

func ingestLiteral(ctx context.Context, cmd *cobra.Command, req domain.IngestRequest, text string) error {
	if req.SourceName == "" {
		return errors.New("--name is required when ingesting text")
	}
	req.Text = text
	req.Metadata = map[string]any{domain.MetaOrigin: domain.OriginText}

	res, err := ingestService.Ingest(ctx, req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return printIngestResult(cmd, res)
}

func ingestFile(ctx context.Context, cmd *cobra.Command, req domain.IngestRequest, path string) error {
	raw, err := filesystem.ReadDocument(path)
	if err != nil {
		return err
	}
	req.Metadata = map[string]any{domain.MetaOrigin: domain.OriginFile}

	res, err := ingestService.IngestDocument(ctx, raw, req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return printIngestResult(cmd, res)
}

func ingestURL(ctx context.Context, cmd *cobra.Command, req domain.IngestRequest, rawURL string) error {
	if err := requireService(documentFetcher != nil, "web fetch"); err != nil {
		return err
	}
	raw, err := documentFetcher.Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	req.Metadata = map[string]any{domain.MetaOrigin: domain.OriginURL}

	res, err := ingestService.IngestDocument(ctx, raw, req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return printIngestResult(cmd, res)
}

func ingestDirectory(ctx context.Context, cmd *cobra.Command, path string) error {
	if err := requireService(syncService != nil, "sync"); err != nil {
		return err
	}

	conn := filesystem.New(path)
	defer conn.Close()

	batch, err := syncService.Sync(ctx, conn)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if err := printBatchResult(cmd, batch); err != nil {
		return err
	}

	if !ingestWatch {
		return nil
	}
	cmd.Printf("Watching %s for changes. Press Ctrl+C to stop.\n", path)
	if err := syncService.Watch(ctx, conn); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	cmd.Println("Stopped watching.")
	return nil
}

func printIngestResult(cmd *cobra.Command, res *domain.IngestResult) error {
	if ingestJSON {
		return printJSON(cmd, res)
	}

	if res.Skipped {
		cmd.Printf("Skipped %s: already ingested.\n", res.SourceName)
		return nil
	}
	cmd.Printf("Ingested %s: %d chunks created, %d failed\n",
		res.SourceName, res.ChunksCreated, res.ChunksFailed)
	if res.ChunksReplaced > 0 {
		cmd.Printf("  Replaced %d existing chunks\n", res.ChunksReplaced)
	}
	if res.ChunksDeferred > 0 {
		cmd.Printf("  %d chunks stored without embedding; run 'assistant backfill' later\n", res.ChunksDeferred)
	}
	return nil
}

func printBatchResult(cmd *cobra.Command, batch *domain.BatchResult) error {
	if ingestJSON {
		return printJSON(cmd, batch)
	}

	skipped := 0
	for _, r := range batch.Results {
		if r.Skipped {
			skipped++
		}
	}
	cmd.Printf("Ingested %d documents (%d skipped): %d chunks created, %d failed\n",
		len(batch.Results)-skipped, skipped, batch.ChunksCreated(), batch.ChunksFailed())
	for name, msg := range batch.Errors {
		cmd.Printf("  %s: %s\n", name, msg)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
