package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/domain/batch"
	"github.com/kailas-cloud/dossier/internal/transport/jsonstream"
	"github.com/kailas-cloud/dossier/internal/usecase/ingest"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest <collection>",
	Short: "Load a JSON array file into a collection",
	Long: `Streams a file holding one JSON array of documents into the hot
partition of a collection in fixed-size batches. Products are embedded
before they are written. A malformed element stops the load after the
documents read so far have been written.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "JSON array file to load")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	f, err := os.Open(filepath.Clean(ingestFile))
	if err != nil {
		return fmt.Errorf("open %s: %w", ingestFile, err)
	}
	defer func() { _ = f.Close() }()

	var summary batch.Summary
	switch args[0] {
	case domain.CollectionProducts:
		summary, err = load(cmd.Context(), f, services.ProductIngest)
	case domain.CollectionApplications:
		summary, err = load(cmd.Context(), f, services.LegacyIngest)
	case domain.CollectionApplicationsV2:
		summary, err = load(cmd.Context(), f, services.ApplicationIngest)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownCollection, args[0])
	}

	if printErr := printSummary(cmd, summary); printErr != nil {
		return printErr
	}
	if err != nil {
		return fmt.Errorf("ingest %s: %w", args[0], err)
	}
	if !summary.Success() {
		return fmt.Errorf("ingest %s: %s", args[0], summary.Reasons())
	}
	return nil
}

func load[T any](ctx context.Context, r io.Reader, p *ingest.Pipeline[T]) (batch.Summary, error) {
	return p.Run(ctx, jsonstream.Array[T](r))
}

func printSummary(cmd *cobra.Command, s batch.Summary) error {
	if jsonOutput {
		return printJSON(cmd, s)
	}
	cmd.Println(s.Message())
	for _, f := range s.Errors {
		cmd.Printf("  %s\n", f)
	}
	return nil
}
