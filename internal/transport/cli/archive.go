package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/dossier/internal/domain"
	archiveuc "github.com/kailas-cloud/dossier/internal/usecase/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <collection>",
	Short: "Move documents past retention into yearly cold partitions",
	Long: `Copies every document created before the retention cutoff into the
cold partition of its year, then deletes it from the hot partition. Years are
independent; a year whose delete failed is reported as duplicated.`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	var svc *archiveuc.Service
	switch args[0] {
	case domain.CollectionProducts:
		svc = services.ProductArchive
	case domain.CollectionApplicationsV2:
		svc = services.ApplicationArchive
	default:
		return fmt.Errorf("%w: %q has no cold partitions", domain.ErrUnknownCollection, args[0])
	}

	report, err := svc.Run(cmd.Context())
	if report != nil {
		if printErr := printReport(cmd, report); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		return fmt.Errorf("archive %s: %w", args[0], err)
	}
	return nil
}

func printReport(cmd *cobra.Command, r *archiveuc.Report) error {
	if jsonOutput {
		return printJSON(cmd, r)
	}
	if len(r.Years) == 0 {
		cmd.Printf("Nothing to archive before %s\n", r.Cutoff.Format("2006-01-02"))
		return nil
	}
	for _, y := range r.Years {
		cmd.Printf("%d -> %s: %s (found %d, copied %d, deleted %d)", y.Year, y.Partition, y.Status, y.Found, y.Copied, y.Deleted)
		if y.Error != "" {
			cmd.Printf(": %s", y.Error)
		}
		cmd.Println()
	}
	cmd.Printf("Archived %d documents across %d years, %d failed\n", r.TotalDeleted, r.YearsProcessed, r.Failures)
	if dup := r.Duplicated(); len(dup) > 0 {
		cmd.Printf("WARNING: years %v exist in both hot and cold partitions\n", dup)
	}
	return nil
}
