package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Convert legacy applications into the current shape",
	Long: `Pages through the legacy applications partition, converts every
document to the role-tagged client shape and writes it into the current
partition. Documents keep their ids, so running it again is safe.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	summary, err := services.Migrate.Run(cmd.Context())
	if summary.Batches > 0 || err == nil {
		if printErr := printSummary(cmd, summary); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
