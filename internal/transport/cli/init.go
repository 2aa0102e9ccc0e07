package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <collection>",
	Short: "Create the hot partition of a collection",
	Long: `Creates the hot partition of products, applications or applications-v2
with its mapping and registers the template its yearly cold partitions are
created from. An existing partition is left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	res, err := services.Provision.Init(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("init %s: %w", args[0], err)
	}
	if jsonOutput {
		return printJSON(cmd, res)
	}
	cmd.Println(res.Message)
	return nil
}
