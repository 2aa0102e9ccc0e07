package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/dossier/internal/domain"
	chiTransport "github.com/kailas-cloud/dossier/internal/transport/chi"
)

var (
	routeFrom string
	routeTo   string
)

var routeCmd = &cobra.Command{
	Use:   "search-route <collection>",
	Short: "Show the partitions a createdAt window is searched in",
	Long: `Prints the partitions a search over the given createdAt window would
read. Bounds accept RFC 3339 timestamps or plain dates (YYYY-MM-DD).`,
	Args: cobra.ExactArgs(1),
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().StringVar(&routeFrom, "from", "", "lower createdAt bound")
	routeCmd.Flags().StringVar(&routeTo, "to", "", "upper createdAt bound")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	var router chiTransport.Router
	switch args[0] {
	case domain.CollectionProducts:
		router = services.ProductsRouting
	case domain.CollectionApplicationsV2:
		router = services.ApplicationsRouting
	case domain.CollectionApplications:
		cmd.Println(domain.CollectionApplications)
		return nil
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownCollection, args[0])
	}

	from, err := parseBound("from", routeFrom)
	if err != nil {
		return err
	}
	to, err := parseBound("to", routeTo)
	if err != nil {
		return err
	}
	partitions, err := router.Route(from, to)
	if err != nil {
		return fmt.Errorf("route: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, partitions)
	}
	cmd.Println(strings.Join(partitions, "\n"))
	return nil
}

func parseBound(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: --%s %q is neither RFC 3339 nor YYYY-MM-DD", domain.ErrInvalidFilter, name, v)
}
