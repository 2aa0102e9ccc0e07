// Package cli implements the dossierctl operator commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/app"
	"github.com/kailas-cloud/dossier/internal/config"
	logpkg "github.com/kailas-cloud/dossier/internal/logger"
	chiTransport "github.com/kailas-cloud/dossier/internal/transport/chi"
)

var (
	configPath string
	jsonOutput bool

	// services is what every command runs against. It is built from config
	// before the first command runs unless already set.
	services *chiTransport.Services
	cleanup  func()
)

var rootCmd = &cobra.Command{
	Use:   "dossierctl",
	Short: "Operate dossier collections",
	Long: `dossierctl provisions collections, loads JSON array files, archives
old documents into yearly cold partitions and migrates legacy applications.
It reads the same configuration as the server.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: config/$ENV.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output results as JSON")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	if services != nil || cmd.Name() == versionCmd.Name() {
		return nil
	}

	env := config.GetEnv()
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, "dossierctl", cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a, err := app.New(cmd.Context(), &cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return err
	}
	services = &a.Services
	cleanup = func() {
		a.Close(context.Background())
		_ = logger.Sync()
	}
	logger.Debug("dossierctl ready", zap.String("command", cmd.Name()))
	return nil
}

func teardown(*cobra.Command, []string) error {
	if cleanup != nil {
		cleanup()
		cleanup = nil
		services = nil
	}
	return nil
}

// printJSON writes v indented to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
