package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/signals/config"
	"github.com/pthm-cable/signals/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "signals",
		Short: "Signal graph simulation",
		Long: `signals grows a graph of nodes that emit signals at one another. Hits
strengthen links, dense neighbourhoods merge into group nodes and
starved nodes decay away.

Run it with a window, or headless for batch runs and telemetry.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config.yaml (empty = use defaults)")
	rootCmd.PersistentFlags().String("store-driver", "", "Override store.driver (sqlite | file | memory)")
	rootCmd.PersistentFlags().String("store-path", "", "Override store.path")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newRunCmd(),
		newStatesCmd(),
		newChunksCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig initializes the global config from --config and applies the
// store overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if err := config.Init(path); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.Cfg()
	if driver, _ := cmd.Flags().GetString("store-driver"); driver != "" {
		cfg.Store.Driver = driver
	}
	if p, _ := cmd.Flags().GetString("store-path"); p != "" {
		cfg.Store.Path = p
	}
	return cfg, nil
}

// openStore loads the config and opens its store. The caller closes it.
func openStore(cmd *cobra.Command) (*config.Config, store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return cfg, st, nil
}

func newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	return logger
}
