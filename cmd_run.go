package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/host"
	"github.com/pthm-cable/signals/telemetry"
	"github.com/pthm-cable/signals/viewer"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation",
		Long: `Run the simulation in a window, or headless with --headless.

Examples:
  signals run
  signals run --load 3f0c... --autosave last
  signals run --headless --max-ticks 20000 --unthrottled --output-dir out/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			logger := newLogger()

			headless, _ := cmd.Flags().GetBool("headless")
			seed, _ := cmd.Flags().GetInt64("seed")
			maxTicks, _ := cmd.Flags().GetUint64("max-ticks")
			loadID, _ := cmd.Flags().GetString("load")
			outputDir, _ := cmd.Flags().GetString("output-dir")
			autosaveID, _ := cmd.Flags().GetString("autosave")
			autosaveEvery, _ := cmd.Flags().GetDuration("autosave-every")
			logStats, _ := cmd.Flags().GetBool("log-stats")
			unthrottled, _ := cmd.Flags().GetBool("unthrottled")
			saveOnBookmark, _ := cmd.Flags().GetBool("save-on-bookmark")

			output, err := telemetry.NewOutputManager(outputDir)
			if err != nil {
				return fmt.Errorf("failed to create output manager: %w", err)
			}
			defer output.Close()
			if err := output.WriteConfig(cfg); err != nil {
				logger.Warn("failed to write config snapshot", "error", err)
			}

			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			d, err := host.New(cfg, host.Options{
				Seed:           seed,
				Store:          st,
				Output:         output,
				LogStats:       logStats,
				Logger:         logger,
				Unthrottled:    unthrottled && headless,
				MaxTicks:       maxTicks,
				SaveOnBookmark: saveOnBookmark,
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if loadID != "" {
				if err := d.LoadDirect(ctx, loadID); err != nil {
					return fmt.Errorf("failed to load state %s: %w", loadID, err)
				}
				if err := d.Post(engine.Start{}); err != nil {
					return err
				}
			} else {
				d.Init(true)
			}

			r := &host.Runner{Driver: d, AutosaveID: autosaveID, AutosaveEvery: autosaveEvery}
			logger.Info("starting simulation",
				"seed", seed,
				"headless", headless,
				"max_ticks", maxTicks,
				"store", cfg.Store.Driver,
				"geometry", cfg.Engine.Geometry,
			)
			if headless {
				return r.Run(ctx, d.Run)
			}
			v := viewer.New(cfg, d, logger)
			return r.Run(ctx, func(ctx context.Context) error {
				return v.Run(ctx)
			})
		},
	}

	cmd.Flags().Bool("headless", false, "Run without graphics")
	cmd.Flags().Int64("seed", 0, "RNG seed (0 = time-based)")
	cmd.Flags().Uint64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	cmd.Flags().String("load", "", "Start from a saved state ID")
	cmd.Flags().String("output-dir", "", "Output directory for CSV logs and config snapshot")
	cmd.Flags().String("autosave", "", "State ID to autosave to (empty = no autosave)")
	cmd.Flags().Duration("autosave-every", time.Minute, "Autosave interval")
	cmd.Flags().Bool("log-stats", false, "Output stats via slog")
	cmd.Flags().Bool("unthrottled", false, "Headless only: run frames back to back")
	cmd.Flags().Bool("save-on-bookmark", false, "Save a state whenever telemetry raises a bookmark")

	return cmd
}
