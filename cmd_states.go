package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/host"
	"github.com/pthm-cable/signals/store"
)

func newStatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "states",
		Short: "Manage saved states",
	}
	cmd.AddCommand(
		newStatesListCmd(),
		newStatesDeleteCmd(),
		newStatesExportCmd(),
		newStatesImportCmd(),
	)
	return cmd
}

func newStatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved states, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			_, st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			metas, err := st.ListStates(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list states: %w", err)
			}
			return printMetas(cmd.OutOrStdout(), "states", metas, jsonOut)
		},
	}
}

func newStatesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete saved states",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			for _, id := range args {
				if err := st.DeleteState(cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			}
			return nil
		},
	}
}

func newStatesExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a saved state as JSON",
		Long: `Write a saved state as JSON to stdout, or to --out.

Examples:
  signals states export last > last.json
  signals states export last --out last.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			_, st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			state, err := st.LoadState(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", args[0], err)
			}
			if out == "" {
				return engine.WriteState(cmd.OutOrStdout(), state)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := engine.WriteState(f, state); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().String("out", "", "Output file (empty = stdout)")
	return cmd
}

func newStatesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store a state from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			_, st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			state, err := engine.ReadState(f)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if id == "" {
				id = host.NewStateID()
			}
			meta, err := st.SaveState(cmd.Context(), id, state)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d nodes, %d links)\n", meta.ID, meta.Nodes, meta.Links)
			return nil
		},
	}
	cmd.Flags().String("id", "", "State ID (empty = random)")
	return cmd
}

// printMetas lists index entries as a table, or as JSON under key.
func printMetas(w io.Writer, key string, metas []store.Meta, jsonOut bool) error {
	if jsonOut {
		if metas == nil {
			metas = []store.Meta{}
		}
		return json.NewEncoder(w).Encode(map[string]interface{}{
			key:           metas,
			"total_count": len(metas),
		})
	}
	if len(metas) == 0 {
		fmt.Fprintf(w, "No %s saved\n", key)
		return nil
	}
	for _, m := range metas {
		fmt.Fprintf(w, "  %s  %-40s  %5d nodes  %5d links\n",
			m.Timestamp.Local().Format("2006-01-02 15:04:05"), m.ID, m.Nodes, m.Links)
	}
	fmt.Fprintf(w, "Total: %d %s\n", len(metas), key)
	return nil
}
