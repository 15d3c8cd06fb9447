package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/signals/engine"
	"github.com/pthm-cable/signals/host"
)

func newChunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "Manage graph chunks",
		Long: `A chunk is a piece of a saved graph: some nodes, everything they
contain and the links among them. Chunks can be grafted into other states.`,
	}
	cmd.AddCommand(
		newChunksListCmd(),
		newChunksSaveCmd(),
		newChunksInjectCmd(),
		newChunksDeleteCmd(),
	)
	return cmd
}

func newChunksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved chunks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			_, st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			metas, err := st.ListChunks(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list chunks: %w", err)
			}
			return printMetas(cmd.OutOrStdout(), "chunks", metas, jsonOut)
		},
	}
}

func newChunksSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <state-id> <node-id>...",
		Short: "Cut a chunk out of a saved state",
		Long: `Cut the given nodes, their contained nodes and the links among them out
of a saved state and store them as a chunk. The state is not changed.

Examples:
  signals chunks save last 12 15 40 --id triangle`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunkID, _ := cmd.Flags().GetString("id")
			ids, err := parseNodeIDs(args[1:])
			if err != nil {
				return err
			}
			cfg, st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			o := &host.Offline{Config: cfg, Store: st}
			meta, err := o.ExtractChunk(cmd.Context(), args[0], ids, chunkID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved chunk %s (%d nodes, %d links)\n", meta.ID, meta.Nodes, meta.Links)
			return nil
		},
	}
	cmd.Flags().String("id", "", "Chunk ID (empty = random)")
	return cmd
}

func newChunksInjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inject <state-id> <chunk-id>",
		Short: "Graft a chunk into a saved state",
		Long: `Graft a copy of a chunk into a saved state, centred on --x/--y in engine
coordinates. The result replaces the state unless --as names a new one.

Examples:
  signals chunks inject last triangle --x 100 --y -40 --as last-grown`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, _ := cmd.Flags().GetFloat64("x")
			y, _ := cmd.Flags().GetFloat64("y")
			as, _ := cmd.Flags().GetString("as")
			cfg, st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			o := &host.Offline{Config: cfg, Store: st}
			meta, ids, err := o.Inject(cmd.Context(), args[0], args[1], x, y, as)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "injected %d nodes into %s (%d nodes total)\n", len(ids), meta.ID, meta.Nodes)
			return nil
		},
	}
	cmd.Flags().Float64("x", 0, "Target x")
	cmd.Flags().Float64("y", 0, "Target y")
	cmd.Flags().String("as", "", "Save the result under this state ID (empty = overwrite)")
	return cmd
}

func newChunksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete saved chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			for _, id := range args {
				if err := st.DeleteChunk(cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			}
			return nil
		},
	}
}

// parseNodeIDs accepts IDs as separate arguments or comma lists.
func parseNodeIDs(args []string) ([]engine.NodeID, error) {
	var ids []engine.NodeID
	for _, arg := range args {
		for _, s := range strings.Split(arg, ",") {
			if s == "" {
				continue
			}
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid node id %q", s)
			}
			ids = append(ids, engine.NodeID(n))
		}
	}
	return ids, nil
}
