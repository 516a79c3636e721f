package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/accented-ai/quadsparql/internal/apperr"
)

func newGraphCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect and manage named graphs within a space",
	}

	cmd.AddCommand(
		newGraphListCommand(ctx),
		newGraphDropCommand(ctx),
	)

	return cmd
}

func newGraphListCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "list <space-id>",
		Short: "List every named graph registered in a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			uris, err := eng.ListGraphs(ctx, args[0])
			if err != nil {
				return apperr.Wrap(apperr.KindUnknown, "list graphs", err)
			}

			for _, uri := range uris {
				fmt.Println(uri)
			}

			return nil
		},
	}
}

func newGraphDropCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <space-id> <graph-uri>",
		Short: "Remove a named graph from the catalog (leaves its quads, if any)",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.DropGraph(ctx, args[0], args[1]); err != nil {
				return apperr.Wrap(apperr.KindUnknown, "drop graph", err)
			}

			fmt.Printf("graph %q dropped from space %q\n", args[1], args[0])

			return nil
		},
	}
}
