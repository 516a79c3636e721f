package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/nquads"
	"github.com/accented-ai/quadsparql/internal/quadstore"
)

func newDumpCommand(ctx context.Context) *cobra.Command {
	var graphURI string

	cmd := &cobra.Command{
		Use:   "dump <space-id>",
		Short: "Dump every quad in a space as N-Quads",
		Long: `Dump every quad in a space to stdout as N-Quads, for backup or
inspection outside of SPARQL. --graph restricts the dump to one named
graph (or the default graph).`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			quads, err := eng.ScanQuads(ctx, args[0], quadstore.Pattern{}, 0)
			if err != nil {
				return apperr.Wrap(apperr.KindUnknown, "dump space", err)
			}

			if graphURI != "" {
				quads = filterByGraph(quads, graphURI)
			}

			if err := nquads.Encode(os.Stdout, quads); err != nil {
				return apperr.Wrap(apperr.KindUnknown, "write n-quads", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&graphURI, "graph", "", "restrict the dump to one graph URI")

	return cmd
}

func filterByGraph(quads []quadstore.Quad, graphURI string) []quadstore.Quad {
	filtered := quads[:0]

	for _, q := range quads {
		if q.Context.Text == graphURI {
			filtered = append(filtered, q)
		}
	}

	return filtered
}
