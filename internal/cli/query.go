package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/pkg/engine"
)

func newQueryCommand(ctx context.Context) *cobra.Command {
	var timeoutMS, maxRows int

	cmd := &cobra.Command{
		Use:   "query <space-id> <file|->",
		Short: "Run a SPARQL 1.1 Query against a space",
		Long: `Run a SPARQL 1.1 Query (SELECT, ASK, CONSTRUCT, or DESCRIBE) against a
space. Pass "-" to read the query text from stdin.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			text, err := readInput(args[1])
			if err != nil {
				return err
			}

			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			result, err := eng.ExecuteQuery(ctx, args[0], text, engine.QueryOptions{
				TimeoutMS: timeoutMS,
				MaxRows:   maxRows,
			})
			if err != nil {
				return apperr.Wrap(apperr.KindUnknown, "execute query", err)
			}

			return printQueryResult(os.Stdout, result)
		},
	}

	cmd.Flags().IntVar(&timeoutMS, "timeout", 0, "query timeout in milliseconds (0 uses the configured default)")
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "row cap for this query (0 uses the configured default)")

	return cmd
}
