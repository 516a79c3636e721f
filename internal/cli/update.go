package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/accented-ai/quadsparql/internal/apperr"
)

func newUpdateCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "update <space-id> <file|->",
		Short: "Run a SPARQL 1.1 Update request against a space",
		Long: `Run a SPARQL 1.1 Update request (INSERT DATA, DELETE DATA, DELETE/INSERT
WHERE, LOAD, CLEAR, DROP, CREATE, COPY, MOVE, or ADD) against a space.
Pass "-" to read the update text from stdin. Every top-level operation
in the request runs inside one transaction.`,
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

			if err := eng.ExecuteUpdate(ctx, args[0], text); err != nil {
				return apperr.Wrap(apperr.KindUnknown, "execute update", err)
			}

			fmt.Println("update applied")

			return nil
		},
	}
}
