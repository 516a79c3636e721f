package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/accented-ai/quadsparql/internal/apperr"
)

// BuildInfo carries the version metadata main stamps in at link time.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Execute builds the root command, wires every subcommand, and runs
// it against ctx.
func Execute(ctx context.Context, info BuildInfo) error {
	rootCmd := newRootCommand()
	rootCmd.AddCommand(
		newSpaceCommand(ctx),
		newGraphCommand(ctx),
		newQueryCommand(ctx),
		newUpdateCommand(ctx),
		newDumpCommand(ctx),
		newVersionCommand(info),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return apperr.Wrap(apperr.KindUnknown, "execute command", err)
	}

	return nil
}

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "quadsparql",
		Short: "RDF quad store and SPARQL query engine over PostgreSQL",
		Long: `quadsparql stores RDF quads in a PostgreSQL-backed, multi-tenant quad
store and answers SPARQL 1.1 Query and Update requests against them.

Each space is an independently provisioned set of tables; the
connection is configured through QUADSPARQL_DATABASE_* environment
variables, and you name the space you want to work against on each
subcommand.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("quadsparql %s\n", info.Version)
			fmt.Printf("  commit:     %s\n", info.Commit)
			fmt.Printf("  built:      %s\n", info.BuildTime)
		},
	}
}
