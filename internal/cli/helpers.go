package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/config"
	"github.com/accented-ai/quadsparql/internal/logging"
	"github.com/accented-ai/quadsparql/internal/nquads"
	"github.com/accented-ai/quadsparql/pkg/engine"
)

// newEngine loads QUADSPARQL_* configuration from the environment and
// opens an Engine against it. Every subcommand shares this one path so
// connection handling never drifts between them.
func newEngine(ctx context.Context) (*engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	return engine.New(ctx, cfg, logging.Default())
}

// readInput returns path's contents, reading stdin when path is "-".
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", apperr.Wrap(apperr.KindUnknown, "read stdin", err)
		}

		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnknown, "read file", err)
	}

	return string(data), nil
}

// printQueryResult renders a QueryResult the way an operator reading a
// terminal expects: ASK as a bare boolean line, CONSTRUCT/DESCRIBE as
// N-Quads, SELECT as a simple tab-separated table with a header row.
func printQueryResult(w io.Writer, res *engine.QueryResult) error {
	switch {
	case res.BooleanSet:
		fmt.Fprintln(w, res.Boolean)
	case res.Triples != nil || (res.Rows == nil && !res.BooleanSet):
		if err := nquads.Encode(w, res.Triples); err != nil {
			return apperr.Wrap(apperr.KindUnknown, "write n-quads", err)
		}
	default:
		printRows(w, res.Rows)
	}

	if res.Truncated {
		fmt.Fprintln(os.Stderr, "warning: result truncated at the configured row limit")
	}

	return nil
}

func printRows(w io.Writer, rows []engine.Row) {
	if len(rows) == 0 {
		return
	}

	vars := make([]engine.Var, 0, len(rows[0]))
	for v := range rows[0] {
		vars = append(vars, v)
	}

	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })

	for i, v := range vars {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}

		fmt.Fprint(w, v)
	}

	fmt.Fprintln(w)

	for _, row := range rows {
		for i, v := range vars {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}

			if t := row[v]; t != nil {
				fmt.Fprint(w, t.Text)
			}
		}

		fmt.Fprintln(w)
	}
}
