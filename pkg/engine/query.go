package engine

import (
	"context"

	"github.com/accented-ai/quadsparql/internal/logging"
	"github.com/accented-ai/quadsparql/internal/sparqlparse"
	"github.com/accented-ai/quadsparql/internal/sqlexec"
	"github.com/accented-ai/quadsparql/internal/sqltranslate"
)

// ExecuteQuery parses, translates, and runs a SPARQL 1.1 Query against
// spaceID, applying opts on top of the engine's configured timeout and
// row cap.
func (e *Engine) ExecuteQuery(ctx context.Context, spaceID, query string, opts QueryOptions) (*QueryResult, error) {
	h, err := e.handle(spaceID)
	if err != nil {
		return nil, err
	}

	algebraTree, err := sparqlparse.ParseQuery(query)
	if err != nil {
		return nil, err
	}

	e.recordPrefixes(ctx, h, query)

	logging.LogAlgebra(e.log, "query", algebraTree)

	tctx := sqltranslate.NewContext(h.names, e.cfg.Limits.MaxAlgebraNodes, e.cfg.Limits.MaxPathDepth)

	translated, err := sqltranslate.Translate(tctx, algebraTree)
	if err != nil {
		return nil, err
	}

	exec := e.executorFor(h, opts)

	result, err := exec.Run(ctx, translated)
	if err != nil {
		return nil, err
	}

	return toQueryResult(result), nil
}

// executorFor returns h's cached Executor when opts requests no
// override, or a fresh one scoped to this call otherwise; an Executor
// is a thin, poolless-to-construct wrapper around the shared pool, so
// building one per overridden call costs nothing beyond the struct
// itself.
func (e *Engine) executorFor(h *spaceHandle, opts QueryOptions) *sqlexec.Executor {
	if opts.TimeoutMS <= 0 && opts.MaxRows <= 0 {
		return h.executor
	}

	maxRows := e.cfg.Limits.MaxRows
	if opts.MaxRows > 0 {
		maxRows = opts.MaxRows
	}

	return sqlexec.NewExecutor(e.pool, maxRows, e.queryTimeout(opts.TimeoutMS))
}

func toQueryResult(r *sqlexec.Result) *QueryResult {
	qr := &QueryResult{
		Rows:      r.Rows,
		Triples:   r.Triples,
		Truncated: r.Truncated,
	}

	if r.Shape == sqltranslate.ShapeBoolean {
		qr.Boolean = r.Boolean
		qr.BooleanSet = true
	}

	return qr
}
