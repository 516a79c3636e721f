// Package updateplan implements the Update Planner (C8): for every
// SPARQL 1.1 Update form it composes a sequence of quad-insert and
// quad-delete operations, reaching into the SQL Translator to resolve
// WHERE patterns, and runs each top-level update inside one pgx.Tx.
package updateplan

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/graphcat"
	"github.com/accented-ai/quadsparql/internal/quadstore"
	"github.com/accented-ai/quadsparql/internal/space"
	"github.com/accented-ai/quadsparql/internal/sqltranslate"
	"github.com/accented-ai/quadsparql/internal/term"
	"github.com/accented-ai/quadsparql/pkg/database"
)

// Fetcher retrieves the quads named by a LOAD <source> clause. LOAD is
// out of scope for the core translation/execution pipeline; a caller
// that needs it wires a Fetcher (e.g. an HTTP GET plus an RDF parser)
// through WithFetcher. Without one, LOAD reports KindUnsupportedFeature.
type Fetcher func(ctx context.Context, source string) ([]quadstore.Quad, error)

// Planner executes parsed SPARQL Update operations against one space.
type Planner struct {
	pool     *database.Pool
	store    *quadstore.Store
	registry *term.Registry
	catalog  *graphcat.Catalog
	names        space.Names
	maxNodes     int
	maxPathDepth int
	fetch        Fetcher
}

func NewPlanner(
	pool *database.Pool,
	store *quadstore.Store,
	registry *term.Registry,
	catalog *graphcat.Catalog,
	names space.Names,
	maxNodes int,
	maxPathDepth int,
) *Planner {
	return &Planner{pool: pool, store: store, registry: registry, catalog: catalog, names: names, maxNodes: maxNodes, maxPathDepth: maxPathDepth}
}

// WithFetcher attaches a LOAD source fetcher, returning the planner
// for chaining.
func (p *Planner) WithFetcher(f Fetcher) *Planner {
	p.fetch = f
	return p
}

// Execute runs every op in sequence inside one transaction, matching
// spec.md §4.8's "composite updates are one transaction" rule: a
// failure at any op rolls back everything before it.
func (p *Planner) Execute(ctx context.Context, ops []algebra.UpdateOp) error {
	tx, err := p.pool.BeginTx(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "begin update transaction", err)
	}

	for _, op := range ops {
		if err := p.apply(ctx, tx, op); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindStorageError, "commit update transaction", err)
	}

	return nil
}

func (p *Planner) apply(ctx context.Context, tx pgx.Tx, op algebra.UpdateOp) error {
	switch op.Kind {
	case algebra.UpdateInsertData:
		return p.insertData(ctx, tx, op.Data)
	case algebra.UpdateDeleteData:
		return p.deleteData(ctx, tx, op.Data)
	case algebra.UpdateDeleteWhere:
		return p.deleteWhere(ctx, tx, op.Data)
	case algebra.UpdateModify:
		return p.modify(ctx, tx, op)
	case algebra.UpdateLoad:
		return p.load(ctx, tx, op)
	case algebra.UpdateClear, algebra.UpdateDrop:
		return p.clearOrDrop(ctx, tx, op)
	case algebra.UpdateCreate:
		return p.create(ctx, op)
	case algebra.UpdateCopy, algebra.UpdateMove, algebra.UpdateAdd:
		return p.copyMoveAdd(ctx, tx, op)
	default:
		return apperr.New(apperr.KindUnsupportedFeature, "apply update", "unknown update operation kind")
	}
}

// translateResult runs the SQL Translator over a WHERE pattern using
// a throwaway context scoped to this one operation, the same node
// budget the query path enforces.
func (p *Planner) translateResult(node algebra.Node) (*sqltranslate.Result, error) {
	tctx := sqltranslate.NewContext(p.names, p.maxNodes, p.maxPathDepth)
	return sqltranslate.Translate(tctx, node)
}
