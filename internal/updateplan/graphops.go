package updateplan

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/graphcat"
	"github.com/accented-ai/quadsparql/internal/quadstore"
	"github.com/accented-ai/quadsparql/internal/term"
)

// clearOrDrop empties every quad in the targeted graph(s); DROP
// additionally removes the graph from the catalog (spec.md §4.8: "DROP
// GRAPH <g>: clear then remove from C3" — CLEAR leaves the (now empty)
// graph registered).
func (p *Planner) clearOrDrop(ctx context.Context, tx pgx.Tx, op algebra.UpdateOp) error {
	uris, err := p.graphURIsFor(ctx, op.Graph)
	if err != nil {
		if op.Silent {
			return nil
		}

		return err
	}

	for _, uri := range uris {
		if err := p.clearGraphTx(ctx, tx, uri); err != nil {
			return err
		}

		if op.Kind == algebra.UpdateDrop && !op.Graph.Default && !op.Graph.All {
			if err := p.catalog.DropGraph(ctx, uri); err != nil {
				return apperr.Wrap(apperr.KindStorageError, "drop graph", err)
			}
		}
	}

	return nil
}

// create registers a new named graph (spec.md §4.8: "CREATE GRAPH
// <g>: ensure_graph"); it never touches the transaction since the
// catalog's own table write is its own unit of work.
func (p *Planner) create(ctx context.Context, op algebra.UpdateOp) error {
	if op.Graph.IRI == "" {
		return apperr.New(apperr.KindParseError, "create graph", "CREATE requires an explicit graph IRI")
	}

	if err := p.catalog.EnsureGraph(ctx, op.Graph.IRI); err != nil {
		if op.Silent {
			return nil
		}

		return apperr.Wrap(apperr.KindStorageError, "create graph", err)
	}

	return nil
}

// load delegates to the configured Fetcher, then inserts whatever
// quads it yields; LOAD itself is out of scope for the core (spec.md
// §4.8), so without a Fetcher this reports KindUnsupportedFeature.
func (p *Planner) load(ctx context.Context, tx pgx.Tx, op algebra.UpdateOp) error {
	if p.fetch == nil {
		if op.Silent {
			return nil
		}

		return apperr.New(apperr.KindUnsupportedFeature, "load",
			"LOAD requires a Fetcher to be wired in; none configured")
	}

	quads, err := p.fetch(ctx, op.Source)
	if err != nil {
		if op.Silent {
			return nil
		}

		return apperr.Wrap(apperr.KindStorageError, "load", err)
	}

	targetURI := graphcat.DefaultGraphURI
	if op.Target != nil {
		targetURI = *op.Target
	}

	targetTerm := term.URI(targetURI)

	for i := range quads {
		quads[i].Context = targetTerm
	}

	return p.insertQuadsTx(ctx, tx, quads)
}

// copyMoveAdd implements COPY/MOVE/ADD per spec.md §4.8: all three are
// "CLEAR (for COPY/MOVE on the target) + INSERT FROM SELECT over the
// source graph"; ADD additionally leaves the destination un-cleared,
// and MOVE additionally clears the source after copying.
func (p *Planner) copyMoveAdd(ctx context.Context, tx pgx.Tx, op algebra.UpdateOp) error {
	sourceURI := graphRefURI(op.From)
	destURI := graphRefURI(op.To)

	if op.Kind != algebra.UpdateAdd {
		if err := p.clearGraphTx(ctx, tx, destURI); err != nil {
			return err
		}
	}

	sourceCtxID, found, err := p.registry.Resolve(ctx, term.URI(sourceURI))
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "resolve source graph", err)
	}

	if found {
		quads, err := p.store.Scan(ctx, quadstore.Pattern{Context: &sourceCtxID}, 0)
		if err != nil {
			return apperr.Wrap(apperr.KindStorageError, "scan source graph", err)
		}

		destTerm := term.URI(destURI)
		for i := range quads {
			quads[i].Context = destTerm
		}

		if err := p.insertQuadsTx(ctx, tx, quads); err != nil {
			return err
		}
	}

	if op.Kind == algebra.UpdateMove {
		if err := p.clearGraphTx(ctx, tx, sourceURI); err != nil {
			return err
		}
	}

	return nil
}

func graphRefURI(ref algebra.GraphRef) string {
	if ref.Default {
		return graphcat.DefaultGraphURI
	}

	return ref.IRI
}

// graphURIsFor expands a GraphRef into the concrete graph URIs it
// covers: Default and an explicit IRI each name exactly one graph; All
// covers the default graph plus every catalog-known named graph;
// Named covers only the catalog-known named graphs.
func (p *Planner) graphURIsFor(ctx context.Context, ref algebra.GraphRef) ([]string, error) {
	switch {
	case ref.Default:
		return []string{graphcat.DefaultGraphURI}, nil
	case ref.IRI != "":
		return []string{ref.IRI}, nil
	case ref.Named, ref.All:
		named, err := p.catalog.ListGraphs(ctx)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorageError, "list graphs", err)
		}

		if ref.All {
			return append(named, graphcat.DefaultGraphURI), nil
		}

		return named, nil
	default:
		return nil, apperr.New(apperr.KindParseError, "resolve graph reference", "graph reference names no target")
	}
}

func (p *Planner) clearGraphTx(ctx context.Context, tx pgx.Tx, graphURI string) error {
	ctxID, found, err := p.registry.Resolve(ctx, term.URI(graphURI))
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "resolve graph", err)
	}

	if !found {
		return nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE context_uuid = $1", p.names.Quad) //nolint:gosec

	if _, err := tx.Exec(ctx, query, ctxID); err != nil {
		return apperr.Wrap(apperr.KindStorageError, "clear graph", err)
	}

	return nil
}
