package engine

import (
	"context"

	"github.com/accented-ai/quadsparql/internal/apperr"
)

// CreateSpace provisions a new space's tables and seeds its default
// graph context (spec.md §4.4).
func (e *Engine) CreateSpace(ctx context.Context, spaceID string) error {
	names, err := e.spaces.Create(ctx, spaceID)
	if err != nil {
		return err
	}

	e.forget(spaceID)

	h, err := e.handle(spaceID)
	if err != nil {
		return err
	}

	if names.Quad != h.names.Quad {
		return apperr.New(apperr.KindStorageError, "create space", "space handle name mismatch after create")
	}

	return e.spaces.DefaultGraphContext(ctx, h.catalog)
}

// DropSpace removes every table belonging to spaceID and discards its
// cached handle.
func (e *Engine) DropSpace(ctx context.Context, spaceID string) error {
	if err := e.spaces.Drop(ctx, spaceID); err != nil {
		return err
	}

	e.forget(spaceID)

	return nil
}

// ListSpaces returns every space currently provisioned, sorted.
func (e *Engine) ListSpaces(ctx context.Context) ([]string, error) {
	return e.spaces.List(ctx)
}

// EnsureGraph registers uri as a named graph in spaceID's catalog,
// creating it if it isn't already known.
func (e *Engine) EnsureGraph(ctx context.Context, spaceID, uri string) error {
	h, err := e.handle(spaceID)
	if err != nil {
		return err
	}

	return h.catalog.EnsureGraph(ctx, uri)
}

// DropGraph removes uri from spaceID's graph catalog. It does not
// delete the graph's quads; callers that want that should issue
// `DROP GRAPH <uri>` through ExecuteUpdate instead, which clears the
// quads first.
func (e *Engine) DropGraph(ctx context.Context, spaceID, uri string) error {
	h, err := e.handle(spaceID)
	if err != nil {
		return err
	}

	return h.catalog.DropGraph(ctx, uri)
}

// ListGraphs returns every named graph registered in spaceID's
// catalog (the default graph is never included, per spec.md §3).
func (e *Engine) ListGraphs(ctx context.Context, spaceID string) ([]string, error) {
	h, err := e.handle(spaceID)
	if err != nil {
		return nil, err
	}

	return h.catalog.ListGraphs(ctx)
}
