package engine

import (
	"context"

	"github.com/accented-ai/quadsparql/internal/quadstore"
)

// InsertQuads bulk-inserts quads into spaceID, interning any new terms
// along the way (C2/C1).
func (e *Engine) InsertQuads(ctx context.Context, spaceID string, quads []quadstore.Quad) (int, error) {
	h, err := e.handle(spaceID)
	if err != nil {
		return 0, err
	}

	return h.store.InsertQuads(ctx, quads)
}

// DeleteQuads removes every quad in spaceID matching pattern, where a
// nil pattern field means that position is unbound.
func (e *Engine) DeleteQuads(ctx context.Context, spaceID string, pattern quadstore.Pattern) (int, error) {
	h, err := e.handle(spaceID)
	if err != nil {
		return 0, err
	}

	return h.store.DeleteQuads(ctx, pattern)
}

// ScanQuads returns up to limit quads in spaceID matching pattern (0
// means unbounded); it backs the dump CLI subcommand and any caller
// that needs raw quads rather than a SPARQL result.
func (e *Engine) ScanQuads(ctx context.Context, spaceID string, pattern quadstore.Pattern, limit int) ([]quadstore.Quad, error) {
	h, err := e.handle(spaceID)
	if err != nil {
		return nil, err
	}

	return h.store.Scan(ctx, pattern, limit)
}
