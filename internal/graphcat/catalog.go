// Package graphcat implements the Graph Catalog (C3): the set of
// named-graph context URIs known to exist in a space, cached in
// memory and authoritative in the database's graph table. The
// hit/miss counters and lazy-populate-on-first-miss behavior are
// grounded directly on
// original_source/vitalgraph/db/postgresql/postgresql_cache_graph.py's
// PostgreSQLCacheGraph.
package graphcat

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/cache"
	"github.com/accented-ai/quadsparql/internal/term"
	"github.com/accented-ai/quadsparql/pkg/database"
)

// DefaultGraphURI is the reserved context URI representing the
// default graph (spec.md §3).
const DefaultGraphURI = "urn:quadsparql:default-graph"

type Catalog struct {
	pool       *database.Pool
	qh         *database.QueryHelper
	registry   *term.Registry
	graphTable string

	known *cache.LRU[string, uuid.UUID]

	mu          sync.Mutex
	initialized bool
	hits        int64
	misses      int64
}

func New(pool *database.Pool, registry *term.Registry, graphTable string, cacheSize int) *Catalog {
	return &Catalog{
		pool:       pool,
		qh:         database.NewQueryHelper(pool),
		registry:   registry,
		graphTable: graphTable,
		known:      cache.New[string, uuid.UUID](cacheSize),
	}
}

// Stats reports cache hit/miss counts, carried forward from the
// original implementation's instrumentation though not part of the
// core correctness contract.
func (c *Catalog) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits, c.misses
}

func (c *Catalog) ensureInitialized(ctx context.Context) error {
	c.mu.Lock()
	initialized := c.initialized
	c.mu.Unlock()

	if initialized {
		return nil
	}

	query := fmt.Sprintf("SELECT context_uuid FROM %s", c.graphTable) //nolint:gosec

	var ids []uuid.UUID

	err := c.qh.FetchAll(ctx, query, func(rows pgx.Rows) error {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return err
		}

		ids = append(ids, id)

		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "initialize graph catalog", err)
	}

	terms, err := c.registry.LookupBatch(ctx, ids)
	if err != nil {
		return err
	}

	for id, t := range terms {
		c.known.Put(t.Text, id)
	}

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()

	return nil
}

// EnsureGraph marks uri as existing; idempotent.
func (c *Catalog) EnsureGraph(ctx context.Context, uri string) error {
	if err := c.ensureInitialized(ctx); err != nil {
		return err
	}

	if c.isCached(uri) {
		return nil
	}

	id, err := c.registry.Intern(ctx, term.URI(uri))
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "ensure graph: intern context", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (context_uuid) VALUES ($1)
		ON CONFLICT (context_uuid) DO NOTHING`, c.graphTable) //nolint:gosec

	if _, err := c.pool.Exec(ctx, query, id); err != nil {
		return apperr.Wrap(apperr.KindStorageError, "ensure graph", err)
	}

	c.known.Put(uri, id)

	return nil
}

func (c *Catalog) isCached(uri string) bool {
	_, ok := c.known.Get(uri)

	c.mu.Lock()
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	return ok
}

// ListGraphs returns the set of named-graph context URIs currently
// known; the default graph's catalog row is not included.
func (c *Catalog) ListGraphs(ctx context.Context) ([]string, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT context_uuid FROM %s ORDER BY context_uuid", c.graphTable) //nolint:gosec

	var ids []uuid.UUID

	err := c.qh.FetchAll(ctx, query, func(rows pgx.Rows) error {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return err
		}

		ids = append(ids, id)

		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "list graphs", err)
	}

	terms, err := c.registry.LookupBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	uris := make([]string, 0, len(terms))
	for _, t := range terms {
		if t.Text == DefaultGraphURI {
			continue
		}

		uris = append(uris, t.Text)
	}

	return uris, nil
}

// ContextUUID resolves a graph URI to its term UUID, interning it if
// this is the first time it's seen (used by the translator when it
// needs a bound literal context to compare against).
func (c *Catalog) ContextUUID(ctx context.Context, uri string) (uuid.UUID, error) {
	if id, ok := c.known.Get(uri); ok {
		return id, nil
	}

	return c.registry.Intern(ctx, term.URI(uri))
}

// DropGraph removes uri's catalog row and cache entry; it does not
// delete the graph's quads. The caller is responsible for the quad
// deletion (quadstore.Store.DeleteQuads); DropGraph only maintains the
// catalog row and cache.
func (c *Catalog) DropGraph(ctx context.Context, uri string) error {
	id, err := c.ContextUUID(ctx, uri)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE context_uuid = $1", c.graphTable) //nolint:gosec

	if _, err := c.pool.Exec(ctx, query, id); err != nil {
		return apperr.Wrap(apperr.KindStorageError, "drop graph", err)
	}

	c.known.Delete(uri)

	return nil
}
