// Package engine assembles the Space Manager, Term Registry, Graph
// Catalog, Quad Store, SPARQL parser, SQL Translator, Executor, and
// Update Planner into the single Core API (spec.md §6) a caller
// embeds or drives from the CLI. It is the module's one exported
// entry point — every internal/* package stays unexported to callers
// outside this module.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/config"
	"github.com/accented-ai/quadsparql/internal/graphcat"
	"github.com/accented-ai/quadsparql/internal/logging"
	"github.com/accented-ai/quadsparql/internal/quadstore"
	"github.com/accented-ai/quadsparql/internal/space"
	"github.com/accented-ai/quadsparql/internal/sparqlparse"
	"github.com/accented-ai/quadsparql/internal/sqlexec"
	"github.com/accented-ai/quadsparql/internal/term"
	"github.com/accented-ai/quadsparql/internal/updateplan"
	"github.com/accented-ai/quadsparql/pkg/database"
)

// Engine is the top-level handle a caller opens once per process (or
// per test) and shares across every space it touches.
type Engine struct {
	pool   *database.Pool
	cfg    *config.Config
	log    logging.Logger
	spaces *space.Manager

	mu         sync.Mutex
	spaceState map[string]*spaceHandle
}

// spaceHandle bundles the per-space components that all depend on
// that space's table names, built lazily on first use and cached for
// the Engine's lifetime.
type spaceHandle struct {
	names    space.Names
	registry *term.Registry
	store    *quadstore.Store
	catalog  *graphcat.Catalog
	planner  *updateplan.Planner
	executor *sqlexec.Executor
}

// New opens a connection pool against cfg.Database and returns a
// ready Engine. log defaults to logging.Default() if nil.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*Engine, error) {
	if log == nil {
		log = logging.Default()
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.Database.ConnString())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "open engine", err)
	}

	mgr, err := space.NewManager(pool, cfg.Tables.GlobalPrefix, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Engine{
		pool:       pool,
		cfg:        cfg,
		log:        log,
		spaces:     mgr,
		spaceState: make(map[string]*spaceHandle),
	}, nil
}

// Close releases the underlying connection pool.
func (e *Engine) Close() {
	e.pool.Close()
}

// handle returns the cached spaceHandle for spaceID, building one the
// first time a space is touched. It does not verify the space's
// tables exist on disk — CreateSpace/DropSpace do that — so a handle
// for a not-yet-created or just-dropped space is cheap to construct
// and simply fails the first query/update issued against it.
func (e *Engine) handle(spaceID string) (*spaceHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if h, ok := e.spaceState[spaceID]; ok {
		return h, nil
	}

	names, err := space.NewNames(e.cfg.Tables.GlobalPrefix, spaceID)
	if err != nil {
		return nil, err
	}

	registry := term.NewRegistry(e.pool, names.Term, names.Datatype, e.cfg.Limits.TermCacheSize)
	store := quadstore.NewStore(e.pool, names.Quad, registry)
	catalog := graphcat.New(e.pool, registry, names.Graph, e.cfg.Limits.GraphCacheSize)
	planner := updateplan.NewPlanner(e.pool, store, registry, catalog, names, e.cfg.Limits.MaxAlgebraNodes, e.cfg.Limits.MaxPathDepth)
	executor := sqlexec.NewExecutor(e.pool, e.cfg.Limits.MaxRows, e.queryTimeout(0))

	h := &spaceHandle{
		names:    names,
		registry: registry,
		store:    store,
		catalog:  catalog,
		planner:  planner,
		executor: executor,
	}

	e.spaceState[spaceID] = h

	return h, nil
}

// forget drops a space's cached handle, so a later CreateSpace after
// a DropSpace rebuilds fresh caches instead of reusing stale ones.
func (e *Engine) forget(spaceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.spaceState, spaceID)
}

// recordPrefixes opportunistically upserts text's PREFIX declarations
// into the space's namespace table (spec.md §6, SPEC_FULL.md §3). It
// is best-effort: the table is for pretty-printing only, so a failure
// here is logged and swallowed rather than surfaced to the caller.
func (e *Engine) recordPrefixes(ctx context.Context, h *spaceHandle, text string) {
	prefixes := sparqlparse.ExtractPrefixes(text)
	if len(prefixes) == 0 {
		return
	}

	labels := make([]string, 0, len(prefixes))
	uris := make([]string, 0, len(prefixes))

	for label, uri := range prefixes {
		labels = append(labels, label)
		uris = append(uris, uri)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (prefix, uri)
		SELECT * FROM UNNEST($1::text[], $2::text[])
		ON CONFLICT (prefix) DO UPDATE SET uri = EXCLUDED.uri`, h.names.Namespace) //nolint:gosec

	if _, err := e.pool.Exec(ctx, query, labels, uris); err != nil {
		e.log.Warn().Err(err).Str("space", h.names.Namespace).Msg("failed to record namespace prefixes, continuing")
	}
}

func (e *Engine) queryTimeout(overrideMS int) time.Duration {
	ms := e.cfg.Limits.QueryTimeoutMS
	if overrideMS > 0 {
		ms = overrideMS
	}

	return time.Duration(ms) * time.Millisecond
}
