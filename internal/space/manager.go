package space

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/config"
	"github.com/accented-ai/quadsparql/internal/graphcat"
	"github.com/accented-ai/quadsparql/internal/logging"
	"github.com/accented-ai/quadsparql/pkg/database"
)

// Manager implements C4: space (table-set) lifecycle.
type Manager struct {
	pool         *database.Pool
	qh           *database.QueryHelper
	globalPrefix string
	log          logging.Logger
}

func NewManager(pool *database.Pool, globalPrefix string, log logging.Logger) (*Manager, error) {
	if err := config.ValidateIdentifier(globalPrefix); err != nil {
		return nil, err
	}

	return &Manager{pool: pool, qh: database.NewQueryHelper(pool), globalPrefix: globalPrefix, log: log}, nil
}

// Create creates the five tables, all required indices, and seeds
// the datatype registry for a new space (spec.md §4.4). The default
// graph term is seeded separately via DefaultGraphContext, since it
// requires a term.Registry/graphcat.Catalog for the new space.
func (m *Manager) Create(ctx context.Context, spaceID string) (Names, error) {
	names, err := NewNames(m.globalPrefix, spaceID)
	if err != nil {
		return Names{}, err
	}

	for _, stmt := range createTableStatements(names) {
		if _, err := m.pool.Exec(ctx, stmt); err != nil {
			return Names{}, apperr.Wrap(apperr.KindStorageError, "create space: table DDL", err)
		}
	}

	for _, stmt := range indexStatements(names, false) {
		if _, err := m.pool.Exec(ctx, stmt); err != nil {
			return Names{}, apperr.Wrap(apperr.KindStorageError, "create space: index DDL", err)
		}
	}

	hasTrgm, err := m.pool.HasExtension(ctx, "pg_trgm")
	if err == nil && hasTrgm {
		if _, err := m.pool.Exec(ctx, trigramIndexStatement(names)); err != nil {
			m.log.Warn().Err(err).Str("space", spaceID).Msg("failed to create trigram index, continuing without it")
		}
	}

	query, args := seedDatatypeStatement(names)
	if _, err := m.pool.Exec(ctx, query, args...); err != nil {
		return Names{}, apperr.Wrap(apperr.KindStorageError, "create space: seed datatypes", err)
	}

	m.log.Info().Str("space", spaceID).Msg("space created")

	return names, nil
}

// Drop drops all tables belonging to the space prefix.
func (m *Manager) Drop(ctx context.Context, spaceID string) error {
	names, err := NewNames(m.globalPrefix, spaceID)
	if err != nil {
		return err
	}

	exists, err := m.exists(ctx, names)
	if err != nil {
		return err
	}

	if !exists {
		return apperr.New(apperr.KindUnknownSpace, "drop space", spaceID)
	}

	for _, stmt := range dropTableStatements(names) {
		if _, err := m.pool.Exec(ctx, stmt); err != nil {
			return apperr.Wrap(apperr.KindStorageError, "drop space", err)
		}
	}

	m.log.Info().Str("space", spaceID).Msg("space dropped")

	return nil
}

// Reindex drops and recreates the five composite indices (with CREATE
// INDEX CONCURRENTLY) and, when pg_trgm is available, the term_text
// trigram index, for maintenance (spec.md §4.4).
func (m *Manager) Reindex(ctx context.Context, spaceID string) error {
	names, err := NewNames(m.globalPrefix, spaceID)
	if err != nil {
		return err
	}

	for _, stmt := range dropIndexStatements(names) {
		if _, err := m.pool.Exec(ctx, stmt); err != nil {
			return apperr.Wrap(apperr.KindStorageError, "reindex space: drop", err)
		}
	}

	for _, stmt := range indexStatements(names, true) {
		if _, err := m.pool.Exec(ctx, stmt); err != nil {
			return apperr.Wrap(apperr.KindStorageError, "reindex space: create", err)
		}
	}

	hasTrgm, err := m.pool.HasExtension(ctx, "pg_trgm")
	if err == nil && hasTrgm {
		if _, err := m.pool.Exec(ctx, trigramIndexStatement(names)); err != nil {
			m.log.Warn().Err(err).Str("space", spaceID).Msg("failed to recreate trigram index, continuing without it")
		}
	}

	return nil
}

// List returns the space ids currently present, discovered from
// pg_tables.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	query := "SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename LIKE $1"

	var ids []string

	err := m.qh.FetchAll(ctx, query, func(rows pgx.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}

		if id, ok := spaceIDFromTableName(m.globalPrefix, name); ok {
			ids = append(ids, id)
		}

		return nil
	}, m.globalPrefix+"\\_\\_%\\_\\_rdf\\_quad")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "list spaces", err)
	}

	sort.Strings(ids)

	return ids, nil
}

func (m *Manager) exists(ctx context.Context, names Names) (bool, error) {
	var exists bool

	query := "SELECT EXISTS (SELECT 1 FROM pg_tables WHERE schemaname = 'public' AND tablename = $1)"

	err := m.pool.QueryRow(ctx, query, names.Quad).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.KindStorageError, "check space existence", err)
	}

	return exists, nil
}

// DefaultGraphContext seeds the graph catalog with the reserved
// default-graph URI, as spec.md §4.4 requires at space initialization.
func (m *Manager) DefaultGraphContext(ctx context.Context, cat *graphcat.Catalog) error {
	if err := cat.EnsureGraph(ctx, graphcat.DefaultGraphURI); err != nil {
		return fmt.Errorf("seed default graph: %w", err)
	}

	return nil
}
