package quadstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/term"
	"github.com/accented-ai/quadsparql/pkg/database"
)

// maxSingleStatementBatch is the spec.md §4.2 threshold: batches of
// this size or smaller execute as one statement; larger batches are
// chunked.
const maxSingleStatementBatch = 10_000

// Store implements C2 for one space.
type Store struct {
	pool      *database.Pool
	qh        *database.QueryHelper
	quadTable string
	registry  *term.Registry
}

func NewStore(pool *database.Pool, quadTable string, registry *term.Registry) *Store {
	return &Store{
		pool:      pool,
		qh:        database.NewQueryHelper(pool),
		quadTable: quadTable,
		registry:  registry,
	}
}

// InsertQuads interns terms then bulk-inserts quads, chunking at
// maxSingleStatementBatch. It returns the number of newly inserted
// rows; duplicates are silently ignored (ON CONFLICT DO NOTHING),
// matching spec.md §4.2's ConstraintViolation-as-no-op policy.
func (s *Store) InsertQuads(ctx context.Context, quads []Quad) (int, error) {
	inserted := 0

	for start := 0; start < len(quads); start += maxSingleStatementBatch {
		end := min(start+maxSingleStatementBatch, len(quads))

		n, err := s.insertChunk(ctx, quads[start:end])
		if err != nil {
			return inserted, err
		}

		inserted += n
	}

	return inserted, nil
}

func (s *Store) insertChunk(ctx context.Context, quads []Quad) (int, error) {
	terms := make([]term.Term, 0, len(quads)*4)
	for _, q := range quads {
		terms = append(terms, q.Subject, q.Predicate, q.Object, q.Context)
	}

	uuids, err := s.registry.InternBatch(ctx, terms)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStorageError, "insert quads: intern terms", err)
	}

	subj := make([]uuid.UUID, len(quads))
	pred := make([]uuid.UUID, len(quads))
	obj := make([]uuid.UUID, len(quads))
	ctxID := make([]uuid.UUID, len(quads))
	qid := make([]uuid.UUID, len(quads))

	for i := range quads {
		s2, p2, o2, c2 := uuids[i*4], uuids[i*4+1], uuids[i*4+2], uuids[i*4+3]
		subj[i], pred[i], obj[i], ctxID[i] = s2, p2, o2, c2
		qid[i] = QuadUUID(s2, p2, o2, c2)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (quad_uuid, subject_uuid, predicate_uuid, object_uuid, context_uuid, created_time)
		SELECT *, now() FROM UNNEST($1::uuid[], $2::uuid[], $3::uuid[], $4::uuid[], $5::uuid[])
		ON CONFLICT (subject_uuid, predicate_uuid, object_uuid, context_uuid) DO NOTHING`, s.quadTable) //nolint:gosec

	tag, err := s.pool.Exec(ctx, query, qid, subj, pred, obj, ctxID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStorageError, "insert quads", err)
	}

	return int(tag.RowsAffected()), nil
}

// DeleteQuads deletes every quad matching pattern, returning the
// number of rows removed.
func (s *Store) DeleteQuads(ctx context.Context, pattern Pattern) (int, error) {
	where, args := patternPredicate(pattern, 1)

	query := fmt.Sprintf("DELETE FROM %s", s.quadTable) //nolint:gosec
	if where != "" {
		query += " WHERE " + where
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStorageError, "delete quads", err)
	}

	return int(tag.RowsAffected()), nil
}

// Count returns the number of quads matching pattern.
func (s *Store) Count(ctx context.Context, pattern Pattern) (int64, error) {
	where, args := patternPredicate(pattern, 1)

	query := fmt.Sprintf("SELECT count(*) FROM %s", s.quadTable) //nolint:gosec
	if where != "" {
		query += " WHERE " + where
	}

	var n int64

	err := s.qh.FetchOne(ctx, query, func(row pgx.Row) error {
		return row.Scan(&n)
	}, args...)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStorageError, "count quads", err)
	}

	return n, nil
}

// Scan streams quads matching pattern, decoded to full terms via the
// registry, optionally capped at limit rows (limit <= 0 means
// unbounded). Used by administrative tooling and by the Update
// Planner resolving DELETE WHERE without a full SPARQL WHERE clause.
func (s *Store) Scan(ctx context.Context, pattern Pattern, limit int) ([]Quad, error) {
	where, args := patternPredicate(pattern, 1)

	query := fmt.Sprintf("SELECT subject_uuid, predicate_uuid, object_uuid, context_uuid FROM %s", s.quadTable) //nolint:gosec
	if where != "" {
		query += " WHERE " + where
	}

	query += " ORDER BY quad_uuid"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var raw []UUIDQuad

	err := s.qh.FetchAll(ctx, query, func(rows pgx.Rows) error {
		var uq UUIDQuad

		if err := rows.Scan(&uq.Subject, &uq.Predicate, &uq.Object, &uq.Context); err != nil {
			return err
		}

		uq.CreatedTime = time.Now().UTC()
		raw = append(raw, uq)

		return nil
	}, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "scan quads", err)
	}

	return s.decode(ctx, raw)
}

func (s *Store) decode(ctx context.Context, raw []UUIDQuad) ([]Quad, error) {
	ids := make([]uuid.UUID, 0, len(raw)*4)
	for _, uq := range raw {
		ids = append(ids, uq.Subject, uq.Predicate, uq.Object, uq.Context)
	}

	terms, err := s.registry.LookupBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	quads := make([]Quad, len(raw))

	for i, uq := range raw {
		quads[i] = Quad{
			Subject:   terms[uq.Subject],
			Predicate: terms[uq.Predicate],
			Object:    terms[uq.Object],
			Context:   terms[uq.Context],
		}
	}

	return quads, nil
}

// patternPredicate builds the WHERE fragment and bound args for
// pattern, using $N placeholders starting at startIdx. Only column
// names (vetted constants) are ever inlined; all values are bound.
func patternPredicate(p Pattern, startIdx int) (string, []any) {
	var clauses []string

	var args []any

	idx := startIdx

	add := func(col string, v *uuid.UUID) {
		if v == nil {
			return
		}

		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, *v)
		idx++
	}

	add("subject_uuid", p.Subject)
	add("predicate_uuid", p.Predicate)
	add("object_uuid", p.Object)
	add("context_uuid", p.Context)

	return strings.Join(clauses, " AND "), args
}
