package term

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/cache"
	"github.com/accented-ai/quadsparql/pkg/database"
)

// Registry implements C1 for one space: it interns RDF terms into
// that space's term table and caches lookups in both directions. A
// literal's datatype is stored on the term row as a datatype_id
// foreign key into the space's datatype registry table, per spec.md
// §6 ("term(..., datatype_id INT?)") — resolveDatatypeID/URI below
// translate between that id and the XSD/rdf:langString URI callers
// actually work with, inserting a new datatype row the first time an
// unseeded datatype URI is interned.
type Registry struct {
	pool          *database.Pool
	qh            *database.QueryHelper
	tableName     string // fully qualified, e.g. qs__myspace__term
	datatypeTable string // fully qualified, e.g. qs__myspace__datatype

	byTerm *cache.LRU[Term, uuid.UUID]
	byUUID *cache.LRU[uuid.UUID, Term]

	dtByURI *cache.LRU[string, int32]
	dtByID  *cache.LRU[int32, string]
}

// NewRegistry builds a Registry backed by termTable and datatypeTable
// (the space's fully prefixed term and datatype table names) with an
// LRU of the given size in each term<->UUID direction. The datatype
// caches are unbounded: a space's datatype registry is small by
// design (spec.md §3) and never needs eviction.
func NewRegistry(pool *database.Pool, termTable, datatypeTable string, cacheSize int) *Registry {
	return &Registry{
		pool:          pool,
		qh:            database.NewQueryHelper(pool),
		tableName:     termTable,
		datatypeTable: datatypeTable,
		byTerm:        cache.New[Term, uuid.UUID](cacheSize),
		byUUID:        cache.New[uuid.UUID, Term](cacheSize),
		dtByURI:       cache.New[string, int32](0),
		dtByID:        cache.New[int32, string](0),
	}
}

// resolveDatatypeID returns the datatype_id for uri, inserting a new
// datatype row (DO NOTHING on conflict, then reading back the winner)
// the first time an unseeded URI is interned.
func (r *Registry) resolveDatatypeID(ctx context.Context, uri string) (int32, error) {
	if id, ok := r.dtByURI.Get(uri); ok {
		return id, nil
	}

	query := fmt.Sprintf(`
		WITH new_row AS (
			INSERT INTO %[1]s (datatype_id, datatype_uri)
			SELECT COALESCE(MAX(datatype_id), 0) + 1, $1 FROM %[1]s
			ON CONFLICT (datatype_uri) DO NOTHING
			RETURNING datatype_id
		)
		SELECT datatype_id FROM new_row
		UNION ALL
		SELECT datatype_id FROM %[1]s WHERE datatype_uri = $1
		LIMIT 1`, r.datatypeTable) //nolint:gosec

	var id int32

	err := r.qh.FetchOne(ctx, query, func(row pgx.Row) error {
		return row.Scan(&id)
	}, uri)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStorageError, "resolve datatype id", err)
	}

	r.dtByURI.Put(uri, id)
	r.dtByID.Put(id, uri)

	return id, nil
}

// resolveDatatypeURIBatch resolves many datatype ids at once, used by
// LookupBatch to decode term rows back to their datatype URIs without
// one round trip per row.
func (r *Registry) resolveDatatypeURIBatch(ctx context.Context, ids []int32) (map[int32]string, error) {
	result := make(map[int32]string, len(ids))

	var missing []int32

	seen := make(map[int32]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}

		seen[id] = true

		if uri, ok := r.dtByID.Get(id); ok {
			result[id] = uri
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`SELECT datatype_id, datatype_uri FROM %s WHERE datatype_id = ANY($1)`, r.datatypeTable) //nolint:gosec

	err := r.qh.FetchAll(ctx, query, func(rows pgx.Rows) error {
		var (
			id  int32
			uri string
		)

		if err := rows.Scan(&id, &uri); err != nil {
			return err
		}

		result[id] = uri
		r.dtByID.Put(id, uri)
		r.dtByURI.Put(uri, id)

		return nil
	}, missing)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "resolve datatype uri batch", err)
	}

	return result, nil
}

// Resolve is a read-only lookup: it returns the term's UUID without
// interning it, consulting the cache first and falling back to a
// point SELECT.
func (r *Registry) Resolve(ctx context.Context, t Term) (uuid.UUID, bool, error) {
	id := t.UUID()
	if cached, ok := r.byTerm.Get(t); ok {
		return cached, true, nil
	}

	query := fmt.Sprintf("SELECT 1 FROM %s WHERE term_uuid = $1", r.tableName) //nolint:gosec

	var exists int

	err := r.qh.FetchOne(ctx, query, func(row pgx.Row) error {
		return row.Scan(&exists)
	}, id)
	if err != nil {
		if isNoRows(err) {
			return uuid.Nil, false, nil
		}

		return uuid.Nil, false, apperr.Wrap(apperr.KindStorageError, "resolve term", err)
	}

	r.byTerm.Put(t, id)
	r.byUUID.Put(id, t)

	return id, true, nil
}

// Intern returns the UUID for t, inserting a row if absent. It is
// idempotent and safe under concurrency: two callers interning the
// same term race harmlessly on ON CONFLICT DO NOTHING.
func (r *Registry) Intern(ctx context.Context, t Term) (uuid.UUID, error) {
	ids, err := r.InternBatch(ctx, []Term{t})
	if err != nil {
		return uuid.Nil, err
	}

	return ids[0], nil
}

// InternBatch atomically interns many terms in one INSERT statement
// (plus one query per datatype URI not yet cached),
// deduplicating within the batch, and returns their UUIDs in input
// order (spec.md §4.1).
func (r *Registry) InternBatch(ctx context.Context, terms []Term) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(terms))

	type row struct {
		id   uuid.UUID
		text string
		kind string
		lang *string
		dt   *int32
	}

	seen := make(map[uuid.UUID]bool, len(terms))

	var toInsert []row

	for i, t := range terms {
		if err := t.Validate(); err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidTerm, "intern batch", err)
		}

		id := t.UUID()
		ids[i] = id

		if _, cached := r.byTerm.Get(t); cached {
			continue
		}

		if seen[id] {
			continue
		}

		seen[id] = true

		var lang *string
		if t.Lang != "" {
			lang = &t.Lang
		}

		var dt *int32

		if t.DatatypeURI != "" {
			dtID, err := r.resolveDatatypeID(ctx, t.DatatypeURI)
			if err != nil {
				return nil, err
			}

			dt = &dtID
		}

		toInsert = append(toInsert, row{id: id, text: t.Text, kind: string(t.Kind), lang: lang, dt: dt})
	}

	if len(toInsert) > 0 {
		ids32, texts, kinds, langs, dtypes := make([]uuid.UUID, len(toInsert)),
			make([]string, len(toInsert)), make([]string, len(toInsert)),
			make([]*string, len(toInsert)), make([]*int32, len(toInsert))

		for i, rr := range toInsert {
			ids32[i], texts[i], kinds[i], langs[i], dtypes[i] = rr.id, rr.text, rr.kind, rr.lang, rr.dt
		}

		query := fmt.Sprintf(`
			INSERT INTO %s (term_uuid, term_text, term_type, lang, datatype_id)
			SELECT * FROM UNNEST($1::uuid[], $2::text[], $3::text[], $4::text[], $5::int[])
			ON CONFLICT (term_uuid) DO NOTHING`, r.tableName) //nolint:gosec

		if _, err := r.pool.Exec(ctx, query, ids32, texts, kinds, langs, dtypes); err != nil {
			return nil, apperr.Wrap(apperr.KindStorageError, "intern batch insert", err)
		}
	}

	for i, t := range terms {
		r.byTerm.Put(t, ids[i])
		r.byUUID.Put(ids[i], t)
	}

	return ids, nil
}

// Lookup returns the term for id, if known.
func (r *Registry) Lookup(ctx context.Context, id uuid.UUID) (Term, bool, error) {
	result, err := r.LookupBatch(ctx, []uuid.UUID{id})
	if err != nil {
		return Term{}, false, err
	}

	t, ok := result[id]

	return t, ok, nil
}

// LookupBatch resolves many UUIDs at once, silently omitting unknown
// ones from the result (spec.md §4.1).
func (r *Registry) LookupBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Term, error) {
	result := make(map[uuid.UUID]Term, len(ids))

	var missing []uuid.UUID

	for _, id := range ids {
		if t, ok := r.byUUID.Get(id); ok {
			result[id] = t
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
		SELECT term_uuid, term_text, term_type, lang, datatype_id
		FROM %s WHERE term_uuid = ANY($1)`, r.tableName) //nolint:gosec

	type partial struct {
		id   uuid.UUID
		term Term
		dtID *int32
	}

	var rowsOut []partial

	err := r.qh.FetchAll(ctx, query, func(rows pgx.Rows) error {
		var (
			id         uuid.UUID
			text, kind string
			lang       *string
			dtID       *int32
		)

		if err := rows.Scan(&id, &text, &kind, &lang, &dtID); err != nil {
			return err
		}

		t := Term{Kind: Kind(kind[0]), Text: text}
		if lang != nil {
			t.Lang = *lang
		}

		rowsOut = append(rowsOut, partial{id: id, term: t, dtID: dtID})

		return nil
	}, missing)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "lookup batch", err)
	}

	var dtIDs []int32

	for _, p := range rowsOut {
		if p.dtID != nil {
			dtIDs = append(dtIDs, *p.dtID)
		}
	}

	dtURIs, err := r.resolveDatatypeURIBatch(ctx, dtIDs)
	if err != nil {
		return nil, err
	}

	for _, p := range rowsOut {
		t := p.term
		if p.dtID != nil {
			t.DatatypeURI = dtURIs[*p.dtID]
		}

		result[p.id] = t
		r.byUUID.Put(p.id, t)
		r.byTerm.Put(t, p.id)
	}

	return result, nil
}

func isNoRows(err error) bool {
	return err != nil && errorIsNoRows(err)
}

func errorIsNoRows(err error) bool {
	for err != nil {
		if err == pgx.ErrNoRows { //nolint:errorlint
			return true
		}

		u, ok := err.(interface{ Unwrap() error }) //nolint:errorlint
		if !ok {
			return false
		}

		err = u.Unwrap()
	}

	return false
}
