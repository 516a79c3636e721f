package updateplan

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/graphcat"
	"github.com/accented-ai/quadsparql/internal/quadstore"
	"github.com/accented-ai/quadsparql/internal/term"
)

func (p *Planner) insertData(ctx context.Context, tx pgx.Tx, data []algebra.QuadData) error {
	quads, err := p.groundQuads(ctx, data)
	if err != nil {
		return err
	}

	return p.insertQuadsTx(ctx, tx, quads)
}

func (p *Planner) deleteData(ctx context.Context, tx pgx.Tx, data []algebra.QuadData) error {
	quads, err := p.groundQuads(ctx, data)
	if err != nil {
		return err
	}

	return p.deleteQuadsTx(ctx, tx, quads)
}

// deleteWhere implements DELETE WHERE { pattern }: the same triples
// serve as both pattern and template, so every quad matching the
// pattern (as a BGP) is removed.
func (p *Planner) deleteWhere(ctx context.Context, tx pgx.Tx, data []algebra.QuadData) error {
	for _, qd := range data {
		bgp := &algebra.BGP{Triples: qd.Triples}
		graphNode := algebra.Node(bgp)

		if !qd.Graph.Default {
			graphNode = &algebra.Graph{Context: algebra.Term{Bound: &algebra.TermValue{Kind: byte(term.KindURI), Text: graphURIOf(qd.Graph)}}, Input: bgp}
		}

		result, err := p.translateResult(graphNode)
		if err != nil {
			return err
		}

		rows, err := p.queryBindings(ctx, result)
		if err != nil {
			return err
		}

		quads, err := instantiateRows(qd.Triples, rows, graphURIOf(qd.Graph))
		if err != nil {
			return err
		}

		if err := p.deleteQuadsTx(ctx, tx, quads); err != nil {
			return err
		}
	}

	return nil
}

func graphURIOf(ref algebra.GraphRef) string {
	if ref.Default {
		return graphcat.DefaultGraphURI
	}

	return ref.IRI
}

// groundQuads converts INSERT/DELETE DATA's quad data (always fully
// bound, no variables by the SPARQL 1.1 grammar) into quadstore.Quad
// values with their graph's context term attached.
func (p *Planner) groundQuads(_ context.Context, data []algebra.QuadData) ([]quadstore.Quad, error) {
	var quads []quadstore.Quad

	for _, qd := range data {
		graphTerm := term.URI(graphURIOf(qd.Graph))

		for _, tr := range qd.Triples {
			s, err := boundTerm(tr.Subject)
			if err != nil {
				return nil, err
			}

			pr, err := boundTerm(tr.Predicate)
			if err != nil {
				return nil, err
			}

			o, err := boundTerm(tr.Object)
			if err != nil {
				return nil, err
			}

			quads = append(quads, quadstore.Quad{Subject: s, Predicate: pr, Object: o, Context: graphTerm})
		}
	}

	return quads, nil
}

func boundTerm(t algebra.Term) (term.Term, error) {
	if t.IsVariable() {
		return term.Term{}, apperr.New(apperr.KindParseError, "ground quad data", "DATA blocks must not contain variables")
	}

	tv := t.Bound

	return term.Term{Kind: term.Kind(tv.Kind), Text: tv.Text, Lang: tv.Lang, DatatypeURI: tv.DatatypeURI}, nil
}

// insertQuadsTx mirrors quadstore.Store.insertChunk's query shape but
// binds to the caller's transaction so the whole update commits or
// rolls back as one unit. Term interning goes through the shared
// registry (outside tx) since the term dictionary is append-only and
// safe to commit independently of the quad mutation it supports.
func (p *Planner) insertQuadsTx(ctx context.Context, tx pgx.Tx, quads []quadstore.Quad) error {
	if len(quads) == 0 {
		return nil
	}

	terms := make([]term.Term, 0, len(quads)*4)
	for _, q := range quads {
		terms = append(terms, q.Subject, q.Predicate, q.Object, q.Context)
	}

	uuids, err := p.registry.InternBatch(ctx, terms)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "insert quads: intern terms", err)
	}

	subj := make([]uuid.UUID, len(quads))
	pred := make([]uuid.UUID, len(quads))
	obj := make([]uuid.UUID, len(quads))
	ctxID := make([]uuid.UUID, len(quads))
	qid := make([]uuid.UUID, len(quads))

	for i := range quads {
		s, pr, o, c := uuids[i*4], uuids[i*4+1], uuids[i*4+2], uuids[i*4+3]
		subj[i], pred[i], obj[i], ctxID[i] = s, pr, o, c
		qid[i] = quadstore.QuadUUID(s, pr, o, c)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (quad_uuid, subject_uuid, predicate_uuid, object_uuid, context_uuid, created_time)
		SELECT *, now() FROM UNNEST($1::uuid[], $2::uuid[], $3::uuid[], $4::uuid[], $5::uuid[])
		ON CONFLICT (subject_uuid, predicate_uuid, object_uuid, context_uuid) DO NOTHING`, p.names.Quad) //nolint:gosec

	if _, err := tx.Exec(ctx, query, qid, subj, pred, obj, ctxID); err != nil {
		return apperr.Wrap(apperr.KindStorageError, "insert quads", err)
	}

	return nil
}

// deleteQuadsTx removes exactly the quads named, resolving each via
// the registry; a quad whose terms were never interned cannot exist
// in the store, so it is silently skipped rather than erroring.
func (p *Planner) deleteQuadsTx(ctx context.Context, tx pgx.Tx, quads []quadstore.Quad) error {
	var qids []uuid.UUID

	for _, q := range quads {
		ids, ok, err := p.resolveQuad(ctx, q)
		if err != nil {
			return err
		}

		if ok {
			qids = append(qids, quadstore.QuadUUID(ids[0], ids[1], ids[2], ids[3]))
		}
	}

	if len(qids) == 0 {
		return nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE quad_uuid = ANY($1)", p.names.Quad) //nolint:gosec

	if _, err := tx.Exec(ctx, query, qids); err != nil {
		return apperr.Wrap(apperr.KindStorageError, "delete quads", err)
	}

	return nil
}

// resolveQuad looks up each of a quad's four terms, returning ok=false
// if any term was never interned (the quad cannot exist).
func (p *Planner) resolveQuad(ctx context.Context, q quadstore.Quad) ([4]uuid.UUID, bool, error) {
	var ids [4]uuid.UUID

	for i, t := range []term.Term{q.Subject, q.Predicate, q.Object, q.Context} {
		id, found, err := p.registry.Resolve(ctx, t)
		if err != nil {
			return ids, false, apperr.Wrap(apperr.KindStorageError, "resolve term", err)
		}

		if !found {
			return ids, false, nil
		}

		ids[i] = id
	}

	return ids, true, nil
}
