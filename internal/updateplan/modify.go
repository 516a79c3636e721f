package updateplan

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/quadstore"
	"github.com/accented-ai/quadsparql/internal/sqltranslate"
	"github.com/accented-ai/quadsparql/internal/term"
)

// modify implements DELETE ... INSERT ... WHERE: the WHERE pattern's
// solutions are read first (outside the write transaction, since
// reads do not need the same atomicity as the mutation), then every
// delete-clause triple is instantiated and removed before every
// insert-clause triple is instantiated and added, honoring SPARQL
// 1.1's delete-before-insert emission order.
func (p *Planner) modify(ctx context.Context, tx pgx.Tx, op algebra.UpdateOp) error {
	result, err := p.translateResult(op.Where)
	if err != nil {
		return err
	}

	rows, err := p.queryBindings(ctx, result)
	if err != nil {
		return err
	}

	defaultGraph := p.defaultGraphOverride(op.WithGraph)

	for _, qd := range op.DeleteClause {
		quads, err := instantiateRows(qd.Triples, rows, graphTermFor(qd.Graph, defaultGraph))
		if err != nil {
			return err
		}

		if err := p.deleteQuadsTx(ctx, tx, quads); err != nil {
			return err
		}
	}

	for _, qd := range op.InsertClause {
		quads, err := instantiateRows(qd.Triples, rows, graphTermFor(qd.Graph, defaultGraph))
		if err != nil {
			return err
		}

		if err := p.insertQuadsTx(ctx, tx, quads); err != nil {
			return err
		}
	}

	return nil
}

func (p *Planner) defaultGraphOverride(withGraph *string) string {
	if withGraph != nil {
		return *withGraph
	}

	return ""
}

func graphTermFor(ref algebra.GraphRef, withGraph string) string {
	if !ref.Default {
		return graphURIOf(ref)
	}

	if withGraph != "" {
		return withGraph
	}

	return graphURIOf(ref)
}

// queryBindings runs a translated SELECT-shaped result and decodes
// each row into a binding map, mirroring internal/sqlexec's row
// decoding but scoped to a single read used for update planning.
func (p *Planner) queryBindings(ctx context.Context, result *sqltranslate.Result) ([]map[algebra.Var]*term.Term, error) {
	if result.SQL == "" {
		return nil, nil
	}

	rows, err := p.pool.Query(ctx, result.SQL, result.Args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "query where pattern", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()

	var out []map[algebra.Var]*term.Term

	for rows.Next() {
		dest := make([]any, len(fields))
		for i := range dest {
			var v any
			dest[i] = &v
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, apperr.Wrap(apperr.KindStorageError, "scan where pattern row", err)
		}

		colIndex := make(map[string]int, len(fields))
		for i, f := range fields {
			colIndex[string(f.Name)] = i
		}

		binding := make(map[algebra.Var]*term.Term, len(result.Plan.Vars))
		for _, vc := range result.Plan.Vars {
			binding[vc.Var] = decodeBindingTerm(dest, colIndex, vc)
		}

		out = append(out, binding)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "query where pattern", err)
	}

	return out, nil
}

func decodeBindingTerm(dest []any, colIndex map[string]int, vc sqltranslate.VarColumns) *term.Term {
	text := bindingString(dest, colIndex, vc.Text)
	if text == nil {
		return nil
	}

	dt := bindingString(dest, colIndex, vc.Datatype)
	lang := bindingString(dest, colIndex, vc.Lang)
	isURI := bindingBool(dest, colIndex, vc.IsURI)

	t := term.Term{Text: *text}

	switch {
	case isURI:
		t.Kind = term.KindURI
	case lang != nil && *lang != "":
		t.Kind = term.KindLiteral
		t.Lang = *lang
		t.DatatypeURI = term.RDFLangString
	default:
		t.Kind = term.KindLiteral

		if dt != nil {
			t.DatatypeURI = *dt
		} else {
			t.DatatypeURI = term.XSDString
		}
	}

	return &t
}

func bindingString(dest []any, colIndex map[string]int, col string) *string {
	idx, ok := colIndex[col]
	if !ok {
		return nil
	}

	v := *(dest[idx].(*any))
	if v == nil {
		return nil
	}

	s, ok := v.(string)
	if !ok {
		return nil
	}

	return &s
}

func bindingBool(dest []any, colIndex map[string]int, col string) bool {
	idx, ok := colIndex[col]
	if !ok {
		return false
	}

	v := *(dest[idx].(*any))
	b, _ := v.(bool)

	return b
}

// instantiateRows substitutes every solution row into templates,
// dropping any triple whose variable came back unbound, and attaches
// graphURI as each resulting quad's context.
func instantiateRows(templates []algebra.TriplePattern, rows []map[algebra.Var]*term.Term, graphURI string) ([]quadstore.Quad, error) {
	var quads []quadstore.Quad

	graphTerm := term.URI(graphURI)

	for _, row := range rows {
		for _, tr := range templates {
			s, sok := instantiateTerm(tr.Subject, row)
			pr, pok := instantiateTerm(tr.Predicate, row)
			o, ook := instantiateTerm(tr.Object, row)

			if sok && pok && ook {
				quads = append(quads, quadstore.Quad{Subject: s, Predicate: pr, Object: o, Context: graphTerm})
			}
		}
	}

	return quads, nil
}

func instantiateTerm(t algebra.Term, row map[algebra.Var]*term.Term) (term.Term, bool) {
	if !t.IsVariable() {
		tv := t.Bound
		return term.Term{Kind: term.Kind(tv.Kind), Text: tv.Text, Lang: tv.Lang, DatatypeURI: tv.DatatypeURI}, true
	}

	bound, ok := row[t.Variable]
	if !ok || bound == nil {
		return term.Term{}, false
	}

	return *bound, true
}
