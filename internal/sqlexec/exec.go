package sqlexec

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/quadstore"
	"github.com/accented-ai/quadsparql/internal/sqltranslate"
	"github.com/accented-ai/quadsparql/internal/term"
	"github.com/accented-ai/quadsparql/pkg/database"
)

// Row is one solution's bindings, keyed by projected variable; a nil
// *term.Term means that variable is unbound in this solution.
type Row map[algebra.Var]*term.Term

// Result is what Run returns, shaped according to the Plan it was
// given.
type Result struct {
	Shape     sqltranslate.ResultShape
	Rows      []Row
	Triples   []quadstore.Quad
	Boolean   bool
	Truncated bool
}

// Executor runs translator output against one space's pool.
type Executor struct {
	pool    *database.Pool
	qh      *database.QueryHelper
	maxRows int
	timeout time.Duration
}

func NewExecutor(pool *database.Pool, maxRows int, timeout time.Duration) *Executor {
	return &Executor{pool: pool, qh: database.NewQueryHelper(pool), maxRows: maxRows, timeout: timeout}
}

// Run validates, executes, and decodes one translated statement.
// A Boolean-shaped result never reads more than one row; Bindings and
// Triples results are capped at e.maxRows+1 rows to detect truncation.
func (e *Executor) Run(ctx context.Context, result *sqltranslate.Result) (*Result, error) {
	if err := Validate(result.SQL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	switch result.Plan.Shape {
	case sqltranslate.ShapeBoolean:
		return e.runBoolean(ctx, result)
	case sqltranslate.ShapeTriples:
		return e.runBindingsCapped(ctx, result, true)
	default:
		return e.runBindingsCapped(ctx, result, false)
	}
}

func (e *Executor) runBoolean(ctx context.Context, result *sqltranslate.Result) (*Result, error) {
	var value bool

	err := e.qh.FetchOne(ctx, result.SQL, func(row pgx.Row) error {
		return row.Scan(&value)
	}, result.Args...)
	if err != nil {
		return nil, translateExecErr(ctx, err)
	}

	return &Result{Shape: sqltranslate.ShapeBoolean, Boolean: value}, nil
}

func (e *Executor) runBindingsCapped(ctx context.Context, result *sqltranslate.Result, triples bool) (*Result, error) {
	capped, truncateSQL := capRows(result.SQL, e.maxRows)

	var rows []Row

	err := e.qh.FetchAll(ctx, capped, func(pgxRows pgx.Rows) error {
		row, err := decodeRow(pgxRows, result.Plan.Vars)
		if err != nil {
			return err
		}

		rows = append(rows, row)

		return nil
	}, result.Args...)
	if err != nil {
		return nil, translateExecErr(ctx, err)
	}

	out := &Result{Shape: result.Plan.Shape}

	if truncateSQL && len(rows) > e.maxRows {
		rows = rows[:e.maxRows]
		out.Truncated = true
	}

	if triples {
		out.Triples = materializeTriples(result.Plan.Template, rows)
		return out, nil
	}

	out.Rows = rows

	return out, nil
}

// capRows appends LIMIT maxRows+1 to sql when maxRows > 0, so Run can
// detect and report truncation without guessing at the true row
// count; it returns false if no cap was applied (maxRows <= 0).
func capRows(sql string, maxRows int) (string, bool) {
	if maxRows <= 0 {
		return sql, false
	}

	return fmt.Sprintf("SELECT * FROM (%s) capped_result LIMIT %d", sql, maxRows+1), true
}

func decodeRow(rows pgx.Rows, vars []sqltranslate.VarColumns) (Row, error) {
	fields := rows.FieldDescriptions()

	dest := make([]any, len(fields))
	for i := range dest {
		var v any
		dest[i] = &v
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	colIndex := make(map[string]int, len(fields))
	for i, f := range fields {
		colIndex[string(f.Name)] = i
	}

	row := make(Row, len(vars))

	for _, vc := range vars {
		row[vc.Var] = decodeTerm(dest, colIndex, vc)
	}

	return row, nil
}

func decodeTerm(dest []any, colIndex map[string]int, vc sqltranslate.VarColumns) *term.Term {
	text := stringPtr(dest, colIndex, vc.Text)
	if text == nil {
		return nil
	}

	dt := stringPtr(dest, colIndex, vc.Datatype)
	lang := stringPtr(dest, colIndex, vc.Lang)
	isURI := boolVal(dest, colIndex, vc.IsURI)

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

func stringPtr(dest []any, colIndex map[string]int, col string) *string {
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

func boolVal(dest []any, colIndex map[string]int, col string) bool {
	idx, ok := colIndex[col]
	if !ok {
		return false
	}

	v := *(dest[idx].(*any))

	b, _ := v.(bool)

	return b
}

// materializeTriples substitutes each solution's bindings into the
// CONSTRUCT/DESCRIBE template, dropping any instantiation where a
// template variable came back unbound (SPARQL 1.1 §16.2.2's rule that
// a partially-bound template triple is simply omitted).
func materializeTriples(template []algebra.TriplePattern, rows []Row) []quadstore.Quad {
	var out []quadstore.Quad

	for _, row := range rows {
		for _, tr := range template {
			s, sok := instantiate(tr.Subject, row)
			p, pok := instantiate(tr.Predicate, row)
			o, ook := instantiate(tr.Object, row)

			if sok && pok && ook {
				out = append(out, quadstore.Quad{Subject: s, Predicate: p, Object: o})
			}
		}
	}

	return out
}

func instantiate(t algebra.Term, row Row) (term.Term, bool) {
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

func translateExecErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return apperr.Wrap(apperr.KindCancelled, "execute query", ctx.Err())
	}

	return apperr.Wrap(apperr.KindStorageError, "execute query", err)
}
