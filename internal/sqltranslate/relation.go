package sqltranslate

import (
	"fmt"
	"strings"

	"github.com/accented-ai/quadsparql/internal/algebra"
)

// valueExpr describes a literal/IRI value computed directly by SQL
// (a BIND result, an aggregate, or a VALUES row) rather than stored as
// a quad's term reference. Text is NULL-valued SQL for an unbound
// variable's row.
type valueExpr struct {
	Text     string // SQL expr yielding the term's lexical text
	Datatype string // SQL expr yielding the datatype URI, or "" if always a plain literal/IRI
	Lang     string // SQL expr yielding the language tag, or ""
	IsURI    string // SQL boolean expr: whether this value is a URI rather than a literal
	UUID     string // SQL expr yielding the row's deterministic term UUID, or "" if not statically known (e.g. a BIND/aggregate result)
}

// Relation is one intermediate SQL relation the translator builds
// while walking the algebra tree: a FROM-clause fragment plus the
// mapping from SPARQL variables to the SQL columns that carry their
// bindings in THIS relation's own scope.
type Relation struct {
	From  string
	Where []string // extra predicates ANDed into the relation's own WHERE, if From is a plain join chain

	Columns map[algebra.Var]string    // UUID-valued columns (quad_uuid-typed)
	Values  map[algebra.Var]valueExpr // value-valued columns (BIND/aggregate/VALUES results)
}

func newRelation() *Relation {
	return &Relation{Columns: map[algebra.Var]string{}, Values: map[algebra.Var]valueExpr{}}
}

// vars returns every variable this relation binds, UUID or value.
func (r *Relation) vars() []algebra.Var {
	seen := map[algebra.Var]bool{}

	var out []algebra.Var

	for v := range r.Columns {
		if !seen[v] {
			seen[v] = true

			out = append(out, v)
		}
	}

	for v := range r.Values {
		if !seen[v] {
			seen[v] = true

			out = append(out, v)
		}
	}

	return out
}

func sanitizeColName(v algebra.Var) string {
	return "v_" + string(v)
}

// materialize wraps rel into "(SELECT ...) alias", carrying every
// tracked variable forward as a plain column, so the result can be
// joined/unioned/filtered as an opaque relation regardless of how
// rel.From was built. extraWhere is ANDed into the inner SELECT.
func (c *Context) materialize(rel *Relation, extraWhere string) *Relation {
	alias := c.nextAlias("r")

	var selectList []string

	out := newRelation()

	for v, expr := range rel.Columns {
		col := sanitizeColName(v) + "_uuid"
		selectList = append(selectList, fmt.Sprintf("%s AS %s", expr, col))
		out.Columns[v] = alias + "." + col
	}

	for v, ve := range rel.Values {
		base := sanitizeColName(v)
		selectList = append(selectList, fmt.Sprintf("%s AS %s_text", nullableExpr(ve.Text), base))

		newVE := valueExpr{Text: alias + "." + base + "_text"}

		if ve.Datatype != "" {
			selectList = append(selectList, fmt.Sprintf("%s AS %s_dt", ve.Datatype, base))
			newVE.Datatype = alias + "." + base + "_dt"
		}

		if ve.Lang != "" {
			selectList = append(selectList, fmt.Sprintf("%s AS %s_lang", ve.Lang, base))
			newVE.Lang = alias + "." + base + "_lang"
		}

		if ve.IsURI != "" {
			selectList = append(selectList, fmt.Sprintf("%s AS %s_isuri", ve.IsURI, base))
			newVE.IsURI = alias + "." + base + "_isuri"
		}

		if ve.UUID != "" {
			selectList = append(selectList, fmt.Sprintf("%s AS %s_uuid", ve.UUID, base))
			newVE.UUID = alias + "." + base + "_uuid"
		}

		out.Values[v] = newVE
	}

	if len(selectList) == 0 {
		selectList = append(selectList, "1 AS dummy")
	}

	where := strings.Join(rel.Where, " AND ")
	if extraWhere != "" {
		if where != "" {
			where += " AND "
		}

		where += extraWhere
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selectList, ", "), rel.From)
	if where != "" {
		sql += " WHERE " + where
	}

	out.From = fmt.Sprintf("(%s) %s", sql, alias)

	return out
}

func nullableExpr(expr string) string {
	if expr == "" {
		return "NULL::text"
	}

	return expr
}

// selectSQL renders rel as a complete, un-materialized SELECT
// statement (used by Ask, EXISTS/NOT EXISTS, UNION branches and
// property-path edge sets; Project and Construct go through
// finishSelect instead).
func (rel *Relation) selectSQL(columns []string) string {
	where := strings.Join(rel.Where, " AND ")

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), rel.From)
	if where != "" {
		sql += " WHERE " + where
	}

	return sql
}
