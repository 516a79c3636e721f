package sqltranslate

import (
	"fmt"
	"strings"

	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/term"
)

// pathS and pathO are sentinel variables used internally to carry a
// property path's endpoint columns through pathEdgeRelation before
// translatePath binds them against the pattern's real subject/object
// terms.
const (
	pathS algebra.Var = "__path_subject"
	pathO algebra.Var = "__path_object"
)

// translatePath translates one property-path triple pattern into a
// relation exposing its subject/object terms as ordinary variable
// columns, the same shape translateBGP produces for plain triples.
func translatePath(ctx *Context, p *algebra.Path, graph graphSlot) (*Relation, error) {
	edges, err := pathEdgeRelation(ctx, p.Path, graph)
	if err != nil {
		return nil, err
	}

	mat := ctx.materialize(edges, "")
	sCol, oCol := mat.Columns[pathS], mat.Columns[pathO]

	out := newRelation()
	out.From = mat.From

	var wheres []string

	bind := func(t algebra.Term, col string) {
		if t.IsVariable() {
			if existing, ok := out.Columns[t.Variable]; ok {
				wheres = append(wheres, fmt.Sprintf("%s = %s", col, existing))
			} else {
				out.Columns[t.Variable] = col
			}

			return
		}

		tv := toTermValue(*t.Bound)
		wheres = append(wheres, fmt.Sprintf("%s = %s", col, ctx.bind(tv.UUID())))
	}

	bind(p.Subject, sCol)
	bind(p.Object, oCol)
	out.Where = wheres

	return out, nil
}

// pathEdgeRelation translates a PathExpr into a relation exposing
// exactly two columns, keyed by the pathS/pathO sentinels: every pair
// of term UUIDs the path expression connects.
func pathEdgeRelation(ctx *Context, pe algebra.PathExpr, graph graphSlot) (*Relation, error) { //nolint:cyclop
	switch e := pe.(type) {
	case algebra.PathPredicate:
		return singlePredicateEdges(ctx, e.IRI, graph)
	case algebra.PathInverse:
		inner, err := pathEdgeRelation(ctx, e.Path, graph)
		if err != nil {
			return nil, err
		}

		rel := newRelation()
		rel.From = inner.From
		rel.Where = inner.Where
		rel.Columns[pathS] = inner.Columns[pathO]
		rel.Columns[pathO] = inner.Columns[pathS]

		return rel, nil
	case algebra.PathSequence:
		return pathSequenceEdges(ctx, e, graph)
	case algebra.PathAlternative:
		return pathAlternativeEdges(ctx, e, graph)
	case algebra.PathZeroOrMore:
		return pathClosureEdges(ctx, e.Path, graph, true)
	case algebra.PathOneOrMore:
		return pathClosureEdges(ctx, e.Path, graph, false)
	case algebra.PathZeroOrOne:
		return pathZeroOrOneEdges(ctx, e.Path, graph)
	case algebra.PathNegatedPropertySet:
		return pathNegatedEdges(ctx, e, graph)
	default:
		return nil, apperr.New(apperr.KindUnsupportedFeature, "translate", "unsupported property path expression")
	}
}

func singlePredicateEdges(ctx *Context, iri string, graph graphSlot) (*Relation, error) {
	alias := ctx.nextAlias("pe")
	rel := newRelation()
	rel.From = fmt.Sprintf("%s %s", ctx.names.Quad, alias)
	rel.Where = append(rel.Where, fmt.Sprintf("%s.predicate_uuid = %s", alias, ctx.bind(term.URI(iri).UUID())))

	if gp := ctx.graphPredicate(alias+".context_uuid", graph); gp != "" {
		rel.Where = append(rel.Where, gp)
	}

	rel.Columns[pathS] = alias + ".subject_uuid"
	rel.Columns[pathO] = alias + ".object_uuid"

	return rel, nil
}

func pathSequenceEdges(ctx *Context, e algebra.PathSequence, graph graphSlot) (*Relation, error) {
	left, err := pathEdgeRelation(ctx, e.Left, graph)
	if err != nil {
		return nil, err
	}

	right, err := pathEdgeRelation(ctx, e.Right, graph)
	if err != nil {
		return nil, err
	}

	l := ctx.materialize(left, "")
	r := ctx.materialize(right, "")

	rel := newRelation()
	rel.From = fmt.Sprintf("%s JOIN %s ON %s = %s", l.From, r.From, l.Columns[pathO], r.Columns[pathS])
	rel.Columns[pathS] = l.Columns[pathS]
	rel.Columns[pathO] = r.Columns[pathO]

	return rel, nil
}

func pathAlternativeEdges(ctx *Context, e algebra.PathAlternative, graph graphSlot) (*Relation, error) {
	left, err := pathEdgeRelation(ctx, e.Left, graph)
	if err != nil {
		return nil, err
	}

	right, err := pathEdgeRelation(ctx, e.Right, graph)
	if err != nil {
		return nil, err
	}

	leftSel := left.selectSQL([]string{left.Columns[pathS] + " AS s_uuid", left.Columns[pathO] + " AS o_uuid"})
	rightSel := right.selectSQL([]string{right.Columns[pathS] + " AS s_uuid", right.Columns[pathO] + " AS o_uuid"})

	alias := ctx.nextAlias("palt")
	rel := newRelation()
	rel.From = fmt.Sprintf("(%s UNION ALL %s) %s(s_uuid, o_uuid)", leftSel, rightSel, alias)
	rel.Columns[pathS] = alias + ".s_uuid"
	rel.Columns[pathO] = alias + ".o_uuid"

	return rel, nil
}

// pathClosureEdges builds the transitive (includeZero=false, path+)
// or reflexive-transitive (includeZero=true, path*) closure of inner
// via a recursive CTE over its edge set. Per spec.md §4.6.8, the CTE
// carries a visited-node array through every row so the recursive step
// can refuse to revisit a node (no repeated-node paths survive) and
// caps recursion at ctx.maxPathDepth steps, dropping overflowing rows
// rather than erroring or recursing unbounded.
func pathClosureEdges(ctx *Context, inner algebra.PathExpr, graph graphSlot, includeZero bool) (*Relation, error) {
	base, err := pathEdgeRelation(ctx, inner, graph)
	if err != nil {
		return nil, err
	}

	cteName := ctx.nextCTEName()
	baseSel := base.selectSQL([]string{
		base.Columns[pathS] + " AS s_uuid",
		base.Columns[pathO] + " AS o_uuid",
		fmt.Sprintf("ARRAY[%s, %s]::uuid[] AS path", base.Columns[pathS], base.Columns[pathO]),
		"1 AS depth",
	})

	step, err := pathEdgeRelation(ctx, inner, graph)
	if err != nil {
		return nil, err
	}

	stepSub := fmt.Sprintf("(%s) step_edge", step.selectSQL([]string{step.Columns[pathS] + " AS s_uuid", step.Columns[pathO] + " AS o_uuid"}))
	recSel := fmt.Sprintf(
		"SELECT c.s_uuid, step_edge.o_uuid, c.path || step_edge.o_uuid, c.depth + 1 "+
			"FROM %s c JOIN %s ON c.o_uuid = step_edge.s_uuid "+
			"WHERE c.depth < %d AND NOT (step_edge.o_uuid = ANY(c.path))",
		cteName, stepSub, ctx.maxPathDepth,
	)

	ctx.addCTE(fmt.Sprintf("%s(s_uuid, o_uuid, path, depth) AS (%s UNION ALL %s)", cteName, baseSel, recSel))

	alias := ctx.nextAlias("pclose")
	rel := newRelation()

	if includeZero {
		rel.From = fmt.Sprintf("(SELECT s_uuid, o_uuid FROM %s UNION SELECT term_uuid, term_uuid FROM %s) %s",
			cteName, ctx.names.Term, alias)
	} else {
		rel.From = fmt.Sprintf("(SELECT s_uuid, o_uuid FROM %s) %s", cteName, alias)
	}

	rel.Columns[pathS] = alias + ".s_uuid"
	rel.Columns[pathO] = alias + ".o_uuid"

	return rel, nil
}

func pathZeroOrOneEdges(ctx *Context, inner algebra.PathExpr, graph graphSlot) (*Relation, error) {
	step, err := pathEdgeRelation(ctx, inner, graph)
	if err != nil {
		return nil, err
	}

	stepSel := step.selectSQL([]string{step.Columns[pathS] + " AS s_uuid", step.Columns[pathO] + " AS o_uuid"})
	identitySel := fmt.Sprintf("SELECT term_uuid AS s_uuid, term_uuid AS o_uuid FROM %s", ctx.names.Term)

	alias := ctx.nextAlias("pzo")
	rel := newRelation()
	rel.From = fmt.Sprintf("(%s UNION %s) %s(s_uuid, o_uuid)", stepSel, identitySel, alias)
	rel.Columns[pathS] = alias + ".s_uuid"
	rel.Columns[pathO] = alias + ".o_uuid"

	return rel, nil
}

func pathNegatedEdges(ctx *Context, e algebra.PathNegatedPropertySet, graph graphSlot) (*Relation, error) {
	var parts []string

	if len(e.IRIs) > 0 {
		alias := ctx.nextAlias("pnf")
		r := newRelation()
		r.From = fmt.Sprintf("%s %s", ctx.names.Quad, alias)
		r.Where = append(r.Where, fmt.Sprintf("%s.predicate_uuid NOT IN (%s)", alias, bindIRIList(ctx, e.IRIs)))

		if gp := ctx.graphPredicate(alias+".context_uuid", graph); gp != "" {
			r.Where = append(r.Where, gp)
		}

		parts = append(parts, r.selectSQL([]string{alias + ".subject_uuid AS s_uuid", alias + ".object_uuid AS o_uuid"}))
	}

	if len(e.InverseIRIs) > 0 {
		alias := ctx.nextAlias("pni")
		r := newRelation()
		r.From = fmt.Sprintf("%s %s", ctx.names.Quad, alias)
		r.Where = append(r.Where, fmt.Sprintf("%s.predicate_uuid NOT IN (%s)", alias, bindIRIList(ctx, e.InverseIRIs)))

		if gp := ctx.graphPredicate(alias+".context_uuid", graph); gp != "" {
			r.Where = append(r.Where, gp)
		}

		parts = append(parts, r.selectSQL([]string{alias + ".object_uuid AS s_uuid", alias + ".subject_uuid AS o_uuid"}))
	}

	if len(parts) == 0 {
		return nil, apperr.New(apperr.KindUnsupportedFeature, "translate", "empty negated property set")
	}

	alias := ctx.nextAlias("pneg")
	rel := newRelation()
	rel.From = fmt.Sprintf("(%s) %s(s_uuid, o_uuid)", strings.Join(parts, " UNION ALL "), alias)
	rel.Columns[pathS] = alias + ".s_uuid"
	rel.Columns[pathO] = alias + ".o_uuid"

	return rel, nil
}

func bindIRIList(ctx *Context, iris []string) string {
	parts := make([]string, len(iris))
	for i, iri := range iris {
		parts[i] = ctx.bind(term.URI(iri).UUID())
	}

	return strings.Join(parts, ", ")
}
