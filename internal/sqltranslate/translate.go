package sqltranslate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/term"
)

// graphSlot is the active graph constraint threaded down through
// translation: nil means "default graph only" (the dataset's implicit
// graph, per spec.md §3's default-graph-context term), a non-nil UUID
// means a bound named graph, and a Var means the GRAPH clause
// variable ranges over every known context.
type graphSlot struct {
	bound    *uuid.UUID
	variable algebra.Var
	isVar    bool
}

func defaultGraphSlot() graphSlot { return graphSlot{} }

// Translate walks node and produces one SQL statement. Query forms
// (Construct/Ask/Describe, or a bare SELECT-shaped tree ending in
// Project/Distinct/Slice) are all handled from here.
func Translate(ctx *Context, node algebra.Node) (*Result, error) {
	switch n := node.(type) {
	case *algebra.Construct:
		return translateConstruct(ctx, n)
	case *algebra.Ask:
		return translateAsk(ctx, n)
	case *algebra.Describe:
		return translateDescribe(ctx, n)
	default:
		base, distinct, order, limit, offset := unwrapModifiers(node)

		rel, vars, err := translateToRelation(ctx, base, defaultGraphSlot())
		if err != nil {
			return nil, err
		}

		var orderSQL []string

		for _, cond := range order {
			ref, err := translateScalarExpr(ctx, rel, cond.Expr)
			if err != nil {
				return nil, err
			}

			clause := ref.Text
			if cond.Descending {
				clause += " DESC"
			}

			orderSQL = append(orderSQL, clause)
		}

		return finishSelect(ctx, rel, vars, distinct, orderSQL, limit, offset)
	}
}

// translateToRelation dispatches with a type switch on node's concrete
// type and returns both the
// relation and the ordered variable list a caller higher up the tree
// (Project in particular) should treat as "visible" — for most nodes
// this is simply every variable rel tracks.
func translateToRelation(ctx *Context, node algebra.Node, graph graphSlot) (*Relation, []algebra.Var, error) { //nolint:cyclop,gocyclo
	if err := ctx.charge(); err != nil {
		return nil, nil, err
	}

	switch n := node.(type) {
	case *algebra.BGP:
		rel, err := translateBGP(ctx, n, graph)
		return rel, rel.vars(), err
	case *algebra.Path:
		rel, err := translatePath(ctx, n, graph)
		return rel, rel.vars(), err
	case *algebra.Join:
		return translateJoin(ctx, n, graph)
	case *algebra.LeftJoin:
		return translateLeftJoin(ctx, n, graph)
	case *algebra.Union:
		return translateUnion(ctx, n, graph)
	case *algebra.Minus:
		return translateMinus(ctx, n, graph)
	case *algebra.Filter:
		return translateFilter(ctx, n, graph)
	case *algebra.Extend:
		return translateExtend(ctx, n, graph)
	case *algebra.Project:
		rel, _, err := translateToRelation(ctx, n.Input, graph)
		if err != nil {
			return nil, nil, err
		}

		return rel, n.Vars, nil
	case *algebra.Distinct:
		rel, vars, err := translateToRelation(ctx, n.Input, graph)
		return rel, vars, err
	case *algebra.Reduced:
		rel, vars, err := translateToRelation(ctx, n.Input, graph)
		return rel, vars, err
	case *algebra.OrderBy:
		return translateToRelation(ctx, n.Input, graph)
	case *algebra.Slice:
		return translateToRelation(ctx, n.Input, graph)
	case *algebra.Group:
		return translateGroup(ctx, n, graph)
	case *algebra.Values:
		rel, err := translateValues(ctx, n)
		return rel, rel.vars(), err
	case *algebra.Graph:
		return translateGraphClause(ctx, n, graph)
	default:
		return nil, nil, apperr.New(apperr.KindUnsupportedFeature, "translate", fmt.Sprintf("unsupported algebra node %T", node))
	}
}

// graphPredicate returns the SQL fragment constraining contextCol (a
// quad alias's context_uuid reference) to graph, or "" if graph
// ranges over a variable that must instead be projected as a column
// (handled by the BGP/Path translator itself).
func (c *Context) graphPredicate(contextCol string, graph graphSlot) string {
	switch {
	case graph.isVar:
		return ""
	case graph.bound != nil:
		return fmt.Sprintf("%s = %s", contextCol, c.bind(*graph.bound))
	default:
		defaultUUID := term.URI(DefaultGraphURI).UUID()
		return fmt.Sprintf("%s = %s", contextCol, c.bind(defaultUUID))
	}
}

// DefaultGraphURI names the synthetic context every quad outside an
// explicit GRAPH clause is stored under; internal/updateplan binds the
// same URI so inserts/deletes agree with query translation on which
// context_uuid means "the default graph".
const DefaultGraphURI = "urn:quadsparql:default-graph"

func translateBGP(ctx *Context, bgp *algebra.BGP, graph graphSlot) (*Relation, error) {
	if len(bgp.Triples) == 0 {
		rel := newRelation()
		rel.From = "(SELECT 1) empty_bgp"

		return rel, nil
	}

	rel := newRelation()

	var joins []string

	var wheres []string

	for i, tr := range bgp.Triples {
		alias := ctx.nextAlias("q")
		joinCond, err := bindTripleColumns(ctx, rel, alias, tr, graph, &wheres)

		if err != nil {
			return nil, err
		}

		if i == 0 {
			joins = append(joins, fmt.Sprintf("%s %s", ctx.names.Quad, alias))
		} else {
			joins = append(joins, fmt.Sprintf("JOIN %s %s ON %s", ctx.names.Quad, alias, joinCond))
		}

		if graph.isVar {
			if existing, ok := rel.Columns[graph.variable]; ok {
				wheres = append(wheres, fmt.Sprintf("%s.context_uuid = %s", alias, existing))
			} else {
				rel.Columns[graph.variable] = alias + ".context_uuid"
			}
		} else if gp := ctx.graphPredicate(alias+".context_uuid", graph); gp != "" {
			wheres = append(wheres, gp)
		}
	}

	rel.From = strings.Join(joins, " ")
	rel.Where = wheres

	return rel, nil
}

// bindTripleColumns binds one triple's three positions against quad
// alias, returning the ON-clause fragment joining it to variables
// already seen in rel (for the first triple in a BGP this is "true").
func bindTripleColumns(ctx *Context, rel *Relation, alias string, tr algebra.Triple, graph graphSlot, wheres *[]string) (string, error) { //nolint:unparam
	var onParts []string

	bindPos := func(t algebra.Term, col string) error {
		fullCol := alias + "." + col

		if t.IsVariable() {
			if existing, ok := rel.Columns[t.Variable]; ok {
				onParts = append(onParts, fmt.Sprintf("%s = %s", fullCol, existing))
			} else {
				rel.Columns[t.Variable] = fullCol
			}

			return nil
		}

		tv := toTermValue(*t.Bound)
		*wheres = append(*wheres, fmt.Sprintf("%s = %s", fullCol, ctx.bind(tv.UUID())))

		return nil
	}

	if err := bindPos(tr.Subject, "subject_uuid"); err != nil {
		return "", err
	}

	if err := bindPos(tr.Predicate, "predicate_uuid"); err != nil {
		return "", err
	}

	if err := bindPos(tr.Object, "object_uuid"); err != nil {
		return "", err
	}

	if len(onParts) == 0 {
		return "true", nil
	}

	return strings.Join(onParts, " AND "), nil
}

func toTermValue(tv algebra.TermValue) term.Term {
	return term.Term{Kind: term.Kind(tv.Kind), Text: tv.Text, Lang: tv.Lang, DatatypeURI: tv.DatatypeURI}
}

func translateJoin(ctx *Context, n *algebra.Join, graph graphSlot) (*Relation, []algebra.Var, error) {
	left, _, err := translateToRelation(ctx, n.Left, graph)
	if err != nil {
		return nil, nil, err
	}

	right, _, err := translateToRelation(ctx, n.Right, graph)
	if err != nil {
		return nil, nil, err
	}

	rel, err := innerJoinRelations(ctx, left, right)

	return rel, rel.vars(), err
}

// innerJoinRelations materializes both sides and joins them on every
// variable they share; unshared variables simply pass through.
func innerJoinRelations(ctx *Context, left, right *Relation) (*Relation, error) {
	l := ctx.materialize(left, "")
	r := ctx.materialize(right, "")

	lAlias, rAlias := extractAlias(l), extractAlias(r)

	out := newRelation()

	var onParts []string

	for _, v := range intersectVars(l, r) {
		if pred, ok := sharedVarPredicate(ctx, l, r, v); ok {
			onParts = append(onParts, pred)
		}
	}

	for v, c := range l.Columns {
		out.Columns[v] = c
	}

	for v, ve := range l.Values {
		out.Values[v] = ve
	}

	for v, c := range r.Columns {
		if _, exists := out.Columns[v]; !exists {
			out.Columns[v] = c
		}
	}

	for v, ve := range r.Values {
		if _, exists := out.Values[v]; !exists {
			out.Values[v] = ve
		}
	}

	onClause := "true"
	if len(onParts) > 0 {
		onClause = strings.Join(onParts, " AND ")
	}

	out.From = fmt.Sprintf("%s JOIN %s ON %s", l.From, r.From, onClause)
	_ = lAlias
	_ = rAlias

	return out, nil
}

// sharedVarPredicate returns the SQL equality predicate tying v's
// binding on l to its binding on r, regardless of whether either side
// tracks v as a UUID column or a computed value (spec.md §4.6.9: VALUES
// "[j]oins to the outer pattern on shared variables" — the same rule
// applies to any lexical-typed relation, e.g. a BIND result, joining
// against a UUID-typed one). Returns "", false only when neither side
// offers enough information to constrain the join at all.
func sharedVarPredicate(ctx *Context, l, r *Relation, v algebra.Var) (string, bool) {
	lc, lok := l.Columns[v]
	rc, rok := r.Columns[v]

	if lok && rok {
		return fmt.Sprintf("%s = %s", lc, rc), true
	}

	lv, lvok := l.Values[v]
	rv, rvok := r.Values[v]

	switch {
	case lok && rvok:
		return uuidValuePredicate(ctx, lc, rv), true
	case rok && lvok:
		return uuidValuePredicate(ctx, rc, lv), true
	case lvok && rvok:
		return lexicalEqualityPredicate(lv, rv), true
	default:
		return "", false
	}
}

// uuidValuePredicate joins a UUID-typed column against a lexical-typed
// value: ve's statically known UUID when available (VALUES rows, whose
// term is fixed at translation time), otherwise a term-table decode of
// uuidCol compared against ve's own lexical facets.
func uuidValuePredicate(ctx *Context, uuidCol string, ve valueExpr) string {
	if ve.UUID != "" {
		return fmt.Sprintf("%s = %s", uuidCol, ve.UUID)
	}

	decoded := valueExpr{
		Text:     ctx.scalarTermField(uuidCol, "term_text"),
		Datatype: ctx.scalarTermField(uuidCol, "datatype_uri"),
		Lang:     ctx.scalarTermField(uuidCol, "lang"),
	}

	return lexicalEqualityPredicate(decoded, ve)
}

// lexicalEqualityPredicate compares two lexical values on every facet
// that distinguishes RDF term identity (text, datatype, lang), treating
// an empty facet expression as "always NULL" so it still participates
// correctly in the IS NOT DISTINCT FROM comparison.
func lexicalEqualityPredicate(l, r valueExpr) string {
	pairs := [][2]string{
		{nullableExpr(l.Text), nullableExpr(r.Text)},
		{nullableOr(l.Datatype, "NULL::text"), nullableOr(r.Datatype, "NULL::text")},
		{nullableOr(l.Lang, "NULL::text"), nullableOr(r.Lang, "NULL::text")},
	}

	var parts []string
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s IS NOT DISTINCT FROM %s", p[0], p[1]))
	}

	return strings.Join(parts, " AND ")
}

func extractAlias(rel *Relation) string {
	idx := strings.LastIndexByte(rel.From, ' ')
	if idx < 0 {
		return rel.From
	}

	return rel.From[idx+1:]
}

func intersectVars(l, r *Relation) []algebra.Var {
	var out []algebra.Var

	for _, v := range l.vars() {
		for _, v2 := range r.vars() {
			if v == v2 {
				out = append(out, v)
				break
			}
		}
	}

	return out
}

func translateLeftJoin(ctx *Context, n *algebra.LeftJoin, graph graphSlot) (*Relation, []algebra.Var, error) {
	left, _, err := translateToRelation(ctx, n.Left, graph)
	if err != nil {
		return nil, nil, err
	}

	right, _, err := translateToRelation(ctx, n.Right, graph)
	if err != nil {
		return nil, nil, err
	}

	l := ctx.materialize(left, "")
	r := ctx.materialize(right, "")

	var onParts []string

	for _, v := range intersectVars(l, r) {
		if pred, ok := sharedVarPredicate(ctx, l, r, v); ok {
			onParts = append(onParts, pred)
		}
	}

	if n.Filter != nil {
		filterSQL, err := translateBoolExpr(ctx, r, n.Filter)
		if err != nil {
			return nil, nil, err
		}

		onParts = append(onParts, filterSQL)
	}

	onClause := "true"
	if len(onParts) > 0 {
		onClause = strings.Join(onParts, " AND ")
	}

	out := newRelation()
	for v, c := range l.Columns {
		out.Columns[v] = c
	}

	for v, ve := range l.Values {
		out.Values[v] = ve
	}

	for v, c := range r.Columns {
		if _, exists := out.Columns[v]; !exists {
			out.Columns[v] = c
		}
	}

	for v, ve := range r.Values {
		if _, exists := out.Values[v]; !exists {
			out.Values[v] = ve
		}
	}

	out.From = fmt.Sprintf("%s LEFT JOIN %s ON %s", l.From, r.From, onClause)

	return out, out.vars(), nil
}

func translateUnion(ctx *Context, n *algebra.Union, graph graphSlot) (*Relation, []algebra.Var, error) {
	left, _, err := translateToRelation(ctx, n.Left, graph)
	if err != nil {
		return nil, nil, err
	}

	right, _, err := translateToRelation(ctx, n.Right, graph)
	if err != nil {
		return nil, nil, err
	}

	allVars := map[algebra.Var]bool{}
	for _, v := range left.vars() {
		allVars[v] = true
	}

	for _, v := range right.vars() {
		allVars[v] = true
	}

	var vars []algebra.Var
	for v := range allVars {
		vars = append(vars, v)
	}

	leftSelect := unionBranchSelect(ctx, left, vars)
	rightSelect := unionBranchSelect(ctx, right, vars)

	alias := ctx.nextAlias("u")
	out := newRelation()

	for _, v := range vars {
		col := sanitizeColName(v)
		out.Values[v] = valueExpr{Text: alias + "." + col + "_text", Datatype: alias + "." + col + "_dt", Lang: alias + "." + col + "_lang", IsURI: alias + "." + col + "_isuri"}
	}

	out.From = fmt.Sprintf("(%s UNION ALL %s) %s", leftSelect, rightSelect, alias)

	return out, vars, nil
}

// unionBranchSelect renders one UNION branch, decoding every variable
// to its (text, datatype, lang, isURI) shape via a correlated
// scalar subquery so both branches agree on column shape regardless
// of whether the source relation tracked the variable as a UUID or a
// computed value.
func unionBranchSelect(ctx *Context, rel *Relation, vars []algebra.Var) string {
	var cols []string

	for _, v := range vars {
		col := sanitizeColName(v)

		if uuidCol, ok := rel.Columns[v]; ok {
			cols = append(cols,
				fmt.Sprintf("%s AS %s_text", ctx.scalarTermField(uuidCol, "term_text"), col),
				fmt.Sprintf("%s AS %s_dt", ctx.scalarTermField(uuidCol, "datatype_uri"), col),
				fmt.Sprintf("%s AS %s_lang", ctx.scalarTermField(uuidCol, "lang"), col),
				fmt.Sprintf("(%s = 'U') AS %s_isuri", ctx.scalarTermField(uuidCol, "term_type"), col),
			)

			continue
		}

		if ve, ok := rel.Values[v]; ok {
			cols = append(cols,
				fmt.Sprintf("%s AS %s_text", nullableExpr(ve.Text), col),
				fmt.Sprintf("%s AS %s_dt", nullableOr(ve.Datatype, "NULL::text"), col),
				fmt.Sprintf("%s AS %s_lang", nullableOr(ve.Lang, "NULL::text"), col),
				fmt.Sprintf("%s AS %s_isuri", nullableOr(ve.IsURI, "false"), col),
			)

			continue
		}

		cols = append(cols, fmt.Sprintf("NULL::text AS %s_text", col), fmt.Sprintf("NULL::text AS %s_dt", col),
			fmt.Sprintf("NULL::text AS %s_lang", col), fmt.Sprintf("false AS %s_isuri", col))
	}

	return rel.selectSQL(cols)
}

func nullableOr(expr, fallback string) string {
	if expr == "" {
		return fallback
	}

	return expr
}

// scalarTermField builds a correlated scalar subquery looking up one
// column of the space's term table for the term carried by uuidCol —
// the only place pattern translation needs to touch the term table at
// all, per this package's UUID-direct-parameter design (see the
// package doc comment). datatype_uri isn't a term column: the term
// table stores datatype_id, so that field joins through the space's
// datatype table to recover the URI.
func (c *Context) scalarTermField(uuidCol, field string) string {
	if field == "datatype_uri" {
		return fmt.Sprintf(
			"(SELECT d.datatype_uri FROM %s t JOIN %s d ON d.datatype_id = t.datatype_id WHERE t.term_uuid = %s)",
			c.names.Term, c.names.Datatype, uuidCol)
	}

	return fmt.Sprintf("(SELECT t.%s FROM %s t WHERE t.term_uuid = %s)", field, c.names.Term, uuidCol)
}

func translateMinus(ctx *Context, n *algebra.Minus, graph graphSlot) (*Relation, []algebra.Var, error) {
	left, _, err := translateToRelation(ctx, n.Left, graph)
	if err != nil {
		return nil, nil, err
	}

	right, _, err := translateToRelation(ctx, n.Right, graph)
	if err != nil {
		return nil, nil, err
	}

	l := ctx.materialize(left, "")
	r := ctx.materialize(right, "")

	shared := intersectVars(l, r)

	if len(shared) == 0 {
		// No shared variables: per SPARQL semantics MINUS removes
		// nothing, since compatibility is vacuously true only when
		// domains overlap; with no overlap every left row survives.
		return l, l.vars(), nil
	}

	var eqParts []string

	for _, v := range shared {
		if pred, ok := sharedVarPredicate(ctx, l, r, v); ok {
			eqParts = append(eqParts, pred)
		}
	}

	rAlias := extractAlias(r)

	notExists := fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s WHERE %s)", r.From, strings.Join(eqParts, " AND "))
	_ = rAlias

	out := newRelation()
	for v, c := range l.Columns {
		out.Columns[v] = c
	}

	for v, ve := range l.Values {
		out.Values[v] = ve
	}

	out.From = l.From
	out.Where = append(out.Where, notExists)

	return out, out.vars(), nil
}

func translateFilter(ctx *Context, n *algebra.Filter, graph graphSlot) (*Relation, []algebra.Var, error) {
	rel, _, err := translateToRelation(ctx, n.Input, graph)
	if err != nil {
		return nil, nil, err
	}

	cond, err := translateBoolExpr(ctx, rel, n.Expr)
	if err != nil {
		return nil, nil, err
	}

	out := ctx.materialize(rel, cond)

	return out, out.vars(), nil
}

func translateExtend(ctx *Context, n *algebra.Extend, graph graphSlot) (*Relation, []algebra.Var, error) {
	rel, _, err := translateToRelation(ctx, n.Input, graph)
	if err != nil {
		return nil, nil, err
	}

	ve, err := translateScalarExpr(ctx, rel, n.Expr)
	if err != nil {
		return nil, nil, err
	}

	rel.Values[n.Var] = ve

	return rel, rel.vars(), nil
}

func translateGraphClause(ctx *Context, n *algebra.Graph, graph graphSlot) (*Relation, []algebra.Var, error) {
	var inner graphSlot

	if n.Context.IsVariable() {
		inner = graphSlot{isVar: true, variable: n.Context.Variable}
	} else {
		u := toTermValue(*n.Context.Bound).UUID()
		inner = graphSlot{bound: &u}
	}

	rel, err := translateToRelationSingle(ctx, n.Input, inner)
	if err != nil {
		return nil, nil, err
	}

	return rel, rel.vars(), nil
}

func translateToRelationSingle(ctx *Context, node algebra.Node, graph graphSlot) (*Relation, error) {
	rel, _, err := translateToRelation(ctx, node, graph)
	return rel, err
}

func translateValues(ctx *Context, n *algebra.Values) (*Relation, error) {
	vars := valuesVars(n)

	var rows []string

	for _, row := range n.Rows {
		var cells []string

		for _, v := range vars {
			tv, bound := row[v]
			if !bound || tv == nil {
				cells = append(cells, "NULL::text, NULL::text, NULL::text, false, NULL::uuid")
				continue
			}

			cells = append(cells, fmt.Sprintf("%s, %s, %s, %s, %s",
				ctx.bind(tv.Text), ctx.bind(tv.DatatypeURI), ctx.bind(tv.Lang), ctx.bind(tv.Kind == 'U'), ctx.bind(toTermValue(*tv).UUID())))
		}

		rows = append(rows, fmt.Sprintf("(%s)", strings.Join(cells, ", ")))
	}

	if len(rows) == 0 {
		rel := newRelation()
		rel.From = "(SELECT 1 WHERE false) empty_values"

		return rel, nil
	}

	var colDefs []string

	for _, v := range vars {
		base := sanitizeColName(v)
		colDefs = append(colDefs, base+"_text", base+"_dt", base+"_lang", base+"_isuri", base+"_uuid")
	}

	alias := ctx.nextAlias("vals")
	rel := newRelation()
	rel.From = fmt.Sprintf("(VALUES %s) %s(%s)", strings.Join(rows, ", "), alias, strings.Join(colDefs, ", "))

	for _, v := range vars {
		base := sanitizeColName(v)
		rel.Values[v] = valueExpr{
			Text: alias + "." + base + "_text", Datatype: alias + "." + base + "_dt",
			Lang: alias + "." + base + "_lang", IsURI: alias + "." + base + "_isuri",
			UUID: alias + "." + base + "_uuid",
		}
	}

	return rel, nil
}

func valuesVars(n *algebra.Values) []algebra.Var {
	seen := map[algebra.Var]bool{}

	var vars []algebra.Var

	if n.Vars != "" {
		vars = append(vars, n.Vars)
		seen[n.Vars] = true
	}

	for _, row := range n.Rows {
		for v := range row {
			if !seen[v] {
				seen[v] = true

				vars = append(vars, v)
			}
		}
	}

	return vars
}
