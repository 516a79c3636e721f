package sqltranslate

import (
	"fmt"
	"strings"

	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/apperr"
)

// unwrapModifiers peels Distinct/Reduced/OrderBy/Slice wrappers off
// the top of node, in whatever order the parser nested them, and
// returns the inner node plus the accumulated modifier state.
func unwrapModifiers(node algebra.Node) (base algebra.Node, distinct bool, order []algebra.SortCondition, limit, offset int64) {
	limit, offset = -1, 0
	cur := node

	for {
		switch n := cur.(type) {
		case *algebra.Slice:
			limit, offset = n.Limit, n.Offset
			cur = n.Input
		case *algebra.OrderBy:
			order = n.Conditions
			cur = n.Input
		case *algebra.Distinct:
			distinct = true
			cur = n.Input
		case *algebra.Reduced:
			distinct = true
			cur = n.Input
		default:
			return cur, distinct, order, limit, offset
		}
	}
}

// finishSelect renders rel's tracked vars as a final SELECT statement,
// decoding each variable to its four-facet (text, datatype, lang,
// isURI) shape and recording the column names in the returned Plan.
func finishSelect(ctx *Context, rel *Relation, vars []algebra.Var, distinct bool, orderSQL []string, limit, offset int64) (*Result, error) {
	var selectList []string

	var planVars []VarColumns

	for _, v := range vars {
		base := sanitizeColName(v)
		ref, ok := varRef(ctx, rel, v)

		if !ok {
			selectList = append(selectList,
				fmt.Sprintf("NULL::text AS %s_text", base), fmt.Sprintf("NULL::text AS %s_dt", base),
				fmt.Sprintf("NULL::text AS %s_lang", base), fmt.Sprintf("false AS %s_isuri", base))
		} else {
			selectList = append(selectList,
				fmt.Sprintf("%s AS %s_text", nullableOr(ref.Text, "NULL::text"), base),
				fmt.Sprintf("%s AS %s_dt", nullableOr(ref.Datatype, "NULL::text"), base),
				fmt.Sprintf("%s AS %s_lang", nullableOr(ref.Lang, "NULL::text"), base),
				fmt.Sprintf("%s AS %s_isuri", nullableOr(ref.IsURI, "false"), base))
		}

		planVars = append(planVars, VarColumns{Var: v, Text: base + "_text", Datatype: base + "_dt", Lang: base + "_lang", IsURI: base + "_isuri"})
	}

	if len(selectList) == 0 {
		selectList = append(selectList, "1 AS dummy")
	}

	sql := ctx.withCTEs(assembleSelect(rel, selectList, distinct, orderSQL, limit, offset))

	return &Result{SQL: sql, Args: ctx.args, Plan: Plan{Shape: ShapeBindings, Vars: planVars}}, nil
}

func assembleSelect(rel *Relation, columns []string, distinct bool, orderSQL []string, limit, offset int64) string {
	kw := ""
	if distinct {
		kw = "DISTINCT "
	}

	where := ""
	if len(rel.Where) > 0 {
		where = " WHERE " + strings.Join(rel.Where, " AND ")
	}

	sql := fmt.Sprintf("SELECT %s%s FROM %s%s", kw, strings.Join(columns, ", "), rel.From, where)

	if len(orderSQL) > 0 {
		sql += " ORDER BY " + strings.Join(orderSQL, ", ")
	}

	if limit >= 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}

	if offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", offset)
	}

	return sql
}

func translateGroup(ctx *Context, n *algebra.Group, graph graphSlot) (*Relation, []algebra.Var, error) {
	input, _, err := translateToRelation(ctx, n.Input, graph)
	if err != nil {
		return nil, nil, err
	}

	groupByKeys := make([]string, len(n.By))
	keyVar := make([]algebra.Var, len(n.By))

	for i, be := range n.By {
		if ve, ok := be.(*algebra.VariableExpr); ok {
			if col, ok := input.Columns[ve.Var]; ok {
				groupByKeys[i] = col
				keyVar[i] = ve.Var

				continue
			}

			if vv, ok := input.Values[ve.Var]; ok {
				groupByKeys[i] = vv.Text
				keyVar[i] = ve.Var

				continue
			}
		}

		ref, err := translateScalarExpr(ctx, input, be)
		if err != nil {
			return nil, nil, err
		}

		groupByKeys[i] = ref.Text
	}

	alias := ctx.nextAlias("grp")

	var selectList []string

	out := newRelation()

	for i, key := range groupByKeys {
		col := fmt.Sprintf("gkey_%d", i)
		selectList = append(selectList, fmt.Sprintf("%s AS %s", key, col))

		if v := keyVar[i]; v != "" {
			if _, wasUUID := input.Columns[v]; wasUUID {
				out.Columns[v] = alias + "." + col
			} else {
				out.Values[v] = valueExpr{Text: alias + "." + col}
			}
		}
	}

	for i, agg := range n.Aggregates {
		aggSQL, datatype, err := translateAggregate(ctx, input, agg)
		if err != nil {
			return nil, nil, err
		}

		col := fmt.Sprintf("agg_%d", i)
		selectList = append(selectList, fmt.Sprintf("%s AS %s", aggSQL, col))

		ve := valueExpr{Text: alias + "." + col}
		if datatype != "" {
			ve.Datatype = ctx.bind(datatype)
		}

		out.Values[agg.As] = ve
	}

	if len(selectList) == 0 {
		selectList = append(selectList, "1 AS dummy")
	}

	groupBySQL := ""
	if len(groupByKeys) > 0 {
		groupBySQL = " GROUP BY " + strings.Join(groupByKeys, ", ")
	}

	where := ""
	if len(input.Where) > 0 {
		where = " WHERE " + strings.Join(input.Where, " AND ")
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s%s", strings.Join(selectList, ", "), input.From, where, groupBySQL)
	out.From = fmt.Sprintf("(%s) %s", sql, alias)

	return out, out.vars(), nil
}

// translateAggregate returns the aggregate's SQL rendering and the
// datatype URI its result should be decoded with ("", as returned for
// MIN/MAX/SAMPLE/GROUP_CONCAT, means translateGroup attaches no
// datatype, so the result decodes as xsd:string; the input's datatype
// is not carried through).
func translateAggregate(ctx *Context, input *Relation, agg algebra.Aggregate) (string, string, error) {
	distinctKw := ""
	if agg.Distinct {
		distinctKw = "DISTINCT "
	}

	if agg.Func == algebra.AggCount && agg.Expr == nil {
		return "COUNT(*)", xsdInteger, nil
	}

	ref, err := translateScalarExpr(ctx, input, agg.Expr)
	if err != nil {
		return "", "", err
	}

	switch agg.Func {
	case algebra.AggCount:
		return fmt.Sprintf("COUNT(%s%s)", distinctKw, ref.Text), xsdInteger, nil
	case algebra.AggSum:
		return fmt.Sprintf("COALESCE(SUM(%s%s), 0)", distinctKw, safeNumeric(ref.Text)), xsdDecimal, nil
	case algebra.AggAvg:
		return fmt.Sprintf("AVG(%s%s)", distinctKw, safeNumeric(ref.Text)), xsdDecimal, nil
	case algebra.AggMin:
		return fmt.Sprintf("MIN(%s%s)", distinctKw, ref.Text), "", nil
	case algebra.AggMax:
		return fmt.Sprintf("MAX(%s%s)", distinctKw, ref.Text), "", nil
	case algebra.AggSample:
		return fmt.Sprintf("MIN(%s%s)", distinctKw, ref.Text), "", nil
	case algebra.AggGroupConcat:
		return fmt.Sprintf("string_agg(%s%s, ' ')", distinctKw, ref.Text), "", nil
	default:
		return "", "", apperr.New(apperr.KindUnsupportedFeature, "translate", "unsupported aggregate function")
	}
}

func translateAsk(ctx *Context, n *algebra.Ask) (*Result, error) {
	base, _, _, _, _ := unwrapModifiers(n.Where)

	rel, _, err := translateToRelation(ctx, base, defaultGraphSlot())
	if err != nil {
		return nil, err
	}

	sql := ctx.withCTEs(fmt.Sprintf("SELECT EXISTS (%s) AS result", rel.selectSQL([]string{"1"})))

	return &Result{SQL: sql, Args: ctx.args, Plan: Plan{Shape: ShapeBoolean}}, nil
}

func translateConstruct(ctx *Context, n *algebra.Construct) (*Result, error) {
	base, distinct, order, limit, offset := unwrapModifiers(n.Where)

	rel, vars, err := translateToRelation(ctx, base, defaultGraphSlot())
	if err != nil {
		return nil, err
	}

	templateVars := map[algebra.Var]bool{}

	for _, tr := range n.Template {
		for _, t := range []algebra.Term{tr.Subject, tr.Predicate, tr.Object} {
			if t.IsVariable() {
				templateVars[t.Variable] = true
			}
		}
	}

	var projected []algebra.Var

	for v := range templateVars {
		projected = append(projected, v)
	}

	_ = vars

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

	result, err := finishSelect(ctx, rel, projected, distinct, orderSQL, limit, offset)
	if err != nil {
		return nil, err
	}

	result.Plan.Shape = ShapeTriples
	result.Plan.Template = n.Template

	return result, nil
}

func translateDescribe(ctx *Context, n *algebra.Describe) (*Result, error) {
	if n.Where == nil {
		// DESCRIBE of bound IRIs only: no WHERE pattern to translate,
		// sqlexec resolves each resource's outgoing quads directly.
		var rows []algebra.Triple

		for _, r := range n.Resources {
			rows = append(rows, algebra.Triple{Subject: r, Predicate: algebra.VarTerm("p"), Object: algebra.VarTerm("o")})
		}

		return &Result{SQL: "", Args: nil, Plan: Plan{Shape: ShapeTriples, Template: rows}}, nil
	}

	base, distinct, order, limit, offset := unwrapModifiers(n.Where)

	rel, vars, err := translateToRelation(ctx, base, defaultGraphSlot())
	if err != nil {
		return nil, err
	}

	if len(n.Resources) > 0 {
		var filtered []algebra.Var

		for _, r := range n.Resources {
			if r.IsVariable() {
				filtered = append(filtered, r.Variable)
			}
		}

		vars = filtered
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

	result, err := finishSelect(ctx, rel, vars, distinct, orderSQL, limit, offset)
	if err != nil {
		return nil, err
	}

	// The result is SELECT-shaped: it binds the described resource
	// variables only. No quads about those resources are fetched,
	// here or in sqlexec.
	result.Plan.Shape = ShapeBindings

	return result, nil
}
