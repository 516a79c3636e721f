package sqltranslate

import (
	"fmt"
	"strings"

	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/apperr"
)

// scalarRef is what translateScalarExpr ultimately produces for any
// sub-expression: SQL text for each of the four decoded facets a term
// value can carry, matching valueExpr's shape so the result can be
// stored straight into a Relation.Values entry.
type scalarRef = valueExpr

// varRef resolves v against rel, returning SQL expressions for its
// text/datatype/lang/isURI facets regardless of whether rel tracks it
// as a UUID column or a computed value.
func varRef(ctx *Context, rel *Relation, v algebra.Var) (scalarRef, bool) {
	if uuidCol, ok := rel.Columns[v]; ok {
		return scalarRef{
			Text:     ctx.scalarTermField(uuidCol, "term_text"),
			Datatype: ctx.scalarTermField(uuidCol, "datatype_uri"),
			Lang:     ctx.scalarTermField(uuidCol, "lang"),
			IsURI:    fmt.Sprintf("(%s = 'U')", ctx.scalarTermField(uuidCol, "term_type")),
		}, true
	}

	if ve, ok := rel.Values[v]; ok {
		return ve, true
	}

	return scalarRef{}, false
}

// translateScalarExpr translates expr (as used by BIND/aggregate
// arguments/ORDER BY) into a value-shaped result.
func translateScalarExpr(ctx *Context, rel *Relation, expr algebra.Expr) (scalarRef, error) { //nolint:cyclop
	switch e := expr.(type) {
	case *algebra.VariableExpr:
		ref, ok := varRef(ctx, rel, e.Var)
		if !ok {
			return scalarRef{Text: "NULL::text"}, nil
		}

		return ref, nil
	case *algebra.ConstantExpr:
		return scalarRef{
			Text:     ctx.bind(e.Value.Text),
			Datatype: ctx.bind(e.Value.DatatypeURI),
			Lang:     ctx.bind(e.Value.Lang),
			IsURI:    ctx.bind(e.Value.Kind == 'U'),
		}, nil
	case *algebra.CallExpr:
		return translateCallExpr(ctx, rel, e)
	case *algebra.BinaryExpr:
		if isArithmeticOp(e.Op) {
			left, err := translateScalarExpr(ctx, rel, e.Left)
			if err != nil {
				return scalarRef{}, err
			}

			right, err := translateScalarExpr(ctx, rel, e.Right)
			if err != nil {
				return scalarRef{}, err
			}

			op := arithmeticSQLOp(e.Op)
			numExpr := fmt.Sprintf("(%s %s %s)", safeNumeric(left.Text), op, safeNumeric(right.Text))

			return scalarRef{Text: fmt.Sprintf("(%s)::text", numExpr), Datatype: ctx.bind(xsdDecimal)}, nil
		}

		boolSQL, err := translateBoolExpr(ctx, rel, expr)
		if err != nil {
			return scalarRef{}, err
		}

		return scalarRef{Text: fmt.Sprintf("(%s)::text", boolSQL), Datatype: ctx.bind(xsdBoolean)}, nil
	case *algebra.UnaryExpr:
		return translateUnaryScalar(ctx, rel, e)
	default:
		return scalarRef{}, apperr.New(apperr.KindUnsupportedFeature, "translate", fmt.Sprintf("unsupported expression %T", expr))
	}
}

const (
	xsdDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	xsdBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
	xsdInteger = "http://www.w3.org/2001/XMLSchema#integer"
)

// numericLexicalPattern matches the XSD numeric lexical forms this
// translator accepts; shared by isNumeric() and safeNumeric() so both
// agree on what "looks numeric" means.
const numericLexicalPattern = `^[+-]?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?$`

// safeNumeric wraps a term-text expression in a guarded numeric cast:
// per spec.md §4.6.6, "errors in an expression...must evaluate to
// 'error' for the row, not abort the query." A bare ::numeric cast of
// a non-numeric lexical form raises a hard Postgres error that aborts
// the whole statement; this yields SQL NULL instead, which FILTER and
// arithmetic already treat as absent/false.
func safeNumeric(text string) string {
	return fmt.Sprintf("(CASE WHEN (%s) ~ '%s' THEN (%s)::numeric ELSE NULL END)", text, numericLexicalPattern, text)
}

func translateUnaryScalar(ctx *Context, rel *Relation, e *algebra.UnaryExpr) (scalarRef, error) {
	operand, err := translateScalarExpr(ctx, rel, e.Operand)
	if err != nil {
		return scalarRef{}, err
	}

	switch e.Op {
	case algebra.UnaryMinus:
		return scalarRef{Text: fmt.Sprintf("((-%s))::text", safeNumeric(operand.Text)), Datatype: ctx.bind(xsdDecimal)}, nil
	case algebra.UnaryPlus:
		return operand, nil
	case algebra.UnaryNot:
		b, err := translateBoolExpr(ctx, rel, e.Operand)
		if err != nil {
			return scalarRef{}, err
		}

		return scalarRef{Text: fmt.Sprintf("(NOT (%s))::text", b), Datatype: ctx.bind(xsdBoolean)}, nil
	default:
		return scalarRef{}, apperr.New(apperr.KindUnsupportedFeature, "translate", "unsupported unary operator")
	}
}

func isArithmeticOp(op algebra.BinaryOp) bool {
	switch op {
	case algebra.BinaryAdd, algebra.BinarySubtract, algebra.BinaryMultiply, algebra.BinaryDivide:
		return true
	default:
		return false
	}
}

func arithmeticSQLOp(op algebra.BinaryOp) string {
	switch op {
	case algebra.BinaryAdd:
		return "+"
	case algebra.BinarySubtract:
		return "-"
	case algebra.BinaryMultiply:
		return "*"
	case algebra.BinaryDivide:
		return "/"
	default:
		return "+"
	}
}

// translateBoolExpr translates expr into a plain SQL boolean-valued
// expression, for use in WHERE/JOIN ON clauses (Filter, LeftJoin's
// join condition, HAVING).
func translateBoolExpr(ctx *Context, rel *Relation, expr algebra.Expr) (string, error) { //nolint:cyclop,gocyclo
	switch e := expr.(type) {
	case *algebra.BinaryExpr:
		return translateBinaryBool(ctx, rel, e)
	case *algebra.UnaryExpr:
		if e.Op == algebra.UnaryNot {
			inner, err := translateBoolExpr(ctx, rel, e.Operand)
			if err != nil {
				return "", err
			}

			return fmt.Sprintf("(NOT (%s))", inner), nil
		}

		scalar, err := translateScalarExpr(ctx, rel, expr)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(%s)::boolean", scalar.Text), nil
	case *algebra.CallExpr:
		return translateCallBool(ctx, rel, e)
	case *algebra.ExistsExpr:
		inner, _, err := translateToRelation(ctx, e.Pattern, defaultGraphSlot())
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("EXISTS (%s)", inner.selectSQL([]string{"1"})), nil
	case *algebra.NotExistsExpr:
		inner, _, err := translateToRelation(ctx, e.Pattern, defaultGraphSlot())
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("NOT EXISTS (%s)", inner.selectSQL([]string{"1"})), nil
	case *algebra.VariableExpr:
		ref, ok := varRef(ctx, rel, e.Var)
		if !ok {
			return "false", nil
		}

		return fmt.Sprintf("(%s IS NOT NULL)", ref.Text), nil
	case *algebra.ConstantExpr:
		return fmt.Sprintf("(%s)::boolean", ctx.bind(e.Value.Text)), nil
	default:
		return "", apperr.New(apperr.KindUnsupportedFeature, "translate", fmt.Sprintf("unsupported boolean expression %T", expr))
	}
}

func translateBinaryBool(ctx *Context, rel *Relation, e *algebra.BinaryExpr) (string, error) { //nolint:cyclop
	switch e.Op {
	case algebra.BinaryAnd:
		left, err := translateBoolExpr(ctx, rel, e.Left)
		if err != nil {
			return "", err
		}

		right, err := translateBoolExpr(ctx, rel, e.Right)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(%s AND %s)", left, right), nil
	case algebra.BinaryOr:
		left, err := translateBoolExpr(ctx, rel, e.Left)
		if err != nil {
			return "", err
		}

		right, err := translateBoolExpr(ctx, rel, e.Right)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(%s OR %s)", left, right), nil
	case algebra.BinaryEqual, algebra.BinaryNotEqual:
		return translateTermEquality(ctx, rel, e)
	case algebra.BinaryLess, algebra.BinaryLessEqual, algebra.BinaryGreater, algebra.BinaryGreaterEqual:
		left, err := translateScalarExpr(ctx, rel, e.Left)
		if err != nil {
			return "", err
		}

		right, err := translateScalarExpr(ctx, rel, e.Right)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(%s %s %s)", safeNumeric(left.Text), compareSQLOp(e.Op), safeNumeric(right.Text)), nil
	case algebra.BinaryIn, algebra.BinaryNotIn:
		return translateInExpr(ctx, rel, e)
	default:
		return "", apperr.New(apperr.KindUnsupportedFeature, "translate", "unsupported binary operator in boolean context")
	}
}

// translateTermEquality implements SPARQL value equality for "=" and
// "!=": same lexical text, datatype, and lang.
func translateTermEquality(ctx *Context, rel *Relation, e *algebra.BinaryExpr) (string, error) {
	left, err := translateScalarExpr(ctx, rel, e.Left)
	if err != nil {
		return "", err
	}

	right, err := translateScalarExpr(ctx, rel, e.Right)
	if err != nil {
		return "", err
	}

	eq := fmt.Sprintf("(%s IS NOT DISTINCT FROM %s AND %s IS NOT DISTINCT FROM %s AND %s IS NOT DISTINCT FROM %s)",
		left.Text, right.Text, nullableOr(left.Datatype, "NULL::text"), nullableOr(right.Datatype, "NULL::text"),
		nullableOr(left.Lang, "NULL::text"), nullableOr(right.Lang, "NULL::text"))

	if e.Op == algebra.BinaryNotEqual {
		return fmt.Sprintf("(NOT %s)", eq), nil
	}

	return eq, nil
}

func compareSQLOp(op algebra.BinaryOp) string {
	switch op {
	case algebra.BinaryLess:
		return "<"
	case algebra.BinaryLessEqual:
		return "<="
	case algebra.BinaryGreater:
		return ">"
	case algebra.BinaryGreaterEqual:
		return ">="
	default:
		return "="
	}
}

func translateInExpr(ctx *Context, rel *Relation, e *algebra.BinaryExpr) (string, error) {
	left, err := translateScalarExpr(ctx, rel, e.Left)
	if err != nil {
		return "", err
	}

	list, ok := e.Right.(*algebra.CallExpr)
	if !ok {
		return "", apperr.New(apperr.KindUnsupportedFeature, "translate", "IN requires an expression list")
	}

	var parts []string

	for _, arg := range list.Args {
		ref, err := translateScalarExpr(ctx, rel, arg)
		if err != nil {
			return "", err
		}

		parts = append(parts, fmt.Sprintf("%s IS NOT DISTINCT FROM %s", left.Text, ref.Text))
	}

	joined := strings.Join(parts, " OR ")
	if e.Op == algebra.BinaryNotIn {
		return fmt.Sprintf("(NOT (%s))", joined), nil
	}

	return fmt.Sprintf("(%s)", joined), nil
}

func translateCallBool(ctx *Context, rel *Relation, e *algebra.CallExpr) (string, error) { //nolint:cyclop
	switch e.Func {
	case algebra.FuncBound:
		v, ok := e.Args[0].(*algebra.VariableExpr)
		if !ok {
			return "", apperr.New(apperr.KindUnsupportedFeature, "translate", "BOUND requires a variable argument")
		}

		ref, ok := varRef(ctx, rel, v.Var)
		if !ok {
			return "false", nil
		}

		return fmt.Sprintf("(%s IS NOT NULL)", ref.Text), nil
	case algebra.FuncIsIRI, algebra.FuncIsURI:
		ref, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(COALESCE((%s), false))", nullableOr(ref.IsURI, "false")), nil
	case algebra.FuncIsLiteral:
		ref, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(NOT COALESCE((%s), false))", nullableOr(ref.IsURI, "false")), nil
	case algebra.FuncIsBlank:
		return "false", nil
	case algebra.FuncIsNumeric:
		ref, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("((%s) ~ '%s')", ref.Text, numericLexicalPattern), nil
	case algebra.FuncLangMatches:
		lang, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return "", err
		}

		pattern, err := translateScalarExpr(ctx, rel, e.Args[1])
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("((%s) ILIKE (%s) || '%%')", lang.Text, pattern.Text), nil
	case algebra.FuncRegex:
		text, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return "", err
		}

		pattern, err := translateScalarExpr(ctx, rel, e.Args[1])
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("((%s) ~ (%s))", text.Text, pattern.Text), nil
	case algebra.FuncSameTerm:
		eq := &algebra.BinaryExpr{Op: algebra.BinaryEqual, Left: e.Args[0], Right: e.Args[1]}
		return translateTermEquality(ctx, rel, eq)
	default:
		return "", apperr.New(apperr.KindUnsupportedFeature, "translate", fmt.Sprintf("unsupported builtin %v in boolean context", e.Func))
	}
}

func translateCallExpr(ctx *Context, rel *Relation, e *algebra.CallExpr) (scalarRef, error) { //nolint:cyclop,gocyclo
	switch e.Func {
	case algebra.FuncStr:
		ref, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		return scalarRef{Text: ref.Text}, nil
	case algebra.FuncUCase, algebra.FuncLCase:
		ref, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		fn := "upper"
		if e.Func == algebra.FuncLCase {
			fn = "lower"
		}

		return scalarRef{Text: fmt.Sprintf("%s(%s)", fn, ref.Text), Datatype: ref.Datatype, Lang: ref.Lang}, nil
	case algebra.FuncStrLen:
		ref, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		return scalarRef{Text: fmt.Sprintf("(length(%s))::text", ref.Text), Datatype: ctx.bind(xsdInteger)}, nil
	case algebra.FuncConcat:
		var parts []string

		for _, a := range e.Args {
			ref, err := translateScalarExpr(ctx, rel, a)
			if err != nil {
				return scalarRef{}, err
			}

			parts = append(parts, fmt.Sprintf("COALESCE(%s, '')", ref.Text))
		}

		return scalarRef{Text: fmt.Sprintf("(%s)", strings.Join(parts, " || "))}, nil
	case algebra.FuncSubStr:
		text, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		start, err := translateScalarExpr(ctx, rel, e.Args[1])
		if err != nil {
			return scalarRef{}, err
		}

		if len(e.Args) == 3 {
			length, err := translateScalarExpr(ctx, rel, e.Args[2])
			if err != nil {
				return scalarRef{}, err
			}

			return scalarRef{Text: fmt.Sprintf("substr(%s, (%s)::int, (%s)::int)", text.Text, start.Text, length.Text)}, nil
		}

		return scalarRef{Text: fmt.Sprintf("substr(%s, (%s)::int)", text.Text, start.Text)}, nil
	case algebra.FuncContains, algebra.FuncStrStarts, algebra.FuncStrEnds:
		return translateScalarBoolWrapped(ctx, rel, e)
	case algebra.FuncStrBefore, algebra.FuncStrAfter:
		text, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		sep, err := translateScalarExpr(ctx, rel, e.Args[1])
		if err != nil {
			return scalarRef{}, err
		}

		if e.Func == algebra.FuncStrBefore {
			return scalarRef{Text: fmt.Sprintf("split_part(%s, %s, 1)", text.Text, sep.Text)}, nil
		}

		return scalarRef{Text: fmt.Sprintf("substr(%s, strpos(%s, %s) + length(%s))", text.Text, text.Text, sep.Text, sep.Text)}, nil
	case algebra.FuncAbs, algebra.FuncCeil, algebra.FuncFloor, algebra.FuncRound:
		ref, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		return scalarRef{Text: fmt.Sprintf("(%s(%s))::text", mathFuncName(e.Func), safeNumeric(ref.Text)), Datatype: ctx.bind(xsdDecimal)}, nil
	case algebra.FuncMD5, algebra.FuncSHA1, algebra.FuncSHA256, algebra.FuncSHA512:
		ref, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		return scalarRef{Text: hashSQL(e.Func, ref.Text)}, nil
	case algebra.FuncCoalesce:
		var parts []string

		for _, a := range e.Args {
			ref, err := translateScalarExpr(ctx, rel, a)
			if err != nil {
				return scalarRef{}, err
			}

			parts = append(parts, ref.Text)
		}

		return scalarRef{Text: fmt.Sprintf("COALESCE(%s)", strings.Join(parts, ", "))}, nil
	case algebra.FuncIf:
		cond, err := translateBoolExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		thenRef, err := translateScalarExpr(ctx, rel, e.Args[1])
		if err != nil {
			return scalarRef{}, err
		}

		elseRef, err := translateScalarExpr(ctx, rel, e.Args[2])
		if err != nil {
			return scalarRef{}, err
		}

		return scalarRef{Text: fmt.Sprintf("(CASE WHEN %s THEN %s ELSE %s END)", cond, thenRef.Text, elseRef.Text)}, nil
	case algebra.FuncLang:
		ref, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		return scalarRef{Text: fmt.Sprintf("COALESCE(%s, '')", nullableOr(ref.Lang, "NULL::text"))}, nil
	case algebra.FuncDatatype:
		ref, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		return scalarRef{Text: nullableOr(ref.Datatype, ctx.bind(""))}, nil
	case algebra.FuncStrDt:
		text, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		dt, err := translateScalarExpr(ctx, rel, e.Args[1])
		if err != nil {
			return scalarRef{}, err
		}

		return scalarRef{Text: text.Text, Datatype: dt.Text}, nil
	case algebra.FuncStrLang:
		text, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		lang, err := translateScalarExpr(ctx, rel, e.Args[1])
		if err != nil {
			return scalarRef{}, err
		}

		return scalarRef{Text: text.Text, Lang: lang.Text}, nil
	case algebra.FuncIRI:
		ref, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		return scalarRef{Text: ref.Text, IsURI: "true"}, nil
	case algebra.FuncUUID:
		return scalarRef{Text: "('urn:uuid:' || gen_random_uuid()::text)", IsURI: "true"}, nil
	case algebra.FuncStrUUID:
		return scalarRef{Text: "gen_random_uuid()::text"}, nil
	case algebra.FuncNow:
		return scalarRef{Text: "now()::text", Datatype: ctx.bind("http://www.w3.org/2001/XMLSchema#dateTime")}, nil
	case algebra.FuncYear, algebra.FuncMonth, algebra.FuncDay, algebra.FuncHours, algebra.FuncMinutes, algebra.FuncSeconds:
		ref, err := translateScalarExpr(ctx, rel, e.Args[0])
		if err != nil {
			return scalarRef{}, err
		}

		field := dateFieldName(e.Func)

		return scalarRef{Text: fmt.Sprintf("(extract(%s from (%s)::timestamptz))::text", field, ref.Text), Datatype: ctx.bind(xsdInteger)}, nil
	default:
		return scalarRef{}, apperr.New(apperr.KindUnsupportedFeature, "translate", fmt.Sprintf("unsupported builtin %v", e.Func))
	}
}

func translateScalarBoolWrapped(ctx *Context, rel *Relation, e *algebra.CallExpr) (scalarRef, error) {
	text, err := translateScalarExpr(ctx, rel, e.Args[0])
	if err != nil {
		return scalarRef{}, err
	}

	other, err := translateScalarExpr(ctx, rel, e.Args[1])
	if err != nil {
		return scalarRef{}, err
	}

	var boolExpr string

	switch e.Func {
	case algebra.FuncContains:
		boolExpr = fmt.Sprintf("strpos(%s, %s) > 0", text.Text, other.Text)
	case algebra.FuncStrStarts:
		boolExpr = fmt.Sprintf("(%s) LIKE ((%s) || '%%')", text.Text, other.Text)
	case algebra.FuncStrEnds:
		boolExpr = fmt.Sprintf("(%s) LIKE ('%%' || (%s))", text.Text, other.Text)
	}

	return scalarRef{Text: fmt.Sprintf("(%s)::text", boolExpr), Datatype: ctx.bind(xsdBoolean)}, nil
}

func hashSQL(f algebra.CallFunc, textExpr string) string {
	switch f {
	case algebra.FuncMD5:
		return fmt.Sprintf("md5(%s)", textExpr)
	case algebra.FuncSHA1:
		return fmt.Sprintf("encode(digest(%s, 'sha1'), 'hex')", textExpr)
	case algebra.FuncSHA256:
		return fmt.Sprintf("encode(digest(%s, 'sha256'), 'hex')", textExpr)
	case algebra.FuncSHA512:
		return fmt.Sprintf("encode(digest(%s, 'sha512'), 'hex')", textExpr)
	default:
		return textExpr
	}
}

func mathFuncName(f algebra.CallFunc) string {
	switch f {
	case algebra.FuncAbs:
		return "abs"
	case algebra.FuncCeil:
		return "ceil"
	case algebra.FuncFloor:
		return "floor"
	case algebra.FuncRound:
		return "round"
	default:
		return "abs"
	}
}

func dateFieldName(f algebra.CallFunc) string {
	switch f {
	case algebra.FuncYear:
		return "year"
	case algebra.FuncMonth:
		return "month"
	case algebra.FuncDay:
		return "day"
	case algebra.FuncHours:
		return "hour"
	case algebra.FuncMinutes:
		return "minute"
	case algebra.FuncSeconds:
		return "second"
	default:
		return "epoch"
	}
}
