package sparqlparse

import (
	"strings"

	"github.com/accented-ai/quadsparql/internal/algebra"
)

// parseConstraint parses a FILTER's argument: either a parenthesized
// expression, a builtin call, or a parenthesized group used as a
// primary expression.
func (p *Parser) parseConstraint() (algebra.Expr, error) {
	return p.parseExpression()
}

// parseExpression implements SPARQL's ConditionalOrExpression down to
// UnaryExpression via precedence-climbing, mirroring trigo's
// expression grammar but operating on the token stream instead of raw
// text.
func (p *Parser) parseExpression() (algebra.Expr, error) {
	return p.parseOrExpr()
}

func (p *Parser) parseOrExpr() (algebra.Expr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}

	for p.cur().Type == TokenOperator && p.cur().Literal == "||" {
		p.advance()

		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}

		left = algebra.BinaryExpr{Op: algebra.BinaryOr, Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseAndExpr() (algebra.Expr, error) {
	left, err := p.parseRelationalExpr()
	if err != nil {
		return nil, err
	}

	for p.cur().Type == TokenOperator && p.cur().Literal == "&&" {
		p.advance()

		right, err := p.parseRelationalExpr()
		if err != nil {
			return nil, err
		}

		left = algebra.BinaryExpr{Op: algebra.BinaryAnd, Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseRelationalExpr() (algebra.Expr, error) { //nolint:cyclop
	left, err := p.parseAdditiveExpr()
	if err != nil {
		return nil, err
	}

	switch {
	case p.cur().Type == TokenOperator && p.cur().Literal == "=":
		p.advance()

		right, err := p.parseAdditiveExpr()
		if err != nil {
			return nil, err
		}

		return algebra.BinaryExpr{Op: algebra.BinaryEqual, Left: left, Right: right}, nil
	case p.cur().Type == TokenOperator && p.cur().Literal == "!=":
		p.advance()

		right, err := p.parseAdditiveExpr()
		if err != nil {
			return nil, err
		}

		return algebra.BinaryExpr{Op: algebra.BinaryNotEqual, Left: left, Right: right}, nil
	case p.cur().Type == TokenOperator && p.cur().Literal == "<=":
		p.advance()

		right, err := p.parseAdditiveExpr()
		if err != nil {
			return nil, err
		}

		return algebra.BinaryExpr{Op: algebra.BinaryLessEqual, Left: left, Right: right}, nil
	case p.cur().Type == TokenOperator && p.cur().Literal == ">=":
		p.advance()

		right, err := p.parseAdditiveExpr()
		if err != nil {
			return nil, err
		}

		return algebra.BinaryExpr{Op: algebra.BinaryGreaterEqual, Left: left, Right: right}, nil
	case p.cur().Type == TokenOperator && p.cur().Literal == "<":
		p.advance()

		right, err := p.parseAdditiveExpr()
		if err != nil {
			return nil, err
		}

		return algebra.BinaryExpr{Op: algebra.BinaryLess, Left: left, Right: right}, nil
	case p.cur().Type == TokenOperator && p.cur().Literal == ">":
		p.advance()

		right, err := p.parseAdditiveExpr()
		if err != nil {
			return nil, err
		}

		return algebra.BinaryExpr{Op: algebra.BinaryGreater, Left: left, Right: right}, nil
	case p.isKeyword("IN"):
		p.advance()

		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}

		return algebra.BinaryExpr{Op: algebra.BinaryIn, Left: left, Right: algebra.CallExpr{Func: algebra.FuncCoalesce, Args: args}}, nil
	case p.isKeyword("NOT") && p.peekAt(1).Type == TokenKeyword && p.peekAt(1).Literal == "IN":
		p.advance()
		p.advance()

		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}

		return algebra.BinaryExpr{Op: algebra.BinaryNotIn, Left: left, Right: algebra.CallExpr{Func: algebra.FuncCoalesce, Args: args}}, nil
	default:
		return left, nil
	}
}

func (p *Parser) parseExprList() ([]algebra.Expr, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	var args []algebra.Expr

	if p.cur().Type != TokenRParen {
		for {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}

			args = append(args, e)

			if p.cur().Type != TokenComma {
				break
			}

			p.advance()
		}
	}

	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}

	return args, nil
}

func (p *Parser) parseAdditiveExpr() (algebra.Expr, error) {
	left, err := p.parseMultiplicativeExpr()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.cur().Type == TokenPlus:
			p.advance()

			right, err := p.parseMultiplicativeExpr()
			if err != nil {
				return nil, err
			}

			left = algebra.BinaryExpr{Op: algebra.BinaryAdd, Left: left, Right: right}
		case p.cur().Type == TokenOperator && p.cur().Literal == "-":
			p.advance()

			right, err := p.parseMultiplicativeExpr()
			if err != nil {
				return nil, err
			}

			left = algebra.BinaryExpr{Op: algebra.BinarySubtract, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseMultiplicativeExpr() (algebra.Expr, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}

	for {
		switch p.cur().Type {
		case TokenStar:
			p.advance()

			right, err := p.parseUnaryExpr()
			if err != nil {
				return nil, err
			}

			left = algebra.BinaryExpr{Op: algebra.BinaryMultiply, Left: left, Right: right}
		case TokenSlash:
			p.advance()

			right, err := p.parseUnaryExpr()
			if err != nil {
				return nil, err
			}

			left = algebra.BinaryExpr{Op: algebra.BinaryDivide, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseUnaryExpr() (algebra.Expr, error) {
	switch {
	case p.isKeyword("NOT"):
		p.advance()

		operand, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}

		return algebra.UnaryExpr{Op: algebra.UnaryNot, Operand: operand}, nil
	case p.cur().Type == TokenOperator && p.cur().Literal == "-":
		p.advance()

		operand, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}

		return algebra.UnaryExpr{Op: algebra.UnaryMinus, Operand: operand}, nil
	case p.cur().Type == TokenPlus:
		p.advance()
		return p.parseUnaryExpr()
	default:
		return p.parsePrimaryExpr()
	}
}

func (p *Parser) parsePrimaryExpr() (algebra.Expr, error) { //nolint:cyclop
	switch {
	case p.cur().Type == TokenLParen:
		p.advance()

		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}

		return e, nil
	case p.cur().Type == TokenVariable:
		v := p.advance()
		return algebra.VariableExpr{Var: algebra.Var(v.Literal)}, nil
	case p.isKeyword("EXISTS"):
		p.advance()

		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}

		return algebra.ExistsExpr{Pattern: pattern}, nil
	case p.isKeyword("NOT") && p.peekAt(1).Type == TokenKeyword && p.peekAt(1).Literal == "EXISTS":
		p.advance()
		p.advance()

		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}

		return algebra.NotExistsExpr{Pattern: pattern}, nil
	case p.cur().Type == TokenBoolean:
		b := p.advance()

		return algebra.ConstantExpr{Value: algebra.TermValue{
			Kind: 'L', Text: strings.ToLower(b.Literal),
			DatatypeURI: "http://www.w3.org/2001/XMLSchema#boolean",
		}}, nil
	case p.cur().Type == TokenNumber:
		n := p.advance()
		return algebra.ConstantExpr{Value: algebra.TermValue{Kind: 'L', Text: n.Literal, DatatypeURI: numericDatatype(n.Literal)}}, nil
	case p.cur().Type == TokenString:
		tv, err := p.parseLiteralValue()
		if err != nil {
			return nil, err
		}

		return algebra.ConstantExpr{Value: tv}, nil
	case p.cur().Type == TokenIRIRef || p.cur().Type == TokenPrefixedName:
		iri, err := p.resolveIRI(p.advance())
		if err != nil {
			return nil, err
		}

		return algebra.ConstantExpr{Value: algebra.TermValue{Kind: 'U', Text: iri}}, nil
	case p.cur().Type == TokenKeyword:
		return p.parseBuiltInCall()
	default:
		return nil, p.errorf("expected a primary expression")
	}
}

// builtinNoArgs are function names that take no arguments.
var builtinNoArgs = map[string]algebra.CallFunc{ //nolint:gochecknoglobals
	"RAND": algebra.FuncRand,
	"NOW":  algebra.FuncNow,
	"UUID": algebra.FuncUUID, "STRUUID": algebra.FuncStrUUID,
}

// builtinUnary are function names taking exactly one expression
// argument.
var builtinUnary = map[string]algebra.CallFunc{ //nolint:gochecknoglobals
	"BOUND": algebra.FuncBound, "ISIRI": algebra.FuncIsIRI, "ISURI": algebra.FuncIsURI,
	"ISBLANK": algebra.FuncIsBlank, "ISLITERAL": algebra.FuncIsLiteral, "ISNUMERIC": algebra.FuncIsNumeric,
	"STR": algebra.FuncStr, "LANG": algebra.FuncLang, "DATATYPE": algebra.FuncDatatype,
	"IRI": algebra.FuncIRI, "URI": algebra.FuncIRI, "BNODE": algebra.FuncBNode,
	"STRLEN": algebra.FuncStrLen, "UCASE": algebra.FuncUCase, "LCASE": algebra.FuncLCase,
	"ENCODE_FOR_URI": algebra.FuncEncodeForURI, "ABS": algebra.FuncAbs, "ROUND": algebra.FuncRound,
	"CEIL": algebra.FuncCeil, "FLOOR": algebra.FuncFloor, "YEAR": algebra.FuncYear, "MONTH": algebra.FuncMonth,
	"DAY": algebra.FuncDay, "HOURS": algebra.FuncHours, "MINUTES": algebra.FuncMinutes,
	"SECONDS": algebra.FuncSeconds, "TIMEZONE": algebra.FuncTimezone, "TZ": algebra.FuncTz,
	"MD5": algebra.FuncMD5, "SHA1": algebra.FuncSHA1, "SHA256": algebra.FuncSHA256, "SHA512": algebra.FuncSHA512,
}

// builtinBinary are function names taking exactly two expression
// arguments.
var builtinBinary = map[string]algebra.CallFunc{ //nolint:gochecknoglobals
	"CONTAINS": algebra.FuncContains, "STRSTARTS": algebra.FuncStrStarts, "STRENDS": algebra.FuncStrEnds,
	"STRBEFORE": algebra.FuncStrBefore, "STRAFTER": algebra.FuncStrAfter, "STRLANG": algebra.FuncStrLang,
	"STRDT": algebra.FuncStrDt, "SAMETERM": algebra.FuncSameTerm, "LANGMATCHES": algebra.FuncLangMatches,
}

func (p *Parser) parseBuiltInCall() (algebra.Expr, error) { //nolint:cyclop
	name := p.cur().Literal

	switch name {
	case "IF":
		p.advance()

		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}

		return algebra.CallExpr{Func: algebra.FuncIf, Args: args}, nil
	case "COALESCE", "CONCAT":
		p.advance()

		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}

		f := algebra.FuncCoalesce
		if name == "CONCAT" {
			f = algebra.FuncConcat
		}

		return algebra.CallExpr{Func: f, Args: args}, nil
	case "REGEX":
		p.advance()
		return p.parseVariadicCall(algebra.FuncRegex, 2, 3)
	case "REPLACE":
		p.advance()
		return p.parseVariadicCall(algebra.FuncReplace, 3, 4)
	case "SUBSTR":
		p.advance()
		return p.parseVariadicCall(algebra.FuncSubStr, 2, 3)
	case "COUNT", "SUM", "AVG", "MIN", "MAX", "SAMPLE", "GROUP_CONCAT":
		return p.parseAggregateAsScalar(name)
	}

	if f, ok := builtinNoArgs[name]; ok {
		p.advance()

		if _, err := p.expect(TokenLParen); err != nil {
			return nil, err
		}

		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}

		return algebra.CallExpr{Func: f}, nil
	}

	if f, ok := builtinUnary[name]; ok {
		p.advance()

		if _, err := p.expect(TokenLParen); err != nil {
			return nil, err
		}

		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}

		return algebra.CallExpr{Func: f, Args: []algebra.Expr{arg}}, nil
	}

	if f, ok := builtinBinary[name]; ok {
		p.advance()
		return p.parseVariadicCall(f, 2, 2)
	}

	return nil, p.errorf("unknown function %q", name)
}

func (p *Parser) parseVariadicCall(f algebra.CallFunc, minArgs, maxArgs int) (algebra.Expr, error) {
	args, err := p.parseExprList()
	if err != nil {
		return nil, err
	}

	if len(args) < minArgs || len(args) > maxArgs {
		return nil, p.errorf("function takes between %d and %d arguments, got %d", minArgs, maxArgs, len(args))
	}

	return algebra.CallExpr{Func: f, Args: args}, nil
}

// parseAggregateAsScalar handles an aggregate function appearing in a
// SELECT projection or expression position (e.g. (COUNT(?x) AS ?c)),
// represented as an AggregateExpr rather than a Group node. A
// GROUP_CONCAT SEPARATOR string is parsed and discarded.
func (p *Parser) parseAggregateAsScalar(name string) (algebra.Expr, error) {
	p.advance()

	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	distinct := p.acceptKeyword("DISTINCT")

	var args []algebra.Expr

	if p.cur().Type == TokenStar {
		p.advance()
	} else {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}

		args = append(args, e)

		if p.cur().Type == TokenSemicolon && p.peekAt(1).Type == TokenKeyword && p.peekAt(1).Literal == "SEPARATOR" {
			p.advance() // ';'
			p.advance() // SEPARATOR

			if _, err := p.expect(TokenOperator); err != nil { // '='
				return nil, err
			}

			if _, err := p.expect(TokenString); err != nil {
				return nil, err
			}
		}
	}

	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}

	return aggregateScalarExpr(name, args, distinct), nil
}

// aggregateKindByName maps the SPARQL aggregate keyword to
// algebra.AggFunc for translator dispatch (see AggregateExpr below).
func aggregateKindByName(name string) algebra.AggFunc {
	switch name {
	case "SUM":
		return algebra.AggSum
	case "AVG":
		return algebra.AggAvg
	case "MIN":
		return algebra.AggMin
	case "MAX":
		return algebra.AggMax
	case "SAMPLE":
		return algebra.AggSample
	case "GROUP_CONCAT":
		return algebra.AggGroupConcat
	default:
		return algebra.AggCount
	}
}

// AggregateExpr is an aggregate function appearing directly in an
// expression position (a SELECT projection or a HAVING clause),
// outside of an explicit GROUP BY's Aggregates list. The parser fills
// no Group.Aggregates from it, and internal/sqltranslate has no case
// for it: a query containing one is rejected as an unsupported
// expression.
type AggregateExpr struct {
	// The embedded CallExpr supplies algebra.Expr's unexported method;
	// its own Func field is shadowed by the aggregate's Func below.
	algebra.CallExpr

	Func     algebra.AggFunc
	Expr     algebra.Expr // nil for COUNT(*)
	Distinct bool
}

func aggregateScalarExpr(name string, args []algebra.Expr, distinct bool) algebra.Expr {
	var e algebra.Expr
	if len(args) > 0 {
		e = args[0]
	}

	return AggregateExpr{Func: aggregateKindByName(name), Expr: e, Distinct: distinct}
}
