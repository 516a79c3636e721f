package sparqlparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/apperr"
)

// Parser walks a pre-lexed token stream the way trigo's Parser walks
// raw input, but position-tracked the way the teacher's DDL parser
// consumes a []Token slice rather than a string.
type Parser struct {
	tokens   []Token
	pos      int
	prefixes map[string]string
	base     string

	// pendingBlankTriples accumulates triples generated by `[ ... ]`
	// blank-node property lists encountered mid-parseVarOrTerm; drained
	// by the enclosing parseTriplesBlock call.
	pendingBlankTriples []algebra.Triple

	// pendingPaths accumulates non-trivial property-path triples seen
	// while parsing the current TriplesBlock; drained by
	// parseGroupGraphPatternSub into standalone algebra.Path nodes
	// joined alongside the BGP.
	pendingPaths []*algebra.Path
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens, prefixes: map[string]string{}}
}

// ParseQuery parses a full SPARQL 1.1 Query and returns its algebra
// tree rooted at Project/Construct/Ask/Describe.
func ParseQuery(text string) (algebra.Node, error) {
	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParseError, "parse query", err)
	}

	p := NewParser(tokens)
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}

	node, err := p.parseQueryBody()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParseError, "parse query", err)
	}

	return node, nil
}

// ExtractPrefixes returns the PREFIX declarations seen in text's
// prologue(s), label -> namespace IRI. It never errors: malformed
// input simply yields whatever prefixes were parsed before the
// failure, since this is used only for opportunistic namespace-table
// population (spec.md §6), never for query semantics.
func ExtractPrefixes(text string) map[string]string {
	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return nil
	}

	p := NewParser(tokens)
	_ = p.parsePrologue()

	return p.prefixes
}

// ParseUpdate parses a SPARQL 1.1 Update request (`;`-separated
// operations) and returns them in request order.
func ParseUpdate(text string) ([]algebra.UpdateOp, error) {
	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParseError, "parse update", err)
	}

	p := NewParser(tokens)

	var ops []algebra.UpdateOp

	for {
		if err := p.parsePrologue(); err != nil {
			return nil, err
		}

		if p.cur().Type == TokenEOF {
			break
		}

		op, err := p.parseUpdateOp()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindParseError, "parse update", err)
		}

		ops = append(ops, op)

		if p.cur().Type == TokenSemicolon {
			p.advance()
			continue
		}

		break
	}

	return ops, nil
}

// --- token plumbing ---

func (p *Parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}

	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}

	return p.tokens[p.pos+n]
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}

	return t
}

func (p *Parser) errorf(format string, args ...any) error {
	t := p.cur()
	return fmt.Errorf("%s (at line %d column %d, near %q)", fmt.Sprintf(format, args...), t.Line, t.Column, t.Literal)
}

func (p *Parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.Type == TokenKeyword && t.Literal == kw
}

func (p *Parser) acceptKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.advance()
		return true
	}

	return false
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.errorf("expected %q", kw)
	}

	return nil
}

func (p *Parser) accept(t TokenType) (Token, bool) {
	if p.cur().Type == t {
		return p.advance(), true
	}

	return Token{}, false
}

func (p *Parser) expect(t TokenType) (Token, error) {
	tok, ok := p.accept(t)
	if !ok {
		return Token{}, p.errorf("unexpected token")
	}

	return tok, nil
}

// --- prologue ---

func (p *Parser) parsePrologue() error {
	for {
		switch {
		case p.acceptKeyword("PREFIX"):
			name, err := p.expect(TokenPrefixedName)
			if err != nil {
				return fmt.Errorf("expected prefix label: %w", err)
			}

			iri, err := p.expect(TokenIRIRef)
			if err != nil {
				return fmt.Errorf("expected prefix IRI: %w", err)
			}

			p.prefixes[strings.TrimSuffix(name.Literal, ":")] = stripIRIRef(iri.Literal)
		case p.acceptKeyword("BASE"):
			iri, err := p.expect(TokenIRIRef)
			if err != nil {
				return fmt.Errorf("expected base IRI: %w", err)
			}

			p.base = stripIRIRef(iri.Literal)
		default:
			return nil
		}
	}
}

func stripIRIRef(lit string) string {
	return strings.TrimSuffix(strings.TrimPrefix(lit, "<"), ">")
}

func (p *Parser) resolveIRI(tok Token) (string, error) {
	switch tok.Type {
	case TokenIRIRef:
		return p.base + stripIRIRef(tok.Literal), nil
	case TokenPrefixedName:
		idx := strings.IndexByte(tok.Literal, ':')
		if idx < 0 {
			return "", p.errorf("malformed prefixed name %q", tok.Literal)
		}

		prefix, local := tok.Literal[:idx], tok.Literal[idx+1:]

		ns, ok := p.prefixes[prefix]
		if !ok {
			return "", p.errorf("undeclared prefix %q", prefix)
		}

		return ns + local, nil
	case TokenA:
		return "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", nil
	default:
		return "", p.errorf("expected IRI or prefixed name")
	}
}

// --- query forms ---

func (p *Parser) parseQueryBody() (algebra.Node, error) {
	switch {
	case p.isKeyword("SELECT"):
		return p.parseSelectQuery()
	case p.isKeyword("CONSTRUCT"):
		return p.parseConstructQuery()
	case p.isKeyword("ASK"):
		return p.parseAskQuery()
	case p.isKeyword("DESCRIBE"):
		return p.parseDescribeQuery()
	default:
		return nil, p.errorf("expected SELECT, CONSTRUCT, ASK, or DESCRIBE")
	}
}

func (p *Parser) parseSelectQuery() (algebra.Node, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	distinct := p.acceptKeyword("DISTINCT")
	reduced := false

	if !distinct {
		reduced = p.acceptKeyword("REDUCED")
	}

	star := false
	extends := []struct {
		v    algebra.Var
		expr algebra.Expr
	}{}

	var vars []algebra.Var

	if p.cur().Type == TokenStar {
		p.advance()
		star = true
	} else {
		for {
			if v, ok := p.accept(TokenVariable); ok {
				vars = append(vars, algebra.Var(v.Literal))
				continue
			}

			if _, ok := p.accept(TokenLParen); ok {
				expr, err := p.parseExpression()
				if err != nil {
					return nil, err
				}

				if err := p.expectKeyword("AS"); err != nil {
					return nil, err
				}

				v, err := p.expect(TokenVariable)
				if err != nil {
					return nil, err
				}

				if _, err := p.expect(TokenRParen); err != nil {
					return nil, err
				}

				extends = append(extends, struct {
					v    algebra.Var
					expr algebra.Expr
				}{algebra.Var(v.Literal), expr})
				vars = append(vars, algebra.Var(v.Literal))

				continue
			}

			break
		}
	}

	p.skipDatasetClauses()

	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}

	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}

	for _, e := range extends {
		where = &algebra.Extend{Input: where, Var: e.v, Expr: e.expr}
	}

	node, err := p.parseSolutionModifiers(where, vars, star)
	if err != nil {
		return nil, err
	}

	if distinct {
		node = &algebra.Distinct{Input: node}
	} else if reduced {
		node = &algebra.Reduced{Input: node}
	}

	return node, nil
}

// parseSolutionModifiers applies GROUP BY, HAVING, ORDER BY, Project
// (omitted when star is set) and then LIMIT/OFFSET as a Slice wrapping
// the result, in SPARQL algebra order.
func (p *Parser) parseSolutionModifiers(where algebra.Node, vars []algebra.Var, star bool) (algebra.Node, error) {
	node := where

	if p.isKeyword("GROUP") {
		grouped, err := p.parseGroupClause(node)
		if err != nil {
			return nil, err
		}

		node = grouped
	}

	if p.acceptKeyword("HAVING") {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}

		node = &algebra.Filter{Input: node, Expr: expr}
	}

	if p.isKeyword("ORDER") {
		ordered, err := p.parseOrderClause(node)
		if err != nil {
			return nil, err
		}

		node = ordered
	}

	if !star {
		node = &algebra.Project{Input: node, Vars: vars}
	}

	limit, offset, err := p.parseLimitOffset()
	if err != nil {
		return nil, err
	}

	if limit >= 0 || offset > 0 {
		if limit < 0 {
			limit = -1
		}

		node = &algebra.Slice{Input: node, Offset: offset, Limit: limit}
	}

	return node, nil
}

func (p *Parser) parseGroupClause(input algebra.Node) (algebra.Node, error) {
	if err := p.expectKeyword("GROUP"); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("BY"); err != nil {
		return nil, err
	}

	var by []algebra.Expr

	for {
		if v, ok := p.accept(TokenVariable); ok {
			by = append(by, algebra.VariableExpr{Var: algebra.Var(v.Literal)})
			continue
		}

		if p.cur().Type == TokenLParen {
			p.advance()

			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}

			if _, err := p.expect(TokenRParen); err != nil {
				return nil, err
			}

			by = append(by, expr)

			continue
		}

		break
	}

	return &algebra.Group{Input: input, By: by}, nil
}

func (p *Parser) parseOrderClause(input algebra.Node) (algebra.Node, error) {
	if err := p.expectKeyword("ORDER"); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("BY"); err != nil {
		return nil, err
	}

	var conds []algebra.SortCondition

	for {
		desc := false

		switch {
		case p.acceptKeyword("ASC"):
		case p.acceptKeyword("DESC"):
			desc = true
		default:
			if p.cur().Type != TokenVariable && p.cur().Type != TokenLParen && !isExprStart(p.cur()) {
				goto done
			}
		}

		var expr algebra.Expr

		var err error

		if _, ok := p.accept(TokenLParen); ok {
			expr, err = p.parseExpression()
			if err != nil {
				return nil, err
			}

			if _, err := p.expect(TokenRParen); err != nil {
				return nil, err
			}
		} else {
			expr, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}

		conds = append(conds, algebra.SortCondition{Expr: expr, Descending: desc})
	}

done:
	return &algebra.OrderBy{Input: input, Conditions: conds}, nil
}

func isExprStart(t Token) bool {
	switch t.Type {
	case TokenVariable, TokenIRIRef, TokenPrefixedName, TokenString, TokenNumber, TokenBoolean, TokenBang, TokenA:
		return true
	default:
		return t.Type == TokenKeyword
	}
}

func (p *Parser) parseLimitOffset() (limit, offset int64, err error) {
	limit = -1

	for {
		switch {
		case p.acceptKeyword("LIMIT"):
			n, e := p.expect(TokenNumber)
			if e != nil {
				return 0, 0, e
			}

			v, e := strconv.ParseInt(n.Literal, 10, 64)
			if e != nil {
				return 0, 0, fmt.Errorf("invalid LIMIT: %w", e)
			}

			limit = v
		case p.acceptKeyword("OFFSET"):
			n, e := p.expect(TokenNumber)
			if e != nil {
				return 0, 0, e
			}

			v, e := strconv.ParseInt(n.Literal, 10, 64)
			if e != nil {
				return 0, 0, fmt.Errorf("invalid OFFSET: %w", e)
			}

			offset = v
		default:
			return limit, offset, nil
		}
	}
}

func (p *Parser) skipDatasetClauses() {
	for p.acceptKeyword("FROM") {
		p.acceptKeyword("NAMED")

		if p.cur().Type == TokenIRIRef || p.cur().Type == TokenPrefixedName {
			p.advance()
		}
	}
}

func (p *Parser) parseConstructQuery() (algebra.Node, error) {
	if err := p.expectKeyword("CONSTRUCT"); err != nil {
		return nil, err
	}

	var template []algebra.TriplePattern

	if p.cur().Type == TokenLBrace {
		p.advance()

		tpl, err := p.parseTriplesBlock()
		if err != nil {
			return nil, err
		}

		template = tpl

		if _, err := p.expect(TokenRBrace); err != nil {
			return nil, err
		}

		p.skipDatasetClauses()

		if err := p.expectKeyword("WHERE"); err != nil {
			return nil, err
		}

		where, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}

		node, err := p.applyTailModifiers(where)
		if err != nil {
			return nil, err
		}

		return &algebra.Construct{Template: template, Where: node}, nil
	}

	// Shortcut form: CONSTRUCT WHERE { ... } reuses the pattern as the
	// template.
	p.skipDatasetClauses()

	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}

	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}

	bgp, _ := where.(*algebra.BGP)
	if bgp != nil {
		template = bgp.Triples
	}

	node, err := p.applyTailModifiers(where)
	if err != nil {
		return nil, err
	}

	return &algebra.Construct{Template: template, Where: node}, nil
}

func (p *Parser) applyTailModifiers(node algebra.Node) (algebra.Node, error) {
	if p.isKeyword("ORDER") {
		ordered, err := p.parseOrderClause(node)
		if err != nil {
			return nil, err
		}

		node = ordered
	}

	limit, offset, err := p.parseLimitOffset()
	if err != nil {
		return nil, err
	}

	if limit >= 0 || offset > 0 {
		node = &algebra.Slice{Input: node, Offset: offset, Limit: limit}
	}

	return node, nil
}

func (p *Parser) parseAskQuery() (algebra.Node, error) {
	if err := p.expectKeyword("ASK"); err != nil {
		return nil, err
	}

	p.skipDatasetClauses()

	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}

	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}

	return &algebra.Ask{Where: where}, nil
}

func (p *Parser) parseDescribeQuery() (algebra.Node, error) {
	if err := p.expectKeyword("DESCRIBE"); err != nil {
		return nil, err
	}

	var resources []algebra.Term

	star := false

	if p.cur().Type == TokenStar {
		p.advance()
		star = true
	} else {
		for {
			switch p.cur().Type {
			case TokenVariable:
				v := p.advance()
				resources = append(resources, algebra.VarTerm(algebra.Var(v.Literal)))
			case TokenIRIRef, TokenPrefixedName, TokenA:
				iri, err := p.resolveIRI(p.advance())
				if err != nil {
					return nil, err
				}

				resources = append(resources, algebra.BoundTerm(algebra.TermValue{Kind: 'U', Text: iri}))
			default:
				goto done
			}
		}
	}

done:
	p.skipDatasetClauses()

	var where algebra.Node

	if p.acceptKeyword("WHERE") {
		w, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}

		where = w
	}

	desc := &algebra.Describe{Resources: resources, Where: where}

	if star && where != nil {
		// DESCRIBE * describes every variable bound by WHERE; the
		// translator resolves the variable set from Where itself when
		// Resources is empty and Where is non-nil.
		desc.Resources = nil
	}

	return desc, nil
}

// --- group graph pattern ---

func (p *Parser) parseGroupGraphPattern() (algebra.Node, error) {
	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}

	node, err := p.parseGroupGraphPatternSub()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}

	return node, nil
}

func (p *Parser) parseGroupGraphPatternSub() (algebra.Node, error) { //nolint:cyclop,gocyclo
	var node algebra.Node

	join := func(n algebra.Node) {
		if node == nil {
			node = n
			return
		}

		node = &algebra.Join{Left: node, Right: n}
	}

	for {
		switch {
		case p.cur().Type == TokenRBrace || p.cur().Type == TokenEOF:
			goto done
		case p.cur().Type == TokenDot:
			p.advance()
		case p.isKeyword("OPTIONAL"):
			p.advance()

			opt, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}

			var filter algebra.Expr
			if f, ok := opt.(*algebra.Filter); ok {
				filter = f.Expr
				opt = f.Input
			}

			if node == nil {
				node = &algebra.BGP{}
			}

			node = &algebra.LeftJoin{Left: node, Right: opt, Filter: filter}
		case p.isKeyword("MINUS"):
			p.advance()

			sub, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}

			if node == nil {
				node = &algebra.BGP{}
			}

			node = &algebra.Minus{Left: node, Right: sub}
		case p.isKeyword("FILTER"):
			p.advance()

			expr, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}

			if node == nil {
				node = &algebra.BGP{}
			}

			node = &algebra.Filter{Input: node, Expr: expr}
		case p.isKeyword("BIND"):
			p.advance()

			if _, err := p.expect(TokenLParen); err != nil {
				return nil, err
			}

			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}

			if err := p.expectKeyword("AS"); err != nil {
				return nil, err
			}

			v, err := p.expect(TokenVariable)
			if err != nil {
				return nil, err
			}

			if _, err := p.expect(TokenRParen); err != nil {
				return nil, err
			}

			if node == nil {
				node = &algebra.BGP{}
			}

			node = &algebra.Extend{Input: node, Var: algebra.Var(v.Literal), Expr: expr}
		case p.isKeyword("VALUES"):
			v, err := p.parseValuesClause()
			if err != nil {
				return nil, err
			}

			join(v)
		case p.isKeyword("GRAPH"):
			g, err := p.parseGraphGraphPattern()
			if err != nil {
				return nil, err
			}

			join(g)
		case p.cur().Type == TokenLBrace:
			save := p.pos

			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}

			if p.isKeyword("UNION") {
				left := inner

				var branches []algebra.Node

				branches = append(branches, left)

				for p.acceptKeyword("UNION") {
					right, err := p.parseGroupGraphPattern()
					if err != nil {
						return nil, err
					}

					branches = append(branches, right)
				}

				combined := branches[0]
				for _, b := range branches[1:] {
					combined = &algebra.Union{Left: combined, Right: b}
				}

				join(combined)
			} else {
				_ = save
				join(inner)
			}
		case p.isKeyword("SELECT"):
			sub, err := p.parseSubSelect()
			if err != nil {
				return nil, err
			}

			join(sub)
		default:
			triples, err := p.parseTriplesBlock()
			if err != nil {
				return nil, err
			}

			paths := p.pendingPaths
			p.pendingPaths = nil

			if len(triples) > 0 {
				join(&algebra.BGP{Triples: triples})
			}

			for _, pathNode := range paths {
				join(pathNode)
			}

			if len(triples) == 0 && len(paths) == 0 {
				goto done
			}
		}
	}

done:
	if node == nil {
		node = &algebra.BGP{}
	}

	return node, nil
}

func (p *Parser) parseSubSelect() (algebra.Node, error) {
	return p.parseSelectQuery()
}

func (p *Parser) parseGraphGraphPattern() (algebra.Node, error) {
	if err := p.expectKeyword("GRAPH"); err != nil {
		return nil, err
	}

	var ctx algebra.Term

	if v, ok := p.accept(TokenVariable); ok {
		ctx = algebra.VarTerm(algebra.Var(v.Literal))
	} else {
		iri, err := p.resolveIRI(p.advance())
		if err != nil {
			return nil, err
		}

		ctx = algebra.BoundTerm(algebra.TermValue{Kind: 'U', Text: iri})
	}

	inner, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}

	return &algebra.Graph{Context: ctx, Input: inner}, nil
}

func (p *Parser) parseValuesClause() (algebra.Node, error) {
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}

	var varsList []algebra.Var

	if _, ok := p.accept(TokenLParen); ok {
		for p.cur().Type == TokenVariable {
			v := p.advance()
			varsList = append(varsList, algebra.Var(v.Literal))
		}

		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
	} else {
		v, err := p.expect(TokenVariable)
		if err != nil {
			return nil, err
		}

		varsList = append(varsList, algebra.Var(v.Literal))
	}

	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}

	var rows []algebra.ValuesRow

	for p.cur().Type != TokenRBrace {
		row := algebra.ValuesRow{}

		multi := false
		if _, ok := p.accept(TokenLParen); ok {
			multi = true
		}

		for _, v := range varsList {
			if p.acceptKeyword("UNDEF") {
				row[v] = nil
				continue
			}

			tv, err := p.parseDataValue()
			if err != nil {
				return nil, err
			}

			row[v] = &tv
		}

		if multi {
			if _, err := p.expect(TokenRParen); err != nil {
				return nil, err
			}
		}

		rows = append(rows, row)
	}

	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}

	var joined algebra.Var
	if len(varsList) == 1 {
		joined = varsList[0]
	}

	return &algebra.Values{Vars: joined, Rows: rows}, nil
}

func (p *Parser) parseDataValue() (algebra.TermValue, error) {
	switch p.cur().Type {
	case TokenIRIRef, TokenPrefixedName, TokenA:
		iri, err := p.resolveIRI(p.advance())
		if err != nil {
			return algebra.TermValue{}, err
		}

		return algebra.TermValue{Kind: 'U', Text: iri}, nil
	case TokenString:
		return p.parseLiteralValue()
	case TokenNumber:
		n := p.advance()
		return algebra.TermValue{Kind: 'L', Text: n.Literal, DatatypeURI: numericDatatype(n.Literal)}, nil
	case TokenBoolean:
		b := p.advance()
		return algebra.TermValue{Kind: 'L', Text: strings.ToLower(b.Literal), DatatypeURI: "http://www.w3.org/2001/XMLSchema#boolean"}, nil
	default:
		return algebra.TermValue{}, p.errorf("expected a data value")
	}
}
