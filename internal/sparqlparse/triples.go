package sparqlparse

import (
	"strconv"
	"strings"

	"github.com/accented-ai/quadsparql/internal/algebra"
)

var blankCounter int

func freshBlankLabel() string {
	blankCounter++
	return "_genid" + strconv.Itoa(blankCounter)
}

// parseTriplesBlock parses a '.'-separated TriplesBlock (the content
// of a BGP) until it hits something that cannot start a triple
// (closing brace, a graph-pattern keyword, EOF). Any non-trivial
// property path is collected in p.pendingPaths rather than returned
// here; parseGroupGraphPatternSub joins the resulting BGP with one
// algebra.Path node per entry.
func (p *Parser) parseTriplesBlock() ([]algebra.Triple, error) {
	var triples []algebra.Triple

	for {
		if !p.startsTriple() {
			break
		}

		subj, err := p.parseVarOrTerm()
		if err != nil {
			return nil, err
		}

		if err := p.parsePropertyListNotEmpty(subj, &triples); err != nil {
			return nil, err
		}

		if len(p.pendingBlankTriples) > 0 {
			triples = append(triples, p.pendingBlankTriples...)
			p.pendingBlankTriples = nil
		}

		if p.cur().Type != TokenDot {
			break
		}

		p.advance()
	}

	return triples, nil
}

func (p *Parser) startsTriple() bool {
	switch p.cur().Type {
	case TokenVariable, TokenIRIRef, TokenPrefixedName, TokenString, TokenNumber, TokenBoolean, TokenBlankNode, TokenLBracket, TokenA:
		return true
	case TokenLParen: // collection, or RDF-star-like constructs — treat as blank start
		return true
	default:
		return false
	}
}

// parsePropertyListNotEmpty parses `verb objectList (';' verb objectList)*`
// for one subject, appending every resulting triple to out. Property
// paths are supported in the predicate position per spec.md §4.5.
func (p *Parser) parsePropertyListNotEmpty(subj algebra.Term, out *[]algebra.Triple) error {
	for {
		pathExpr, err := p.parsePath()
		if err != nil {
			return err
		}

		if err := p.parseObjectList(subj, pathExpr, out); err != nil {
			return err
		}

		if p.cur().Type != TokenSemicolon {
			return nil
		}

		p.advance()

		if !p.startsVerb() {
			return nil
		}
	}
}

func (p *Parser) startsVerb() bool {
	switch p.cur().Type {
	case TokenIRIRef, TokenPrefixedName, TokenA, TokenBang, TokenLParen, TokenCaret:
		return true
	default:
		return false
	}
}

func (p *Parser) parseObjectList(subj algebra.Term, pred algebra.PathExpr, out *[]algebra.Triple) error {
	for {
		obj, err := p.parseVarOrTerm()
		if err != nil {
			return err
		}

		if simple, ok := pred.(algebra.PathPredicate); ok {
			*out = append(*out, algebra.Triple{
				Subject:   subj,
				Predicate: algebra.BoundTerm(algebra.TermValue{Kind: 'U', Text: simple.IRI}),
				Object:    obj,
			})
		} else {
			p.pendingPaths = append(p.pendingPaths, &algebra.Path{Subject: subj, Path: pred, Object: obj})
		}

		if p.cur().Type != TokenComma {
			return nil
		}

		p.advance()
	}
}

// parsePath parses a SPARQL 1.1 property path expression with the
// standard precedence: '|' (alternative) lowest, then '/' (sequence),
// then unary '^' (inverse) / postfix '*' '+' '?' (repetition), then
// primary (IRI, 'a', '!' negated set, parenthesized).
func (p *Parser) parsePath() (algebra.PathExpr, error) {
	return p.parsePathAlternative()
}

func (p *Parser) parsePathAlternative() (algebra.PathExpr, error) {
	left, err := p.parsePathSequence()
	if err != nil {
		return nil, err
	}

	for p.cur().Type == TokenPipe {
		p.advance()

		right, err := p.parsePathSequence()
		if err != nil {
			return nil, err
		}

		left = algebra.PathAlternative{Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parsePathSequence() (algebra.PathExpr, error) {
	left, err := p.parsePathEltOrInverse()
	if err != nil {
		return nil, err
	}

	for p.cur().Type == TokenSlash {
		p.advance()

		right, err := p.parsePathEltOrInverse()
		if err != nil {
			return nil, err
		}

		left = algebra.PathSequence{Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parsePathEltOrInverse() (algebra.PathExpr, error) {
	inverse := false
	if p.cur().Type == TokenCaret {
		p.advance()
		inverse = true
	}

	primary, err := p.parsePathPrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch p.cur().Type {
		case TokenStar:
			p.advance()
			primary = algebra.PathZeroOrMore{Path: primary}
		case TokenPlus:
			p.advance()
			primary = algebra.PathOneOrMore{Path: primary}
		case TokenQuestion:
			p.advance()
			primary = algebra.PathZeroOrOne{Path: primary}
		default:
			goto done
		}
	}

done:
	if inverse {
		return algebra.PathInverse{Path: primary}, nil
	}

	return primary, nil
}

func (p *Parser) parsePathPrimary() (algebra.PathExpr, error) {
	switch {
	case p.cur().Type == TokenA:
		p.advance()
		return algebra.PathPredicate{IRI: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"}, nil
	case p.cur().Type == TokenIRIRef || p.cur().Type == TokenPrefixedName:
		iri, err := p.resolveIRI(p.advance())
		if err != nil {
			return nil, err
		}

		return algebra.PathPredicate{IRI: iri}, nil
	case p.cur().Type == TokenBang:
		p.advance()
		return p.parsePathNegatedPropertySet()
	case p.cur().Type == TokenLParen:
		p.advance()

		inner, err := p.parsePathAlternative()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}

		return inner, nil
	default:
		return nil, p.errorf("expected a property path")
	}
}

func (p *Parser) parsePathNegatedPropertySet() (algebra.PathExpr, error) {
	var set algebra.PathNegatedPropertySet

	addOne := func() error {
		inverse := false
		if p.cur().Type == TokenCaret {
			p.advance()
			inverse = true
		}

		iri, err := p.resolveIRI(p.advance())
		if err != nil {
			return err
		}

		if inverse {
			set.InverseIRIs = append(set.InverseIRIs, iri)
		} else {
			set.IRIs = append(set.IRIs, iri)
		}

		return nil
	}

	if p.cur().Type == TokenLParen {
		p.advance()

		if p.cur().Type != TokenRParen {
			if err := addOne(); err != nil {
				return nil, err
			}

			for p.cur().Type == TokenPipe {
				p.advance()

				if err := addOne(); err != nil {
					return nil, err
				}
			}
		}

		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
	} else {
		if err := addOne(); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// parseVarOrTerm parses a single RDF-term-or-variable occupying a
// subject/object slot.
func (p *Parser) parseVarOrTerm() (algebra.Term, error) { //nolint:cyclop
	switch p.cur().Type {
	case TokenVariable:
		v := p.advance()
		return algebra.VarTerm(algebra.Var(v.Literal)), nil
	case TokenIRIRef, TokenPrefixedName:
		iri, err := p.resolveIRI(p.advance())
		if err != nil {
			return algebra.Term{}, err
		}

		return algebra.BoundTerm(algebra.TermValue{Kind: 'U', Text: iri}), nil
	case TokenA:
		p.advance()
		return algebra.BoundTerm(algebra.TermValue{Kind: 'U', Text: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"}), nil
	case TokenBlankNode:
		b := p.advance()
		return algebra.BoundTerm(algebra.TermValue{Kind: 'B', Text: strings.TrimPrefix(b.Literal, "_:")}), nil
	case TokenLBracket:
		p.advance()

		label := freshBlankLabel()

		if p.cur().Type != TokenRBracket {
			self := algebra.BoundTerm(algebra.TermValue{Kind: 'B', Text: label})

			var extra []algebra.Triple
			if err := p.parsePropertyListNotEmpty(self, &extra); err != nil {
				return algebra.Term{}, err
			}

			p.pendingBlankTriples = append(p.pendingBlankTriples, extra...)
		}

		if _, err := p.expect(TokenRBracket); err != nil {
			return algebra.Term{}, err
		}

		return algebra.BoundTerm(algebra.TermValue{Kind: 'B', Text: label}), nil
	case TokenString:
		tv, err := p.parseLiteralValue()
		if err != nil {
			return algebra.Term{}, err
		}

		return algebra.BoundTerm(tv), nil
	case TokenNumber:
		n := p.advance()
		return algebra.BoundTerm(algebra.TermValue{Kind: 'L', Text: n.Literal, DatatypeURI: numericDatatype(n.Literal)}), nil
	case TokenBoolean:
		b := p.advance()
		return algebra.BoundTerm(algebra.TermValue{Kind: 'L', Text: strings.ToLower(b.Literal), DatatypeURI: "http://www.w3.org/2001/XMLSchema#boolean"}), nil
	default:
		return algebra.Term{}, p.errorf("expected a term or variable")
	}
}

func numericDatatype(lit string) string {
	if strings.ContainsAny(lit, ".eE") {
		return "http://www.w3.org/2001/XMLSchema#decimal"
	}

	return "http://www.w3.org/2001/XMLSchema#integer"
}

// parseLiteralValue parses a quoted string possibly followed by a
// language tag (@en) or a datatype annotation (^^<iri>).
func (p *Parser) parseLiteralValue() (algebra.TermValue, error) {
	s, err := p.expect(TokenString)
	if err != nil {
		return algebra.TermValue{}, err
	}

	text := unquoteString(s.Literal)

	if p.cur().Type == TokenAt && p.cur().Literal != "@" {
		lang := p.advance()
		return algebra.TermValue{Kind: 'L', Text: text, Lang: strings.TrimPrefix(lang.Literal, "@"),
			DatatypeURI: "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"}, nil
	}

	if p.cur().Type == TokenOperator && p.cur().Literal == "^^" {
		p.advance()

		dt, err := p.resolveIRI(p.advance())
		if err != nil {
			return algebra.TermValue{}, err
		}

		return algebra.TermValue{Kind: 'L', Text: text, DatatypeURI: dt}, nil
	}

	return algebra.TermValue{Kind: 'L', Text: text, DatatypeURI: "http://www.w3.org/2001/XMLSchema#string"}, nil
}

func unquoteString(lit string) string {
	for _, delim := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(lit, delim) && strings.HasSuffix(lit, delim) && len(lit) >= 2*len(delim) {
			body := lit[len(delim) : len(lit)-len(delim)]
			return unescapeSPARQLString(body)
		}
	}

	return lit
}

func unescapeSPARQLString(s string) string {
	var b strings.Builder

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"', '\'', '\\':
				b.WriteByte(s[i+1])
			default:
				b.WriteByte(s[i+1])
			}

			i++

			continue
		}

		b.WriteByte(s[i])
	}

	return b.String()
}
