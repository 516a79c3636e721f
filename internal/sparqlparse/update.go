package sparqlparse

import (
	"github.com/accented-ai/quadsparql/internal/algebra"
)

// parseUpdateOp parses one operation of a SPARQL 1.1 Update request,
// dispatching on its leading keyword the way the teacher's
// DetectStatementType dispatches on a SQL statement's leading tokens.
func (p *Parser) parseUpdateOp() (algebra.UpdateOp, error) { //nolint:cyclop
	switch {
	case p.isKeyword("INSERT") && p.peekAt(1).Type == TokenKeyword && p.peekAt(1).Literal == "DATA":
		return p.parseInsertData()
	case p.isKeyword("DELETE") && p.peekAt(1).Type == TokenKeyword && p.peekAt(1).Literal == "DATA":
		return p.parseDeleteData()
	case p.isKeyword("DELETE") && p.peekAt(1).Type == TokenKeyword && p.peekAt(1).Literal == "WHERE":
		return p.parseDeleteWhere()
	case p.isKeyword("WITH") || p.isKeyword("DELETE") || p.isKeyword("INSERT"):
		return p.parseModify()
	case p.isKeyword("LOAD"):
		return p.parseLoad()
	case p.isKeyword("CLEAR"):
		return p.parseClearDropCreate(algebra.UpdateClear)
	case p.isKeyword("DROP"):
		return p.parseClearDropCreate(algebra.UpdateDrop)
	case p.isKeyword("CREATE"):
		return p.parseClearDropCreate(algebra.UpdateCreate)
	case p.isKeyword("COPY"):
		return p.parseCopyMoveAdd(algebra.UpdateCopy)
	case p.isKeyword("MOVE"):
		return p.parseCopyMoveAdd(algebra.UpdateMove)
	case p.isKeyword("ADD"):
		return p.parseCopyMoveAdd(algebra.UpdateAdd)
	default:
		return algebra.UpdateOp{}, p.errorf("expected an update operation")
	}
}

func (p *Parser) parseInsertData() (algebra.UpdateOp, error) {
	p.advance() // INSERT
	p.advance() // DATA

	data, err := p.parseQuadData()
	if err != nil {
		return algebra.UpdateOp{}, err
	}

	return algebra.UpdateOp{Kind: algebra.UpdateInsertData, Data: data}, nil
}

func (p *Parser) parseDeleteData() (algebra.UpdateOp, error) {
	p.advance() // DELETE
	p.advance() // DATA

	data, err := p.parseQuadData()
	if err != nil {
		return algebra.UpdateOp{}, err
	}

	return algebra.UpdateOp{Kind: algebra.UpdateDeleteData, Data: data}, nil
}

func (p *Parser) parseDeleteWhere() (algebra.UpdateOp, error) {
	p.advance() // DELETE
	p.advance() // WHERE

	data, err := p.parseQuadPattern()
	if err != nil {
		return algebra.UpdateOp{}, err
	}

	return algebra.UpdateOp{Kind: algebra.UpdateDeleteWhere, Data: data}, nil
}

// parseQuadData parses a QuadData block: `{ TriplesBlock | GRAPH iri
// { TriplesBlock } ... }`.
func (p *Parser) parseQuadData() ([]algebra.QuadData, error) {
	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}

	data, err := p.parseQuadsInner()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}

	return data, nil
}

// parseQuadPattern parses the same shape as parseQuadData, but its
// triples may contain variables (used by DELETE WHERE and the
// DELETE/INSERT clauses of Modify).
func (p *Parser) parseQuadPattern() ([]algebra.QuadData, error) {
	return p.parseQuadData()
}

func (p *Parser) parseQuadsInner() ([]algebra.QuadData, error) {
	var groups []algebra.QuadData

	defaultTriples, err := p.parseTriplesBlock()
	if err != nil {
		return nil, err
	}

	if len(defaultTriples) > 0 {
		groups = append(groups, algebra.QuadData{Graph: algebra.GraphRef{Default: true}, Triples: defaultTriples})
	}

	for p.isKeyword("GRAPH") {
		p.advance()

		iri, err := p.resolveIRI(p.advance())
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(TokenLBrace); err != nil {
			return nil, err
		}

		triples, err := p.parseTriplesBlock()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(TokenRBrace); err != nil {
			return nil, err
		}

		groups = append(groups, algebra.QuadData{Graph: algebra.GraphRef{IRI: iri}, Triples: triples})

		if p.cur().Type == TokenDot {
			p.advance()
		}

		more, err := p.parseTriplesBlock()
		if err != nil {
			return nil, err
		}

		if len(more) > 0 {
			groups = append(groups, algebra.QuadData{Graph: algebra.GraphRef{Default: true}, Triples: more})
		}
	}

	return groups, nil
}

// parseModify handles `[WITH iri] (DeleteClause [InsertClause] |
// InsertClause) [UsingClause...] WHERE GroupGraphPattern`.
func (p *Parser) parseModify() (algebra.UpdateOp, error) {
	op := algebra.UpdateOp{Kind: algebra.UpdateModify}

	if p.acceptKeyword("WITH") {
		iri, err := p.resolveIRI(p.advance())
		if err != nil {
			return algebra.UpdateOp{}, err
		}

		op.WithGraph = &iri
	}

	if p.acceptKeyword("DELETE") {
		data, err := p.parseQuadPattern()
		if err != nil {
			return algebra.UpdateOp{}, err
		}

		op.DeleteClause = data
	}

	if p.acceptKeyword("INSERT") {
		data, err := p.parseQuadPattern()
		if err != nil {
			return algebra.UpdateOp{}, err
		}

		op.InsertClause = data
	}

	for p.isKeyword("USING") {
		p.advance()

		named := p.acceptKeyword("NAMED")

		iri, err := p.resolveIRI(p.advance())
		if err != nil {
			return algebra.UpdateOp{}, err
		}

		op.UsingGraphs = append(op.UsingGraphs, algebra.GraphRef{IRI: iri, Named: named})
	}

	if err := p.expectKeyword("WHERE"); err != nil {
		return algebra.UpdateOp{}, err
	}

	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return algebra.UpdateOp{}, err
	}

	op.Where = where

	return op, nil
}

func (p *Parser) parseLoad() (algebra.UpdateOp, error) {
	p.advance() // LOAD

	silent := p.acceptKeyword("SILENT")

	source, err := p.resolveIRI(p.advance())
	if err != nil {
		return algebra.UpdateOp{}, err
	}

	op := algebra.UpdateOp{Kind: algebra.UpdateLoad, Source: source, Silent: silent}

	if p.acceptKeyword("INTO") {
		if err := p.expectKeyword("GRAPH"); err != nil {
			return algebra.UpdateOp{}, err
		}

		target, err := p.resolveIRI(p.advance())
		if err != nil {
			return algebra.UpdateOp{}, err
		}

		op.Target = &target
	}

	return op, nil
}

func (p *Parser) parseClearDropCreate(kind algebra.UpdateKind) (algebra.UpdateOp, error) {
	p.advance() // CLEAR/DROP/CREATE

	silent := p.acceptKeyword("SILENT")

	graph, err := p.parseGraphRefAny()
	if err != nil {
		return algebra.UpdateOp{}, err
	}

	return algebra.UpdateOp{Kind: kind, Graph: graph, Silent: silent}, nil
}

func (p *Parser) parseCopyMoveAdd(kind algebra.UpdateKind) (algebra.UpdateOp, error) {
	p.advance() // COPY/MOVE/ADD

	silent := p.acceptKeyword("SILENT")

	from, err := p.parseGraphRefAny()
	if err != nil {
		return algebra.UpdateOp{}, err
	}

	if err := p.expectKeyword("TO"); err != nil {
		return algebra.UpdateOp{}, err
	}

	to, err := p.parseGraphRefAny()
	if err != nil {
		return algebra.UpdateOp{}, err
	}

	return algebra.UpdateOp{Kind: kind, From: from, To: to, Silent: silent}, nil
}

// parseGraphRefAny parses GraphRef, GraphRefAll: DEFAULT, NAMED, ALL,
// GRAPH iri, or a bare iri.
func (p *Parser) parseGraphRefAny() (algebra.GraphRef, error) {
	switch {
	case p.acceptKeyword("DEFAULT"):
		return algebra.GraphRef{Default: true}, nil
	case p.acceptKeyword("NAMED"):
		return algebra.GraphRef{Named: true}, nil
	case p.acceptKeyword("ALL"):
		return algebra.GraphRef{All: true}, nil
	case p.acceptKeyword("GRAPH"):
		iri, err := p.resolveIRI(p.advance())
		if err != nil {
			return algebra.GraphRef{}, err
		}

		return algebra.GraphRef{IRI: iri}, nil
	default:
		iri, err := p.resolveIRI(p.advance())
		if err != nil {
			return algebra.GraphRef{}, err
		}

		return algebra.GraphRef{IRI: iri}, nil
	}
}
