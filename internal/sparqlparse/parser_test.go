package sparqlparse_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/sparqlparse"
)

func TestParseQuerySimpleSelect(t *testing.T) {
	t.Parallel()

	node, err := sparqlparse.ParseQuery(`
		PREFIX foaf: <http://xmlns.com/foaf/0.1/>
		SELECT ?name WHERE { ?person foaf:name ?name }
	`)
	require.NoError(t, err)

	proj, ok := node.(*algebra.Project)
	require.True(t, ok, "expected top-level Project, got %T", node)
	require.Equal(t, []algebra.Var{"name"}, proj.Vars)

	bgp, ok := proj.Input.(*algebra.BGP)
	require.True(t, ok, "expected BGP under Project, got %T", proj.Input)
	require.Len(t, bgp.Triples, 1)

	tr := bgp.Triples[0]
	require.True(t, tr.Subject.IsVariable())
	require.Equal(t, algebra.Var("person"), tr.Subject.Variable)
	require.False(t, tr.Predicate.IsVariable())
	require.Equal(t, "http://xmlns.com/foaf/0.1/name", tr.Predicate.Bound.Text)
	require.True(t, tr.Object.IsVariable())
	require.Equal(t, algebra.Var("name"), tr.Object.Variable)
}

func TestParseQueryAsk(t *testing.T) {
	t.Parallel()

	node, err := sparqlparse.ParseQuery(`ASK { ?s <http://example.org/p> ?o }`)
	require.NoError(t, err)

	_, ok := node.(*algebra.Ask)
	require.True(t, ok, "expected Ask, got %T", node)
}

func TestParseQuerySelectDistinctLimit(t *testing.T) {
	t.Parallel()

	node, err := sparqlparse.ParseQuery(`SELECT DISTINCT ?s WHERE { ?s <http://example.org/p> ?o } LIMIT 10`)
	require.NoError(t, err)

	distinct, ok := node.(*algebra.Distinct)
	require.True(t, ok, "expected top-level Distinct, got %T", node)

	slice, ok := distinct.Input.(*algebra.Slice)
	require.True(t, ok, "expected Slice under Distinct, got %T", distinct.Input)
	require.Equal(t, int64(10), slice.Limit)

	_, ok = slice.Input.(*algebra.Project)
	require.True(t, ok, "expected Project under Slice, got %T", slice.Input)
}

func TestParseQueryRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	_, err := sparqlparse.ParseQuery(`SELECT ?x WHERE {`)
	require.Error(t, err)
}

func TestParseUpdateInsertData(t *testing.T) {
	t.Parallel()

	ops, err := sparqlparse.ParseUpdate(`
		INSERT DATA { <http://example.org/a> <http://example.org/p> "hello" }
	`)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	op := ops[0]
	require.Equal(t, algebra.UpdateInsertData, op.Kind)
	require.Len(t, op.Data, 1)
	require.Len(t, op.Data[0].Triples, 1)
}

func TestParseUpdateMultipleOperationsInOneRequest(t *testing.T) {
	t.Parallel()

	ops, err := sparqlparse.ParseUpdate(`
		INSERT DATA { <http://example.org/a> <http://example.org/p> "1" } ;
		INSERT DATA { <http://example.org/b> <http://example.org/p> "2" }
	`)
	require.NoError(t, err)
	require.Len(t, ops, 2)
}

func TestParseUpdateClearGraph(t *testing.T) {
	t.Parallel()

	ops, err := sparqlparse.ParseUpdate(`CLEAR GRAPH <http://example.org/g1>`)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, algebra.UpdateClear, ops[0].Kind)
	require.Equal(t, "http://example.org/g1", ops[0].Graph.IRI)
}
