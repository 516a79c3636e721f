package sqltranslate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accented-ai/quadsparql/internal/space"
	"github.com/accented-ai/quadsparql/internal/sparqlparse"
	"github.com/accented-ai/quadsparql/internal/sqltranslate"
)

func mustNames(t *testing.T) space.Names {
	t.Helper()

	names, err := space.NewNames("qs", "demo")
	require.NoError(t, err)

	return names
}

func translate(t *testing.T, query string) *sqltranslate.Result {
	t.Helper()

	node, err := sparqlparse.ParseQuery(query)
	require.NoError(t, err)

	ctx := sqltranslate.NewContext(mustNames(t), 0, 0)

	result, err := sqltranslate.Translate(ctx, node)
	require.NoError(t, err)

	return result
}

func TestTranslateSelectProducesParameterizedSQLOverQuadTable(t *testing.T) {
	t.Parallel()

	result := translate(t, `SELECT ?s WHERE { ?s <http://example.org/knows> <http://example.org/bob> }`)

	require.Contains(t, result.SQL, "qs__demo__rdf_quad")
	require.NotEmpty(t, result.Args)
	require.NotEqual(t, sqltranslate.ShapeBoolean, result.Plan.Shape)
}

func TestTranslateAskProducesBooleanShape(t *testing.T) {
	t.Parallel()

	result := translate(t, `ASK { ?s <http://example.org/knows> <http://example.org/bob> }`)

	require.Equal(t, sqltranslate.ShapeBoolean, result.Plan.Shape)
}

func TestTranslateConstructProducesTriplesShape(t *testing.T) {
	t.Parallel()

	result := translate(t, `
		CONSTRUCT { ?s <http://example.org/knows> ?o }
		WHERE { ?s <http://example.org/knows> ?o }
	`)

	require.Equal(t, sqltranslate.ShapeTriples, result.Plan.Shape)
}

func TestTranslateRejectsOverBudget(t *testing.T) {
	t.Parallel()

	node, err := sparqlparse.ParseQuery(`
		SELECT ?s WHERE {
			?s <http://example.org/p1> ?o1 .
			?s <http://example.org/p2> ?o2 .
			?s <http://example.org/p3> ?o3 .
		}
	`)
	require.NoError(t, err)

	ctx := sqltranslate.NewContext(mustNames(t), 1, 0)

	_, err = sqltranslate.Translate(ctx, node)
	require.Error(t, err)
}

func TestTranslatePropertyPathEmitsRecursiveCTE(t *testing.T) {
	t.Parallel()

	result := translate(t, `SELECT ?o WHERE { <http://example.org/a> <http://example.org/p>+ ?o }`)

	require.True(t, strings.HasPrefix(strings.TrimSpace(result.SQL), "WITH RECURSIVE"),
		"expected a WITH RECURSIVE prefix, got: %s", result.SQL)
}
