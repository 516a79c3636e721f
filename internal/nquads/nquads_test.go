package nquads_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accented-ai/quadsparql/internal/graphcat"
	"github.com/accented-ai/quadsparql/internal/nquads"
	"github.com/accented-ai/quadsparql/internal/quadstore"
	"github.com/accented-ai/quadsparql/internal/term"
)

func TestFormatOmitsDefaultGraph(t *testing.T) {
	t.Parallel()

	q := quadstore.Quad{
		Subject:   term.URI("http://example.org/alice"),
		Predicate: term.URI("http://example.org/knows"),
		Object:    term.URI("http://example.org/bob"),
		Context:   term.URI(graphcat.DefaultGraphURI),
	}

	line := nquads.Format(q)

	require.Equal(t, "<http://example.org/alice> <http://example.org/knows> <http://example.org/bob> .\n", line)
}

func TestFormatIncludesNamedGraph(t *testing.T) {
	t.Parallel()

	q := quadstore.Quad{
		Subject:   term.URI("http://example.org/alice"),
		Predicate: term.URI("http://example.org/knows"),
		Object:    term.URI("http://example.org/bob"),
		Context:   term.URI("http://example.org/graphs/g1"),
	}

	line := nquads.Format(q)

	require.True(t, strings.HasSuffix(line, "<http://example.org/graphs/g1> .\n"))
}

func TestFormatLiteralWithLangAndDatatype(t *testing.T) {
	t.Parallel()

	lang := quadstore.Quad{
		Subject:   term.URI("http://example.org/alice"),
		Predicate: term.URI("http://example.org/name"),
		Object:    term.LangLiteral("Alice", "en"),
		Context:   term.URI(graphcat.DefaultGraphURI),
	}

	require.Contains(t, nquads.Format(lang), `"Alice"@en`)

	typed := quadstore.Quad{
		Subject:   term.URI("http://example.org/alice"),
		Predicate: term.URI("http://example.org/age"),
		Object:    term.Literal("30", "http://www.w3.org/2001/XMLSchema#integer"),
		Context:   term.URI(graphcat.DefaultGraphURI),
	}

	require.Contains(t, nquads.Format(typed), `"30"^^<http://www.w3.org/2001/XMLSchema#integer>`)
}

func TestFormatPlainStringLiteralOmitsDatatypeSuffix(t *testing.T) {
	t.Parallel()

	q := quadstore.Quad{
		Subject:   term.URI("http://example.org/alice"),
		Predicate: term.URI("http://example.org/name"),
		Object:    term.Literal("Alice", ""),
		Context:   term.URI(graphcat.DefaultGraphURI),
	}

	line := nquads.Format(q)
	require.Contains(t, line, `"Alice"`)
	require.NotContains(t, line, "^^")
}

func TestFormatBlankNode(t *testing.T) {
	t.Parallel()

	q := quadstore.Quad{
		Subject:   term.Blank("b0"),
		Predicate: term.URI("http://example.org/knows"),
		Object:    term.URI("http://example.org/bob"),
		Context:   term.URI(graphcat.DefaultGraphURI),
	}

	require.True(t, strings.HasPrefix(nquads.Format(q), "_:b0 "))
}

func TestEscapeLiteralQuotesAndBackslashes(t *testing.T) {
	t.Parallel()

	q := quadstore.Quad{
		Subject:   term.URI("http://example.org/alice"),
		Predicate: term.URI("http://example.org/note"),
		Object:    term.Literal(`she said "hi"\`, ""),
		Context:   term.URI(graphcat.DefaultGraphURI),
	}

	line := nquads.Format(q)
	require.Contains(t, line, `\"hi\"`)
	require.Contains(t, line, `\\`)
}

func TestEncodeWritesEveryQuad(t *testing.T) {
	t.Parallel()

	quads := []quadstore.Quad{
		{
			Subject:   term.URI("http://example.org/a"),
			Predicate: term.URI("http://example.org/p"),
			Object:    term.URI("http://example.org/b"),
			Context:   term.URI(graphcat.DefaultGraphURI),
		},
		{
			Subject:   term.URI("http://example.org/c"),
			Predicate: term.URI("http://example.org/p"),
			Object:    term.URI("http://example.org/d"),
			Context:   term.URI(graphcat.DefaultGraphURI),
		},
	}

	var b strings.Builder
	require.NoError(t, nquads.Encode(&b, quads))

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	require.Len(t, lines, 2)
}
