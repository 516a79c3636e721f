package term_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accented-ai/quadsparql/internal/term"
)

func TestUUIDDeterministic(t *testing.T) {
	t.Parallel()

	a := term.URI("http://example.org/alice")
	b := term.URI("http://example.org/alice")

	require.Equal(t, a.UUID(), b.UUID())
}

func TestUUIDDistinguishesKindTextLangDatatype(t *testing.T) {
	t.Parallel()

	uri := term.URI("http://example.org/x")
	blank := term.Blank("http://example.org/x")
	plain := term.Literal("http://example.org/x", "")
	lang := term.LangLiteral("http://example.org/x", "en")
	typed := term.Literal("http://example.org/x", "http://example.org/customType")

	ids := []string{
		uri.UUID().String(),
		blank.UUID().String(),
		plain.UUID().String(),
		lang.UUID().String(),
		typed.UUID().String(),
	}

	seen := map[string]bool{}
	for _, id := range ids {
		require.False(t, seen[id], "expected all five UUIDs to differ, got duplicate %s", id)
		seen[id] = true
	}
}

func TestLiteralDefaultsToXSDString(t *testing.T) {
	t.Parallel()

	l := term.Literal("hello", "")
	require.Equal(t, term.XSDString, l.DatatypeURI)
}

func TestLangLiteralForcesRDFLangStringDatatype(t *testing.T) {
	t.Parallel()

	l := term.LangLiteral("bonjour", "fr")
	require.Equal(t, term.RDFLangString, l.DatatypeURI)
	require.Equal(t, "fr", l.Lang)
}

func TestValidateRejectsLangOrDatatypeOnURI(t *testing.T) {
	t.Parallel()

	u := term.URI("http://example.org/x")
	u.Lang = "en"

	require.Error(t, u.Validate())
}

func TestValidateRejectsLangWithConflictingDatatype(t *testing.T) {
	t.Parallel()

	lit := term.Term{
		Kind:        term.KindLiteral,
		Text:        "x",
		Lang:        "en",
		DatatypeURI: "http://example.org/customType",
	}

	require.Error(t, lit.Validate())
}

func TestValidateAcceptsWellFormedTerms(t *testing.T) {
	t.Parallel()

	require.NoError(t, term.URI("http://example.org/x").Validate())
	require.NoError(t, term.Blank("b0").Validate())
	require.NoError(t, term.Literal("42", "http://www.w3.org/2001/XMLSchema#integer").Validate())
	require.NoError(t, term.LangLiteral("hello", "en").Validate())
}

func TestEqualMatchesUUIDEquality(t *testing.T) {
	t.Parallel()

	a := term.Literal("42", "http://www.w3.org/2001/XMLSchema#integer")
	b := term.Literal("42", "http://www.w3.org/2001/XMLSchema#integer")
	c := term.Literal("43", "http://www.w3.org/2001/XMLSchema#integer")

	require.True(t, a.Equal(b))
	require.Equal(t, a.UUID(), b.UUID())

	require.False(t, a.Equal(c))
	require.NotEqual(t, a.UUID(), c.UUID())
}
