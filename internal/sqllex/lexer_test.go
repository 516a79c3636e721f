package sqllex_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accented-ai/quadsparql/internal/sqllex"
)

func TestTokenizeSimpleSelect(t *testing.T) {
	t.Parallel()

	tokens, err := sqllex.NewLexer(`SELECT id FROM t WHERE id = $1`).Tokenize()
	require.NoError(t, err)

	require.Equal(t, sqllex.TokenKeyword, tokens[0].Type)
	require.Equal(t, "SELECT", tokens[0].Literal)
	require.Equal(t, sqllex.TokenEOF, tokens[len(tokens)-1].Type)
}

func TestTokenizePositionalParam(t *testing.T) {
	t.Parallel()

	tokens, err := sqllex.NewLexer(`SELECT $1, $12`).Tokenize()
	require.NoError(t, err)

	var params []string

	for _, tok := range tokens {
		if tok.Type == sqllex.TokenOperator && len(tok.Literal) > 1 && tok.Literal[0] == '$' {
			params = append(params, tok.Literal)
		}
	}

	require.Equal(t, []string{"$1", "$12"}, params)
}

func TestTokenizeDollarQuotedString(t *testing.T) {
	t.Parallel()

	tokens, err := sqllex.NewLexer(`SELECT $$hello world$$`).Tokenize()
	require.NoError(t, err)

	found := false

	for _, tok := range tokens {
		if tok.Type == sqllex.TokenString && tok.Literal == "$$hello world$$" {
			found = true
		}
	}

	require.True(t, found)
}

func TestTokenizeSkipsComments(t *testing.T) {
	t.Parallel()

	tokens, err := sqllex.NewLexer("SELECT 1 -- trailing comment\n/* block */ FROM t").Tokenize()
	require.NoError(t, err)

	for _, tok := range tokens {
		require.NotContains(t, tok.Literal, "comment")
		require.NotContains(t, tok.Literal, "block")
	}
}

func TestTokenizeQuotedIdentifier(t *testing.T) {
	t.Parallel()

	tokens, err := sqllex.NewLexer(`SELECT "weird col" FROM t`).Tokenize()
	require.NoError(t, err)

	require.Equal(t, sqllex.TokenQuotedIdentifier, tokens[1].Type)
}
