package algebra_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accented-ai/quadsparql/internal/algebra"
)

func TestVarTermIsVariable(t *testing.T) {
	t.Parallel()

	v := algebra.VarTerm("x")
	require.True(t, v.IsVariable())
	require.Equal(t, algebra.Var("x"), v.Variable)
}

func TestBoundTermIsNotVariable(t *testing.T) {
	t.Parallel()

	b := algebra.BoundTerm(algebra.TermValue{Kind: 'U', Text: "http://example.org/x"})
	require.False(t, b.IsVariable())
	require.Equal(t, "http://example.org/x", b.Bound.Text)
}

func TestNodeKindStringNamesKnownKinds(t *testing.T) {
	t.Parallel()

	cases := map[algebra.NodeKind]string{
		algebra.KindBGP:       "BGP",
		algebra.KindJoin:      "Join",
		algebra.KindProject:   "Project",
		algebra.KindAsk:       "Ask",
		algebra.KindConstruct: "Construct",
		algebra.KindDescribe:  "Describe",
	}

	for kind, want := range cases {
		require.Equal(t, want, kind.String())
	}
}

func TestNodeKindStringUnknownDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Unknown", algebra.NodeKind(9999).String())
}
