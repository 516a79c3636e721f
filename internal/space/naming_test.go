package space_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accented-ai/quadsparql/internal/space"
)

func TestNewNamesBuildsExpectedTableNames(t *testing.T) {
	t.Parallel()

	names, err := space.NewNames("qs", "myspace")
	require.NoError(t, err)

	require.Equal(t, "myspace", names.SpaceID)
	require.Equal(t, "qs__myspace__", names.Prefix)
	require.Equal(t, "qs__myspace__term", names.Term)
	require.Equal(t, "qs__myspace__datatype", names.Datatype)
	require.Equal(t, "qs__myspace__rdf_quad", names.Quad)
	require.Equal(t, "qs__myspace__namespace", names.Namespace)
	require.Equal(t, "qs__myspace__graph", names.Graph)
}

func TestNewNamesRejectsInvalidGlobalPrefix(t *testing.T) {
	t.Parallel()

	_, err := space.NewNames("bad__prefix", "myspace")
	require.Error(t, err)
}

func TestNewNamesRejectsInvalidSpaceID(t *testing.T) {
	t.Parallel()

	_, err := space.NewNames("qs", "bad space")
	require.Error(t, err)
}
