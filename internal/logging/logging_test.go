package logging_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/logging"
)

func TestLogAlgebraWritesTreeOutlineAtDebugLevel(t *testing.T) {
	t.Parallel()

	var buf strings.Builder

	log := logging.New(&buf, "debug")

	tree := &algebra.Project{
		Vars: []algebra.Var{"s"},
		Input: &algebra.Filter{
			Input: &algebra.BGP{},
		},
	}

	logging.LogAlgebra(log, "query", tree)

	out := buf.String()
	require.Contains(t, out, "Project")
	require.Contains(t, out, "Filter")
	require.Contains(t, out, "BGP")
}

func TestLogAlgebraSkipsTreeWalkWhenDisabled(t *testing.T) {
	t.Parallel()

	var buf strings.Builder

	log := logging.New(&buf, "disabled")

	logging.LogAlgebra(log, "query", &algebra.BGP{})

	require.Empty(t, buf.String())
}

func TestNopDiscardsEverything(t *testing.T) {
	t.Parallel()

	log := logging.Nop()
	log.Info().Msg("should not panic or write anywhere visible")
}
