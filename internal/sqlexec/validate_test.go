package sqlexec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accented-ai/quadsparql/internal/sqlexec"
)

func TestValidateAcceptsPlainSelect(t *testing.T) {
	t.Parallel()

	err := sqlexec.Validate(`SELECT q.subject_uuid FROM qs__demo__rdf_quad q WHERE q.predicate_uuid = $1`)
	require.NoError(t, err)
}

func TestValidateAcceptsSingleTrailingSemicolon(t *testing.T) {
	t.Parallel()

	err := sqlexec.Validate(`SELECT 1;`)
	require.NoError(t, err)
}

func TestValidateAcceptsWithRecursive(t *testing.T) {
	t.Parallel()

	err := sqlexec.Validate(`WITH RECURSIVE path_cte_1 AS (SELECT 1) SELECT * FROM path_cte_1`)
	require.NoError(t, err)
}

func TestValidateRejectsMultipleStatements(t *testing.T) {
	t.Parallel()

	err := sqlexec.Validate(`SELECT 1; DROP TABLE qs__demo__rdf_quad;`)
	require.Error(t, err)
}

func TestValidateRejectsDenyListedKeyword(t *testing.T) {
	t.Parallel()

	for _, sql := range []string{
		`DELETE FROM qs__demo__rdf_quad`,
		`INSERT INTO qs__demo__rdf_quad VALUES (1)`,
		`DROP TABLE qs__demo__rdf_quad`,
		`TRUNCATE qs__demo__rdf_quad`,
	} {
		require.Error(t, sqlexec.Validate(sql), "expected %q to be rejected", sql)
	}
}
