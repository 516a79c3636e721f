package space

import (
	"fmt"
	"strings"
)

// seedDatatypes are the XSD primitives and rdf:langString seeded into
// every space's datatype registry at creation time (spec.md §3).
var seedDatatypes = []struct {
	id   int
	uri  string
	name string
}{
	{1, "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString", "rdf:langString"},
	{2, "http://www.w3.org/2001/XMLSchema#string", "xsd:string"},
	{3, "http://www.w3.org/2001/XMLSchema#integer", "xsd:integer"},
	{4, "http://www.w3.org/2001/XMLSchema#decimal", "xsd:decimal"},
	{5, "http://www.w3.org/2001/XMLSchema#double", "xsd:double"},
	{6, "http://www.w3.org/2001/XMLSchema#boolean", "xsd:boolean"},
	{7, "http://www.w3.org/2001/XMLSchema#dateTime", "xsd:dateTime"},
	{8, "http://www.w3.org/2001/XMLSchema#date", "xsd:date"},
	{9, "http://www.w3.org/2001/XMLSchema#anyURI", "xsd:anyURI"},
}

// createTableStatements returns the DDL for the five tables spec.md
// §6 lists, in dependency order (datatype before term, term before
// rdf_quad and graph).
func createTableStatements(n Names) []string {
	var stmts []string

	stmts = append(stmts, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			datatype_id   INT PRIMARY KEY,
			datatype_uri  TEXT UNIQUE NOT NULL,
			datatype_name TEXT
		)`, n.Datatype))

	stmts = append(stmts, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			term_uuid   UUID PRIMARY KEY,
			term_text   TEXT NOT NULL,
			term_type   CHAR(1) NOT NULL,
			lang        TEXT,
			datatype_id INT REFERENCES %s (datatype_id)
		)`, n.Term, n.Datatype))

	stmts = append(stmts, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			quad_uuid      UUID PRIMARY KEY,
			subject_uuid   UUID NOT NULL,
			predicate_uuid UUID NOT NULL,
			object_uuid    UUID NOT NULL,
			context_uuid   UUID NOT NULL,
			created_time   TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (subject_uuid, predicate_uuid, object_uuid, context_uuid)
		)`, n.Quad))

	stmts = append(stmts, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			prefix TEXT PRIMARY KEY,
			uri    TEXT NOT NULL
		)`, n.Namespace))

	stmts = append(stmts, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			context_uuid UUID PRIMARY KEY
		)`, n.Graph))

	return stmts
}

// indexStatements builds the composite indices spec.md §4.2 requires
// the translator to assume exist: (s,p,o,c), (p,o,c,s), (o,p,c,s),
// (c,p,s,o), (p,c,o).
func indexStatements(n Names, concurrently bool) []string {
	kw := ""
	if concurrently {
		kw = "CONCURRENTLY "
	}

	idx := func(suffix, cols string) string {
		name := n.Prefix + "quad_idx_" + suffix
		return fmt.Sprintf("CREATE INDEX %sIF NOT EXISTS %s ON %s (%s)", kw, name, n.Quad, cols)
	}

	return []string{
		idx("spoc", "subject_uuid, predicate_uuid, object_uuid, context_uuid"),
		idx("pocs", "predicate_uuid, object_uuid, context_uuid, subject_uuid"),
		idx("opcs", "object_uuid, predicate_uuid, context_uuid, subject_uuid"),
		idx("cpso", "context_uuid, predicate_uuid, subject_uuid, object_uuid"),
		idx("pco", "predicate_uuid, context_uuid, object_uuid"),
	}
}

// trigramIndexStatement is created only when pg_trgm is available
// (SPEC_FULL.md §4.2): a GIN index on term_text supporting
// CONTAINS/STRSTARTS/STRENDS/REGEX.
func trigramIndexStatement(n Names) string {
	name := n.Prefix + "term_text_trgm"

	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (term_text gin_trgm_ops)",
		name, n.Term)
}

func seedDatatypeStatement(n Names) (string, []any) {
	ids := make([]int, len(seedDatatypes))
	uris := make([]string, len(seedDatatypes))
	names := make([]string, len(seedDatatypes))

	for i, d := range seedDatatypes {
		ids[i], uris[i], names[i] = d.id, d.uri, d.name
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (datatype_id, datatype_uri, datatype_name)
		SELECT * FROM UNNEST($1::int[], $2::text[], $3::text[])
		ON CONFLICT (datatype_id) DO NOTHING`, n.Datatype)

	return query, []any{ids, uris, names}
}

// dropTableStatements drops all five tables belonging to the space,
// in reverse dependency order, with CASCADE so leftover FK-like
// application constraints never block the drop.
func dropTableStatements(n Names) []string {
	tables := []string{n.Graph, n.Namespace, n.Quad, n.Term, n.Datatype}

	stmts := make([]string, len(tables))
	for i, t := range tables {
		stmts[i] = fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", t)
	}

	return stmts
}

func dropIndexStatements(n Names) []string {
	suffixes := []string{"spoc", "pocs", "opcs", "cpso", "pco"}

	stmts := make([]string, 0, len(suffixes)+1)
	for _, s := range suffixes {
		stmts = append(stmts, fmt.Sprintf("DROP INDEX IF EXISTS %s", n.Prefix+"quad_idx_"+s))
	}

	stmts = append(stmts, fmt.Sprintf("DROP INDEX IF EXISTS %s", n.Prefix+"term_text_trgm"))

	return stmts
}

// spaceIDFromTableName extracts the space id from a table name of the
// form {prefix}__{spaceID}__rdf_quad, or returns ("", false) if
// tableName doesn't match that shape under globalPrefix.
func spaceIDFromTableName(globalPrefix, tableName string) (string, bool) {
	head := globalPrefix + "__"
	tail := "__rdf_quad"

	if !strings.HasPrefix(tableName, head) || !strings.HasSuffix(tableName, tail) {
		return "", false
	}

	return strings.TrimSuffix(strings.TrimPrefix(tableName, head), tail), true
}
