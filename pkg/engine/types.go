package engine

import (
	"github.com/accented-ai/quadsparql/internal/algebra"
	"github.com/accented-ai/quadsparql/internal/quadstore"
	"github.com/accented-ai/quadsparql/internal/sqlexec"
	"github.com/accented-ai/quadsparql/internal/term"
)

// QueryOptions lets a caller override the space's configured limits
// for a single ExecuteQuery call; a zero value uses the engine's
// configured defaults.
type QueryOptions struct {
	TimeoutMS int
	MaxRows   int
}

// QueryResult is ExecuteQuery's return value. Exactly one of Rows,
// Triples, or Boolean (when BooleanSet) is populated, matching the
// query form that produced it (SELECT, CONSTRUCT/DESCRIBE, or ASK). A
// DESCRIBE with a WHERE clause populates Rows with the described
// resources' bindings rather than Triples.
type QueryResult struct {
	Rows       []sqlexec.Row
	Triples    []quadstore.Quad
	Boolean    bool
	BooleanSet bool
	Truncated  bool
}

// Row re-exports sqlexec.Row so callers never need to import
// internal/sqlexec directly.
type Row = sqlexec.Row

// Var re-exports algebra.Var for the same reason.
type Var = algebra.Var

// Term re-exports term.Term for the same reason.
type Term = term.Term

// Quad re-exports quadstore.Quad for the same reason.
type Quad = quadstore.Quad
