// Package sqltranslate implements C6: translating one algebra.Node
// tree into a single parameterized SQL statement plus a projection
// plan describing how to decode its result rows back into RDF terms.
// Bound RDF terms translate directly to their deterministic UUIDv5
// identifier (internal/term.Term.UUID), so pattern matching never
// needs a join back to the term table — only expression evaluation
// (FILTER/BIND/ORDER BY/aggregates) and final projection need a
// variable's actual text/datatype/lang, which this translator fetches
// via correlated scalar subqueries against the term table rather than
// threading joins through every subquery boundary. That trade gives up
// some query-planner opportunity for a translator that stays
// tractable — the teacher's internal/generator makes the same kind of
// simplicity-over-cleverness call when assembling DDL fragments.
package sqltranslate

import (
	"fmt"

	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/space"
)

// Context carries per-translation state: table names, the parameter
// list being built, alias counters, and a budget guarding against
// runaway algebra trees (spec.md's QueryTooComplex case).
type Context struct {
	names space.Names

	args         []any
	aliasSeq     int
	cteSeq       int
	nodeBudget   int
	nodesSeen    int
	maxPathDepth int

	// ctes accumulates WITH RECURSIVE fragments emitted while
	// translating property paths; withCTEs prepends them to the
	// statement.
	ctes []string
}

// defaultMaxPathDepth mirrors config.go's own default so a Context
// built with maxPathDepth <= 0 (e.g. by older call sites or tests)
// still enforces spec.md §4.6.8's cycle-guard rather than recursing
// unbounded.
const defaultMaxPathDepth = 50

func NewContext(names space.Names, maxNodes, maxPathDepth int) *Context {
	if maxPathDepth <= 0 {
		maxPathDepth = defaultMaxPathDepth
	}

	return &Context{names: names, nodeBudget: maxNodes, maxPathDepth: maxPathDepth}
}

func (c *Context) bind(v any) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", len(c.args))
}

func (c *Context) nextAlias(prefix string) string {
	c.aliasSeq++
	return fmt.Sprintf("%s%d", prefix, c.aliasSeq)
}

func (c *Context) nextCTEName() string {
	c.cteSeq++
	return fmt.Sprintf("path_cte_%d", c.cteSeq)
}

func (c *Context) addCTE(def string) {
	c.ctes = append(c.ctes, def)
}

func (c *Context) charge() error {
	c.nodesSeen++
	if c.nodeBudget > 0 && c.nodesSeen > c.nodeBudget {
		return apperr.New(apperr.KindQueryTooComplex, "translate", "algebra tree exceeds node budget")
	}

	return nil
}

// Result is the final product of Translate: one SQL statement, its
// positional arguments, and the plan sqlexec uses to decode rows.
type Result struct {
	SQL  string
	Args []any
	Plan Plan
}

func (c *Context) withCTEs(body string) string {
	if len(c.ctes) == 0 {
		return body
	}

	out := "WITH RECURSIVE "

	for i, def := range c.ctes {
		if i > 0 {
			out += ", "
		}

		out += def
	}

	return out + " " + body
}
