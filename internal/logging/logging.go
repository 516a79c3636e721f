// Package logging threads a structured logger through every
// component. The core library only logs at component boundaries
// (space lifecycle, query/update start and finish); it never logs on
// a per-row or per-term basis.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/accented-ai/quadsparql/internal/algebra"
)

// Logger is the narrow interface components depend on; its methods
// return zerolog events, and tests use Nop() for a discarding logger.
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	With() zerolog.Context
}

type logger struct {
	zerolog.Logger
}

func (l logger) Debug() *zerolog.Event { return l.Logger.Debug() }
func (l logger) Info() *zerolog.Event  { return l.Logger.Info() }
func (l logger) Warn() *zerolog.Event  { return l.Logger.Warn() }
func (l logger) Error() *zerolog.Event { return l.Logger.Error() }
func (l logger) With() zerolog.Context { return l.Logger.With() }

// New builds a console-friendly logger writing to w at the given
// level (one of zerolog's level strings: "debug", "info", "warn",
// "error", "disabled").
func New(w io.Writer, level string) Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return logger{Logger: zl}
}

// Nop returns a logger that discards everything, for tests and
// library callers that don't want quadsparql writing to stderr.
func Nop() Logger {
	return logger{Logger: zerolog.New(io.Discard)}
}

// Default is a stderr logger at info level, used when a caller of the
// core API does not supply one.
func Default() Logger {
	return New(os.Stderr, "info")
}

// LogAlgebra dumps op's algebra tree at debug level, in the spirit of
// vitalgraph's VitalSparql.log_parse_tree: a readable outline for
// operational debugging, never consulted by any component for
// correctness. The tree is only rendered when debug logging is
// actually enabled, so a disabled logger pays no tree-walk cost.
func LogAlgebra(log Logger, op string, root algebra.Node) {
	event := log.Debug()
	if !event.Enabled() {
		return
	}

	var b strings.Builder

	describeNode(&b, root, 0)
	event.Str("op", op).Str("algebra", b.String()).Msg("algebra tree")
}

func describeNode(b *strings.Builder, n algebra.Node, depth int) {
	if n == nil {
		return
	}

	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.Kind().String())
	b.WriteByte('\n')

	for _, child := range algebraChildren(n) {
		describeNode(b, child, depth+1)
	}
}

// algebraChildren returns n's direct algebra.Node children, skipping
// leaf fields (patterns, expressions, term lists) that don't carry
// further tree structure worth outlining.
func algebraChildren(n algebra.Node) []algebra.Node { //nolint:cyclop
	switch v := n.(type) {
	case *algebra.Join:
		return []algebra.Node{v.Left, v.Right}
	case *algebra.LeftJoin:
		return []algebra.Node{v.Left, v.Right}
	case *algebra.Union:
		return []algebra.Node{v.Left, v.Right}
	case *algebra.Minus:
		return []algebra.Node{v.Left, v.Right}
	case *algebra.Filter:
		return []algebra.Node{v.Input}
	case *algebra.Extend:
		return []algebra.Node{v.Input}
	case *algebra.Project:
		return []algebra.Node{v.Input}
	case *algebra.Distinct:
		return []algebra.Node{v.Input}
	case *algebra.Reduced:
		return []algebra.Node{v.Input}
	case *algebra.OrderBy:
		return []algebra.Node{v.Input}
	case *algebra.Slice:
		return []algebra.Node{v.Input}
	case *algebra.Group:
		return []algebra.Node{v.Input}
	case *algebra.Graph:
		return []algebra.Node{v.Input}
	case *algebra.Construct:
		return []algebra.Node{v.Where}
	case *algebra.Ask:
		return []algebra.Node{v.Where}
	case *algebra.Describe:
		return []algebra.Node{v.Where}
	default:
		return nil
	}
}
