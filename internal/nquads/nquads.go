// Package nquads serializes quadstore.Quad values to the N-Quads line
// format (one statement per line: subject predicate object graph .),
// shared by CONSTRUCT/DESCRIBE result rendering and the dump CLI
// subcommand's administrative scan.
package nquads

import (
	"fmt"
	"io"
	"strings"

	"github.com/accented-ai/quadsparql/internal/graphcat"
	"github.com/accented-ai/quadsparql/internal/quadstore"
	"github.com/accented-ai/quadsparql/internal/term"
)

// Format renders one quad as an N-Quads statement line, including its
// trailing " .\n". The default graph is omitted from the line (plain
// N-Triples shape), matching how most consumers expect the unnamed
// graph to be written.
func Format(q quadstore.Quad) string {
	var b strings.Builder

	writeTerm(&b, q.Subject)
	b.WriteByte(' ')
	writeTerm(&b, q.Predicate)
	b.WriteByte(' ')
	writeTerm(&b, q.Object)

	if q.Context.Kind == term.KindURI && q.Context.Text != "" && q.Context.Text != graphcat.DefaultGraphURI {
		b.WriteByte(' ')
		writeTerm(&b, q.Context)
	}

	b.WriteString(" .\n")

	return b.String()
}

// Encode writes every quad in quads to w as N-Quads, in order.
func Encode(w io.Writer, quads []quadstore.Quad) error {
	for _, q := range quads {
		if _, err := io.WriteString(w, Format(q)); err != nil {
			return err
		}
	}

	return nil
}

func writeTerm(b *strings.Builder, t term.Term) {
	switch t.Kind {
	case term.KindURI:
		b.WriteByte('<')
		b.WriteString(escapeIRI(t.Text))
		b.WriteByte('>')
	case term.KindBlank:
		b.WriteString("_:")
		b.WriteString(t.Text)
	case term.KindLiteral:
		b.WriteByte('"')
		b.WriteString(escapeLiteral(t.Text))
		b.WriteByte('"')

		switch {
		case t.Lang != "":
			b.WriteByte('@')
			b.WriteString(t.Lang)
		case t.DatatypeURI != "" && t.DatatypeURI != term.XSDString:
			b.WriteString("^^<")
			b.WriteString(escapeIRI(t.DatatypeURI))
			b.WriteByte('>')
		}
	default:
		fmt.Fprintf(b, "<urn:invalid-term-kind:%q>", byte(t.Kind))
	}
}

func escapeIRI(s string) string {
	r := strings.NewReplacer("\\", "\\\\", ">", "\\>", " ", "%20")
	return r.Replace(s)
}

func escapeLiteral(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", "\\n",
		"\r", "\\r",
		"\t", "\\t",
	)

	return r.Replace(s)
}
