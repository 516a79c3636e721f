// Package term implements the Term Registry (C1): deterministic
// RDF-term-to-UUID mapping, an LRU cache in both directions, and
// batch interning against the per-space term table.
package term

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind is the RDF term kind, matching the CHAR(1) term_type column.
type Kind byte

const (
	KindURI     Kind = 'U'
	KindLiteral Kind = 'L'
	KindBlank   Kind = 'B'
)

func (k Kind) String() string {
	switch k {
	case KindURI:
		return "URI"
	case KindLiteral:
		return "Literal"
	case KindBlank:
		return "Blank"
	default:
		return fmt.Sprintf("Kind(%q)", byte(k))
	}
}

// Well-known datatype URIs seeded into every space's datatype
// registry at creation time (spec.md §3).
const (
	XSDString    = "http://www.w3.org/2001/XMLSchema#string"
	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
)

// Term is the in-memory discriminated RDF value. Kind decides which
// other fields are meaningful:
//   - KindURI / KindBlank: Text only.
//   - KindLiteral, no Lang: Text + DatatypeURI (defaults to
//     XSDString if empty).
//   - KindLiteral, with Lang: Text + Lang, DatatypeURI forced to
//     RDFLangString.
type Term struct {
	Kind        Kind
	Text        string
	Lang        string
	DatatypeURI string
}

// URI builds a URI term.
func URI(text string) Term { return Term{Kind: KindURI, Text: text} }

// Blank builds a blank-node term.
func Blank(text string) Term { return Term{Kind: KindBlank, Text: text} }

// Literal builds a plain or typed literal term.
func Literal(text, datatypeURI string) Term {
	if datatypeURI == "" {
		datatypeURI = XSDString
	}

	return Term{Kind: KindLiteral, Text: text, DatatypeURI: datatypeURI}
}

// LangLiteral builds a language-tagged literal term.
func LangLiteral(text, lang string) Term {
	return Term{Kind: KindLiteral, Text: text, Lang: lang, DatatypeURI: RDFLangString}
}

// Validate enforces the InvalidTerm cases in spec.md §4.1: a
// lang-tagged literal must not also carry an explicit non-langString
// datatype, and only literals may carry a lang or datatype at all.
func (t Term) Validate() error {
	switch t.Kind {
	case KindURI, KindBlank:
		if t.Lang != "" || t.DatatypeURI != "" {
			return fmt.Errorf("%s term %q must not carry lang or datatype", t.Kind, t.Text)
		}
	case KindLiteral:
		if t.Lang != "" && t.DatatypeURI != "" && t.DatatypeURI != RDFLangString {
			return fmt.Errorf("literal %q has lang %q and non-langString datatype %q", t.Text, t.Lang, t.DatatypeURI)
		}
	default:
		return fmt.Errorf("unknown term kind %q", byte(t.Kind))
	}

	return nil
}

// namespaceUUID is the fixed UUIDv5 namespace every term UUID is
// derived under (spec.md §3: "UUID v5 over a fixed namespace").
var namespaceUUID = uuid.MustParse("6f1d3b7e-6b0a-4c2e-9a2b-2f6a8b5e2d41")

// UUID deterministically derives the term's UUID from
// (text, kind, lang?, datatype URI?) per spec.md §3. Equality of terms
// implies equality of UUIDs and vice versa, since the byte encoding
// is injective over the four fields (each is length-prefixed).
func (t Term) UUID() uuid.UUID {
	var buf []byte

	buf = append(buf, byte(t.Kind))
	buf = appendLP(buf, t.Text)
	buf = appendLP(buf, t.Lang)
	buf = appendLP(buf, t.DatatypeURI)

	return uuid.NewSHA1(namespaceUUID, buf)
}

func appendLP(buf []byte, s string) []byte {
	n := len(s)
	buf = append(buf, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))

	return append(buf, s...)
}

// Equal reports structural equality, which by the UUID contract is
// equivalent to UUID equality.
func (t Term) Equal(other Term) bool {
	return t.Kind == other.Kind && t.Text == other.Text && t.Lang == other.Lang && t.DatatypeURI == other.DatatypeURI
}
