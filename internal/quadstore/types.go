// Package quadstore implements the Quad Store (C2): bulk insert,
// pattern delete, and pattern scan/count against a space's rdf_quad
// table.
package quadstore

import (
	"time"

	"github.com/google/uuid"

	"github.com/accented-ai/quadsparql/internal/term"
)

// Quad is an RDF statement at the API boundary, carrying full terms.
type Quad struct {
	Subject   term.Term
	Predicate term.Term
	Object    term.Term
	Context   term.Term
}

// UUIDQuad is the internal, interned representation stored in
// rdf_quad.
type UUIDQuad struct {
	Subject     uuid.UUID
	Predicate   uuid.UUID
	Object      uuid.UUID
	Context     uuid.UUID
	QuadUUID    uuid.UUID
	CreatedTime time.Time
}

// Pattern selects quads by position; a nil field means that position
// is unbound (spec.md §4.2).
type Pattern struct {
	Subject   *uuid.UUID
	Predicate *uuid.UUID
	Object    *uuid.UUID
	Context   *uuid.UUID
}

// QuadUUID derives the content-addressed quad_uuid from its four term
// UUIDs, deterministically and order-sensitively, the same way
// term.Term.UUID derives from term content. Exported so
// internal/updateplan can compute matching quad_uuids when it writes
// through its own transaction-scoped SQL instead of through Store.
func QuadUUID(s, p, o, c uuid.UUID) uuid.UUID {
	var buf []byte

	buf = append(buf, s[:]...)
	buf = append(buf, p[:]...)
	buf = append(buf, o[:]...)
	buf = append(buf, c[:]...)

	return uuid.NewSHA1(namespaceUUID, buf)
}

var namespaceUUID = uuid.MustParse("9b6e6a0a-2f6d-4a7e-8b1e-2a6c5d9e7f10")
