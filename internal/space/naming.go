// Package space implements the Space Manager (C4): per-space table
// lifecycle (create/drop/reindex) and the identifier/prefix naming
// rule from spec.md §3. Table DDL is assembled the way the teacher's
// internal/generator assembles DDL fragments — one small builder per
// object kind, composed from vetted identifier building blocks, never
// from unvalidated user text.
package space

import (
	"fmt"

	"github.com/accented-ai/quadsparql/internal/config"
)

// Names is the fully qualified table-name set for one space, built
// from {global_prefix}__{space_id}__ as spec.md §3 specifies.
type Names struct {
	SpaceID string
	Prefix  string // e.g. "qs__myspace__"

	Term      string
	Datatype  string
	Quad      string
	Namespace string
	Graph     string
}

// NewNames validates spaceID and globalPrefix per spec.md §3 and
// builds the table-name set.
func NewNames(globalPrefix, spaceID string) (Names, error) {
	if err := config.ValidateIdentifier(globalPrefix); err != nil {
		return Names{}, err
	}

	if err := config.ValidateIdentifier(spaceID); err != nil {
		return Names{}, err
	}

	prefix := fmt.Sprintf("%s__%s__", globalPrefix, spaceID)

	return Names{
		SpaceID:   spaceID,
		Prefix:    prefix,
		Term:      prefix + "term",
		Datatype:  prefix + "datatype",
		Quad:      prefix + "rdf_quad",
		Namespace: prefix + "namespace",
		Graph:     prefix + "graph",
	}, nil
}
