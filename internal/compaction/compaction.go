// Package compaction documents, without implementing, the term
// reference-counting and reclamation policy spec.md §4.2 allows a
// "background compaction task" to perform after quad deletion.
//
// internal/quadstore never deletes or reference-counts terms: deleting
// a quad only removes its row from the quad table, even if no other
// quad references the terms it named. A space's term table is
// therefore append-only and can only grow. This is a deliberate,
// recorded non-implementation (see DESIGN.md's Open Question
// decisions), not a half-built feature — nothing in this package is
// wired into any operation.
//
// A future compaction pass would, per quad deletion, decrement a
// reference count per term and, on reaching zero, remove the term row
// (and its now-orphaned datatype/namespace registrations) in a
// dedicated sweep separate from the delete transaction itself, since
// reference counting every delete inline would serialize writers
// against the term table for no correctness benefit.
package compaction
