package sqltranslate

import "github.com/accented-ai/quadsparql/internal/algebra"

// ResultShape tags what shape of result a Plan decodes rows into.
type ResultShape int

const (
	ShapeBindings ResultShape = iota
	ShapeBoolean
	ShapeTriples
)

// VarColumns names the SQL result columns carrying one variable's
// decoded text/datatype/lang/isURI facets, in the order sqlexec's
// row-decoding step expects them.
type VarColumns struct {
	Var      algebra.Var
	Text     string
	Datatype string
	Lang     string
	IsURI    string
}

// Plan tells sqlexec how to turn result rows back into RDF terms.
// For ShapeBindings it names one VarColumns group per projected
// variable, in projection order; for ShapeTriples (CONSTRUCT/DESCRIBE)
// it additionally carries the template so sqlexec can substitute each
// solution's bindings into it; for ShapeBoolean the plan is empty and
// sqlexec reads a single boolean column.
type Plan struct {
	Shape    ResultShape
	Vars     []VarColumns
	Template []algebra.TriplePattern
}
