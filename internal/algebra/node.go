// Package algebra defines the SPARQL 1.1 algebra tree that
// internal/sparqlparse produces and internal/sqltranslate consumes.
// Every node carries a NodeKind tag and the translator dispatches on
// it with a single type switch, the way the teacher's internal/parser
// tags every SQL statement with a StatementType and dispatches in one
// switch rather than modeling each statement as its own subclass.
package algebra

// NodeKind tags every algebra node so callers can type-switch without
// reflection.
type NodeKind int

const (
	KindUnknown NodeKind = iota
	KindBGP
	KindJoin
	KindLeftJoin
	KindUnion
	KindMinus
	KindFilter
	KindExtend
	KindProject
	KindDistinct
	KindReduced
	KindOrderBy
	KindSlice
	KindGroup
	KindValues
	KindGraph
	KindPath
	KindZeroOrMore
	KindOneOrMore
	KindZeroOrOne
	KindAlternative
	KindSequence
	KindInverse
	KindNegatedPropSet
	KindConstruct
	KindAsk
	KindDescribe
)

func (k NodeKind) String() string {
	switch k {
	case KindBGP:
		return "BGP"
	case KindJoin:
		return "Join"
	case KindLeftJoin:
		return "LeftJoin"
	case KindUnion:
		return "Union"
	case KindMinus:
		return "Minus"
	case KindFilter:
		return "Filter"
	case KindExtend:
		return "Extend"
	case KindProject:
		return "Project"
	case KindDistinct:
		return "Distinct"
	case KindReduced:
		return "Reduced"
	case KindOrderBy:
		return "OrderBy"
	case KindSlice:
		return "Slice"
	case KindGroup:
		return "Group"
	case KindValues:
		return "Values"
	case KindGraph:
		return "Graph"
	case KindPath, KindZeroOrMore, KindOneOrMore, KindZeroOrOne, KindAlternative, KindSequence, KindInverse, KindNegatedPropSet:
		return "Path"
	case KindConstruct:
		return "Construct"
	case KindAsk:
		return "Ask"
	case KindDescribe:
		return "Describe"
	default:
		return "Unknown"
	}
}

// Node is any node in the algebra tree. Kind reports which concrete
// type the caller should assert to.
type Node interface {
	Kind() NodeKind
}

// Var is a SPARQL variable reference, e.g. ?name without the sigil.
type Var string

// Term is either a bound RDF term or an unbound variable slot in a
// triple/path pattern.
type Term struct {
	Variable Var // empty if Bound
	Bound    *TermValue
}

func VarTerm(v Var) Term { return Term{Variable: v} }

func BoundTerm(tv TermValue) Term { return Term{Bound: &tv} }

func (t Term) IsVariable() bool { return t.Bound == nil }

// TermValue mirrors internal/term.Term's shape without importing that
// package, so algebra stays free of any storage dependency.
type TermValue struct {
	Kind        byte // 'U', 'L', 'B' per internal/term.Kind
	Text        string
	Lang        string
	DatatypeURI string
}

// Triple is one triple pattern inside a BGP.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// BGP is a Basic Graph Pattern: a conjunction of triple patterns
// evaluated against one active graph.
type BGP struct {
	Triples []Triple
}

func (*BGP) Kind() NodeKind { return KindBGP }

// Join is the inner join of two sub-patterns (implicit in SPARQL
// `{ P1 P2 }`).
type Join struct {
	Left, Right Node
}

func (*Join) Kind() NodeKind { return KindJoin }

// LeftJoin is SPARQL OPTIONAL: Left extended with Right's bindings
// where they join, subject to an optional Filter expression.
type LeftJoin struct {
	Left, Right Node
	Filter      Expr // nil if no FILTER inside the OPTIONAL
}

func (*LeftJoin) Kind() NodeKind { return KindLeftJoin }

// Union is SPARQL UNION: the bag union of both sub-patterns' results.
type Union struct {
	Left, Right Node
}

func (*Union) Kind() NodeKind { return KindUnion }

// Minus is SPARQL MINUS: Left rows whose bound-variable overlap with
// any Right row is empty or mismatched.
type Minus struct {
	Left, Right Node
}

func (*Minus) Kind() NodeKind { return KindMinus }

// Filter restricts Input to rows where Expr evaluates to effective
// true.
type Filter struct {
	Input Node
	Expr  Expr
}

func (*Filter) Kind() NodeKind { return KindFilter }

// Extend is SPARQL BIND: adds a new binding for Var computed from
// Expr over each row of Input.
type Extend struct {
	Input Node
	Var   Var
	Expr  Expr
}

func (*Extend) Kind() NodeKind { return KindExtend }

// Project restricts the result's visible columns to Vars, in order.
type Project struct {
	Input Node
	Vars  []Var
}

func (*Project) Kind() NodeKind { return KindProject }

// Distinct deduplicates rows of Input (SPARQL DISTINCT).
type Distinct struct {
	Input Node
}

func (*Distinct) Kind() NodeKind { return KindDistinct }

// Reduced permits but does not require deduplication (SPARQL REDUCED).
// The translator treats it identically to Distinct, since permitting
// duplicate suppression is always a legal implementation choice.
type Reduced struct {
	Input Node
}

func (*Reduced) Kind() NodeKind { return KindReduced }

// SortCondition is one ORDER BY key.
type SortCondition struct {
	Expr       Expr
	Descending bool
}

// OrderBy sorts Input's rows by Conditions in order.
type OrderBy struct {
	Input      Node
	Conditions []SortCondition
}

func (*OrderBy) Kind() NodeKind { return KindOrderBy }

// Slice implements LIMIT/OFFSET. Limit < 0 means unbounded.
type Slice struct {
	Input  Node
	Offset int64
	Limit  int64
}

func (*Slice) Kind() NodeKind { return KindSlice }

// Aggregate is one aggregate projection inside a Group, e.g.
// COUNT(?x) AS ?c.
type Aggregate struct {
	Func     AggFunc
	Expr     Expr // nil for COUNT(*)
	Distinct bool
	As       Var
}

type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggSample
	AggGroupConcat
)

// Group implements SPARQL's implicit or explicit GROUP BY together
// with the aggregate projections computed per group.
type Group struct {
	Input      Node
	By         []Expr
	Aggregates []Aggregate
}

func (*Group) Kind() NodeKind { return KindGroup }

// ValuesRow is one row of bindings in a VALUES clause or inline data
// block; a nil entry for a variable means UNDEF.
type ValuesRow map[Var]*TermValue

// Values is SPARQL VALUES / inline data.
type Values struct {
	Vars Var
	Rows []ValuesRow
}

func (*Values) Kind() NodeKind { return KindValues }

// Graph scopes Input to one named-graph context, which may itself be
// a bound IRI or a variable ranging over all known graphs.
type Graph struct {
	Context Term
	Input   Node
}

func (*Graph) Kind() NodeKind { return KindGraph }

// Path is a property-path triple pattern: Subject Path Object.
type Path struct {
	Subject Term
	Path    PathExpr
	Object  Term
}

func (*Path) Kind() NodeKind { return KindPath }

// PathExpr is a SPARQL 1.1 property path expression.
type PathExpr interface {
	pathKind() NodeKind
}

// PathPredicate is a single IRI traversed directly (the base case of
// every path expression).
type PathPredicate struct {
	IRI string
}

func (PathPredicate) pathKind() NodeKind { return KindPath }

// PathInverse is ^path.
type PathInverse struct {
	Path PathExpr
}

func (PathInverse) pathKind() NodeKind { return KindInverse }

// PathSequence is path1/path2.
type PathSequence struct {
	Left, Right PathExpr
}

func (PathSequence) pathKind() NodeKind { return KindSequence }

// PathAlternative is path1|path2.
type PathAlternative struct {
	Left, Right PathExpr
}

func (PathAlternative) pathKind() NodeKind { return KindAlternative }

// PathZeroOrMore is path*, evaluated with a recursive CTE.
type PathZeroOrMore struct {
	Path PathExpr
}

func (PathZeroOrMore) pathKind() NodeKind { return KindZeroOrMore }

// PathOneOrMore is path+, evaluated with a recursive CTE.
type PathOneOrMore struct {
	Path PathExpr
}

func (PathOneOrMore) pathKind() NodeKind { return KindOneOrMore }

// PathZeroOrOne is path?.
type PathZeroOrOne struct {
	Path PathExpr
}

func (PathZeroOrOne) pathKind() NodeKind { return KindZeroOrOne }

// PathNegatedPropertySet is !(iri1|...|irin), optionally with inverse
// members (^iri).
type PathNegatedPropertySet struct {
	IRIs        []string
	InverseIRIs []string
}

func (PathNegatedPropertySet) pathKind() NodeKind { return KindNegatedPropSet }

// TriplePattern is a CONSTRUCT template triple: like Triple, but
// blank-node labels scope per solution rather than referring to
// stored blank nodes.
type TriplePattern = Triple

// Construct wraps a WHERE pattern with a CONSTRUCT template.
type Construct struct {
	Template []TriplePattern
	Where    Node
}

func (*Construct) Kind() NodeKind { return KindConstruct }

// Ask wraps a WHERE pattern whose only observable result is whether
// it has any solution.
type Ask struct {
	Where Node
}

func (*Ask) Kind() NodeKind { return KindAsk }

// Describe names the resources a DESCRIBE query should expand, either
// as bound IRIs or variables bound by Where.
type Describe struct {
	Resources []Term
	Where     Node // nil if DESCRIBE names only bound IRIs
}

func (*Describe) Kind() NodeKind { return KindDescribe }
