package docql

import (
	"sync/atomic"

	"github.com/kartikbazzad/bunbase/docql/datum"
)

// TermType tags a node in the term tree, serialized as the first element of
// the term's [term_type, args, optargs] array form.
type TermType int

const (
	termDatum TermType = iota + 1
	termMakeArray
	termMakeObject
	termVar
	termFunc
	termFuncall
	termBranch
	termAdd
	termSub
	termMul
	termDiv
	termMod
	termEq
	termNe
	termLt
	termLe
	termGt
	termGe
	termNot
	termAnd
	termOr
	termGetField
	termRow // implicit variable (the innermost enclosing Func's sole argument)
	termDB
	termTable
	termGet
	termInsert
	termUpdate
	termDelete
	termFilter
	termMap
	termRange
	termCount
	termLimit
	termSkip
	termOrderBy
	termBetween
	termBinary
)

// globalVarID hands out the ids bound by every Func/Var in the process, so
// two independently-built terms never collide when grafted into one query.
var globalVarID atomic.Uint64

func freshVarID() uint64 {
	return globalVarID.Add(1)
}

// Query is one node of the term tree queries are built from. Values are
// immutable once constructed; every combinator returns a new Query.
type Query struct {
	termType TermType
	args     []Query
	optargs  map[string]Query

	datumVal datum.Datum // valid only when termType == termDatum
	varID    uint64      // valid only when termType == termVar

	// freeVars is the set of variable ids that occur unbound within this
	// term — i.e. referenced but not bound by a termFunc inside it. Graft
	// does not consult it: it renames every bound id unconditionally.
	freeVars map[uint64]struct{}
}

// Var is a query referencing a previously-bound variable by id. Used
// internally by Func and FuncWrap; direct callers normally have no reason
// to construct one, since FuncWrap hands the bound Query values straight
// to the closure it wraps.
func Var(id uint64) Query {
	return Query{termType: termVar, varID: id, freeVars: map[uint64]struct{}{id: {}}}
}

// newTerm builds a term node and computes its free-variable set as the
// union of its children's free variables (args then optargs), since only
// termFunc removes ids from that union.
func newTerm(t TermType, args []Query, optargs map[string]Query) Query {
	fv := map[uint64]struct{}{}
	for _, a := range args {
		for id := range a.freeVars {
			fv[id] = struct{}{}
		}
	}
	for _, a := range optargs {
		for id := range a.freeVars {
			fv[id] = struct{}{}
		}
	}
	return Query{termType: t, args: args, optargs: optargs, freeVars: fv}
}

// Func builds a termFunc binding params (Query values produced by Var, with
// fresh ids from NewFuncParams) over body. It is the alpha-renaming
// boundary: the ids it binds are removed from the resulting term's
// free-variable set, so a Func built this way can be grafted anywhere
// without its parameters ever being captured by an enclosing binder —
// every id handed out by freshVarID is globally unique for the life of the
// process, so no two independently built Funcs ever share one.
func Func(params []Query, body Query) Query {
	ids := make([]Query, len(params))
	bound := make(map[uint64]struct{}, len(params))
	for i, p := range params {
		ids[i] = Datum(float64(p.varID))
		bound[p.varID] = struct{}{}
	}
	t := newTerm(termFunc, []Query{newTerm(termMakeArray, ids, nil), body}, nil)
	for id := range bound {
		delete(t.freeVars, id)
	}
	return t
}

// NewFuncParams allocates n fresh bound variables for use as a Func's
// parameter list.
func NewFuncParams(n int) []Query {
	out := make([]Query, n)
	for i := range out {
		out[i] = Var(freshVarID())
	}
	return out
}

// FuncWrap lifts a Go closure of arity n into a term-tree Func, allocating
// fresh bound variables and calling fn with Query handles for them. This is
// the "func_wrap" construction every combinator taking a predicate or
// mapping function goes through (Filter, Map, OrderBy's key function, ...).
func FuncWrap(n int, fn func(args []Query) Query) Query {
	params := NewFuncParams(n)
	return Func(params, fn(params))
}

// Graft renames every bound variable in q to a fresh id, consistently
// substituting matching free references, and returns the alpha-equivalent
// copy. Combinators that accept an already-built Query value as a
// sub-expression (rather than constructing it themselves via FuncWrap) call
// Graft on it first, so reusing the same predicate Query as an argument in
// two different places of one larger query can never let one occurrence's
// bound variables shadow the other's.
func Graft(q Query) Query {
	sub := map[uint64]uint64{}
	return graftWith(q, sub)
}

func graftWith(q Query, sub map[uint64]uint64) Query {
	out := q
	if q.termType == termVar {
		if newID, ok := sub[q.varID]; ok {
			out.varID = newID
			out.freeVars = map[uint64]struct{}{newID: {}}
		}
		return out
	}

	if q.termType == termFunc {
		// The first arg is MAKE_ARRAY of DATUM var ids; allocate a fresh id
		// per bound var and extend sub before recursing into the body.
		paramsTerm := q.args[0]
		newParams := make([]Query, len(paramsTerm.args))
		newIDs := make(map[uint64]struct{}, len(paramsTerm.args))
		for i, p := range paramsTerm.args {
			n, _ := p.datumVal.GetNumber()
			oldID := uint64(n)
			newID := freshVarID()
			sub[oldID] = newID
			newIDs[newID] = struct{}{}
			newParams[i] = Datum(float64(newID))
		}
		newBody := graftWith(q.args[1], sub)
		t := newTerm(termFunc, []Query{newTerm(termMakeArray, newParams, nil), newBody}, nil)
		for id := range newIDs {
			delete(t.freeVars, id)
		}
		return t
	}

	newArgs := make([]Query, len(q.args))
	for i, a := range q.args {
		newArgs[i] = graftWith(a, sub)
	}
	var newOptargs map[string]Query
	if q.optargs != nil {
		newOptargs = make(map[string]Query, len(q.optargs))
		for k, a := range q.optargs {
			newOptargs[k] = graftWith(a, sub)
		}
	}
	out = newTerm(q.termType, newArgs, newOptargs)
	out.datumVal = q.datumVal
	return out
}
