package docql

import (
	"github.com/kartikbazzad/bunbase/docql/datum"
)

// Datum lifts a Go value into a literal term, converting it via
// datum.FromAny. Panics on an unconvertible value — literal query
// arguments are a programming-time concern, not a runtime one, matching
// datum.MustFromAny's documented use.
func Datum(v any) Query {
	return Query{termType: termDatum, datumVal: datum.MustFromAny(v), freeVars: map[uint64]struct{}{}}
}

// Expr is an alias for Datum kept for call sites that read more naturally
// as "wrap this Go value as a query expression" than "build a literal".
func Expr(v any) Query { return Datum(v) }

// MakeArray builds a termMakeArray from already-constructed Query elements.
func MakeArray(elems ...Query) Query {
	return newTerm(termMakeArray, elems, nil)
}

// MakeObject builds a termMakeObject from a field name -> Query map.
func MakeObject(fields map[string]Query) Query {
	return newTerm(termMakeObject, nil, fields)
}

// Row refers to the sole argument of the innermost enclosing Func — the
// common case for one-argument predicates, so callers can write
// Row().Field("age").Gt(18) instead of threading an explicit parameter
// through FuncWrap.
func Row() Query {
	return newTerm(termRow, nil, nil)
}

// Opt builds the key/value pairs passed as a term's optargs, wrapping each
// Go value via Datum.
func Opt(pairs map[string]any) map[string]Query {
	out := make(map[string]Query, len(pairs))
	for k, v := range pairs {
		out[k] = Datum(v)
	}
	return out
}

// MakeBinary builds a BINARY value from q: a string-literal q is emitted
// directly as a BINARY datum (its bytes reinterpreted as binary data),
// anything else becomes a [BINARY, [q]] term for the server to evaluate.
func MakeBinary(q Query) Query {
	if q.termType == termDatum {
		if s, ok := q.datumVal.GetString(); ok {
			return Query{termType: termDatum, datumVal: datum.NewBinary([]byte(s)), freeVars: map[uint64]struct{}{}}
		}
	}
	return newTerm(termBinary, []Query{q}, nil)
}

// needsFuncWrap reports whether q contains a bare Row() reference that is
// not already bound by an enclosing Func: Row() itself needs wrapping, a
// Func term already binds its own references so it is left alone, and
// otherwise the check recurses into args and optargs.
func needsFuncWrap(q Query) bool {
	switch q.termType {
	case termRow:
		return true
	case termFunc:
		return false
	}
	for _, a := range q.args {
		if needsFuncWrap(a) {
			return true
		}
	}
	for _, a := range q.optargs {
		if needsFuncWrap(a) {
			return true
		}
	}
	return false
}

// funcWrap wraps q in a fresh one-argument Func if it contains a bare
// Row() reference, so a predicate written with Row() rather than built from
// FuncWrap still arrives as a proper FUNC term. Combinators that accept a
// predicate/mapping Query (Filter, Map, OrderBy's key) call this before
// Graft.
func funcWrap(q Query) Query {
	if !needsFuncWrap(q) {
		return q
	}
	id := freshVarID()
	return newTerm(termFunc, []Query{newTerm(termMakeArray, []Query{Datum(float64(id))}, nil), q}, nil)
}

// --- Database and table operations -----------------------------------

func Db(name string) Query    { return newTerm(termDB, []Query{Datum(name)}, nil) }
func (q Query) Table(name string) Query {
	return newTerm(termTable, []Query{q, Datum(name)}, nil)
}

// Table refers to a table in the connection's default database.
func Table(name string) Query {
	return newTerm(termTable, []Query{Datum(name)}, nil)
}

func (q Query) Get(id any) Query {
	return newTerm(termGet, []Query{q, Datum(id)}, nil)
}

func (q Query) Insert(doc any, optargs ...map[string]Query) Query {
	return newTerm(termInsert, []Query{q, Datum(withPrimaryKey(doc))}, mergeOptargs(optargs))
}

// withPrimaryKey assigns a client-generated primary key to doc if it is a
// string-keyed map missing an "id" field, per the bun-auth convention of
// generating record ids client-side rather than relying on server-side
// default generation.
func withPrimaryKey(doc any) any {
	m, ok := doc.(map[string]any)
	if !ok {
		return doc
	}
	if _, has := m["id"]; has {
		return doc
	}
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out["id"] = NewPrimaryKey()
	return out
}

func (q Query) Update(patch any, optargs ...map[string]Query) Query {
	return newTerm(termUpdate, []Query{q, Datum(patch)}, mergeOptargs(optargs))
}

func (q Query) Delete(optargs ...map[string]Query) Query {
	return newTerm(termDelete, []Query{q}, mergeOptargs(optargs))
}

func mergeOptargs(groups []map[string]Query) map[string]Query {
	if len(groups) == 0 {
		return nil
	}
	out := map[string]Query{}
	for _, g := range groups {
		for k, v := range g {
			out[k] = v
		}
	}
	return out
}

// --- Sequence operations ------------------------------------------------

// Filter keeps elements of q for which predicate evaluates truthy. A
// predicate built from FuncWrap is used as-is; a bare Row()-rooted Query is
// auto-wrapped into a one-argument Func first (funcWrap); either way, a
// previously-constructed, possibly-reused Query is alpha-renamed via Graft
// before being spliced in, so the same stored predicate can back two
// different Filter calls in one query without its bound variables
// colliding.
func (q Query) Filter(predicate Query) Query {
	return newTerm(termFilter, []Query{q, Graft(funcWrap(predicate))}, nil)
}

func (q Query) Map(mapping Query) Query {
	return newTerm(termMap, []Query{q, Graft(funcWrap(mapping))}, nil)
}

func (q Query) OrderBy(key Query) Query {
	return newTerm(termOrderBy, []Query{q, Graft(funcWrap(key))}, nil)
}

func (q Query) Count() Query {
	return newTerm(termCount, []Query{q}, nil)
}

func (q Query) Limit(n int) Query {
	return newTerm(termLimit, []Query{q, Datum(float64(n))}, nil)
}

func (q Query) Skip(n int) Query {
	return newTerm(termSkip, []Query{q, Datum(float64(n))}, nil)
}

func (q Query) Between(lower, upper any) Query {
	return newTerm(termBetween, []Query{q, Datum(lower), Datum(upper)}, nil)
}

// Range produces the integer sequence [0, n). With no args it is the
// unbounded sequence 0, 1, 2, ... consumed lazily via CONTINUE.
func Range(bounds ...int) Query {
	args := make([]Query, len(bounds))
	for i, b := range bounds {
		args[i] = Datum(float64(b))
	}
	return newTerm(termRange, args, nil)
}

// --- Field access and branching -----------------------------------------

func (q Query) Field(name string) Query {
	return newTerm(termGetField, []Query{q, Datum(name)}, nil)
}

func Branch(test, ifTrue, ifFalse Query) Query {
	return newTerm(termBranch, []Query{test, ifTrue, ifFalse}, nil)
}

// --- Arithmetic, comparison, and boolean operators -----------------------

func (q Query) Add(other Query) Query { return newTerm(termAdd, []Query{q, other}, nil) }
func (q Query) Sub(other Query) Query { return newTerm(termSub, []Query{q, other}, nil) }
func (q Query) Mul(other Query) Query { return newTerm(termMul, []Query{q, other}, nil) }
func (q Query) Div(other Query) Query { return newTerm(termDiv, []Query{q, other}, nil) }
func (q Query) Mod(other Query) Query { return newTerm(termMod, []Query{q, other}, nil) }

func (q Query) Eq(other Query) Query { return newTerm(termEq, []Query{q, other}, nil) }
func (q Query) Ne(other Query) Query { return newTerm(termNe, []Query{q, other}, nil) }
func (q Query) Lt(other Query) Query { return newTerm(termLt, []Query{q, other}, nil) }
func (q Query) Le(other Query) Query { return newTerm(termLe, []Query{q, other}, nil) }
func (q Query) Gt(other Query) Query { return newTerm(termGt, []Query{q, other}, nil) }
func (q Query) Ge(other Query) Query { return newTerm(termGe, []Query{q, other}, nil) }

func (q Query) Not() Query             { return newTerm(termNot, []Query{q}, nil) }
func (q Query) And(other Query) Query  { return newTerm(termAnd, []Query{q, other}, nil) }
func (q Query) Or(other Query) Query   { return newTerm(termOr, []Query{q, other}, nil) }

// Funcall applies fn (a Query built with Func/FuncWrap) to args.
func Funcall(fn Query, args ...Query) Query {
	all := append([]Query{fn}, args...)
	return newTerm(termFuncall, all, nil)
}
