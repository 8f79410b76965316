package docql

import (
	"context"
	"time"

	"github.com/kartikbazzad/bunbase/docql/cursor"
	"github.com/kartikbazzad/bunbase/docql/datum"
)

// liftArrayLiterals recursively rewrites every ARRAY-tagged Datum nested
// inside d, at any depth (including inside OBJECT field values), into its
// [MAKE_ARRAY, elems] term encoding. Without this, a native array embedded
// anywhere in a literal passed to Datum/Expr would be indistinguishable on
// the wire from the term envelope's own [term_type, args] shape.
func liftArrayLiterals(d datum.Datum) datum.Datum {
	switch d.Tag() {
	case datum.ARRAY:
		elems, _ := d.GetArray()
		lifted := make([]datum.Datum, len(elems))
		for i, e := range elems {
			lifted[i] = liftArrayLiterals(e)
		}
		return datum.NewArray(datum.NewNumber(float64(termMakeArray)), datum.NewArray(lifted...))
	case datum.OBJECT:
		fields, _ := d.GetObject()
		out := make(map[string]datum.Datum, len(fields))
		for k, v := range fields {
			out[k] = liftArrayLiterals(v)
		}
		return datum.NewObject(out)
	default:
		return d
	}
}

// toDatum serializes the term tree rooted at q into its wire form: a
// literal Datum term has any nested ARRAY lifted to MAKE_ARRAY form via
// liftArrayLiterals, and every compound term becomes
// [term_type, args, optargs?] per the protocol's envelope.
func (q Query) toDatum() datum.Datum {
	if q.termType == termDatum {
		return liftArrayLiterals(q.datumVal)
	}

	argDatums := make([]datum.Datum, len(q.args))
	for i, a := range q.args {
		argDatums[i] = a.toDatum()
	}

	elems := []datum.Datum{datum.NewNumber(float64(q.termType)), datum.NewArray(argDatums...)}
	if len(q.optargs) > 0 {
		fields := make(map[string]datum.Datum, len(q.optargs))
		for k, v := range q.optargs {
			fields[k] = v.toDatum()
		}
		elems = append(elems, datum.NewObject(fields))
	}
	return datum.NewArray(elems...)
}

// RunOptions are top-level query execution options (e.g. "db", "profile"),
// distinct from a term's own optargs — these ride alongside the term in the
// [query_type, term, optargs] envelope rather than inside it.
type RunOptions map[string]any

func (o RunOptions) toDatum() *datum.Datum {
	if len(o) == 0 {
		return nil
	}
	fields := make(map[string]datum.Datum, len(o))
	for k, v := range o {
		fields[k] = datum.MustFromAny(v)
	}
	d := datum.NewObject(fields)
	return &d
}

// Run sends q to conn as a new query and returns a Cursor over its results.
// ctx's deadline, if any, bounds the wait for the first response; a context
// with no deadline falls back to conn's configured default Timeout. conn's
// configured Database, if set, is sent as the "db" option unless opts set one.
func (q Query) Run(ctx context.Context, conn *Connection, opts ...RunOptions) (*cursor.Cursor, error) {
	var merged RunOptions
	if len(opts) > 0 {
		merged = RunOptions{}
		for _, o := range opts {
			for k, v := range o {
				merged[k] = v
			}
		}
	}
	if db := conn.cfg.Database; db != "" {
		if _, ok := merged["db"]; !ok {
			if merged == nil {
				merged = RunOptions{}
			}
			merged["db"] = db
		}
	}

	term := q.toDatum()

	if noreply, ok := merged["noreply"].(bool); ok && noreply {
		token, err := conn.StartQueryNoreply(term, merged.toDatum())
		if err != nil {
			return nil, err
		}
		return cursor.NewNoreply(conn, token), nil
	}

	timeout := contextTimeout(ctx, conn.cfg.Timeout)

	token, resp, err := conn.StartQuery(term, merged.toDatum(), timeout)
	if err != nil {
		return nil, err
	}
	return cursor.New(conn, token, resp)
}

// RunWrite runs q (expected to be an Insert/Update/Delete) and returns its
// single-atom write result as a Datum rather than a Cursor, matching the
// common "write ops return one result document" shape.
func (q Query) RunWrite(ctx context.Context, conn *Connection, opts ...RunOptions) (datum.Datum, error) {
	c, err := q.Run(ctx, conn, opts...)
	if err != nil {
		return datum.Nil, err
	}
	defer c.Close()
	return c.ToDatum()
}

// RunOne runs q and returns its first result, closing the cursor
// afterwards. Convenient for Get/single-row queries.
func (q Query) RunOne(ctx context.Context, conn *Connection, timeout time.Duration, opts ...RunOptions) (datum.Datum, error) {
	c, err := q.Run(ctx, conn, opts...)
	if err != nil {
		return datum.Nil, err
	}
	defer c.Close()
	return c.Next(timeout)
}
