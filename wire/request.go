package wire

import (
	"github.com/kartikbazzad/bunbase/docql/datum"
)

// EncodeQuery serializes the client->server envelope [query_type_int, term?, optargs?]
// to JSON bytes, ready to hand to WriteFrame.
//
// term and optargs are omitted from the envelope for query kinds that carry
// neither (CONTINUE, STOP, NOREPLY_WAIT, SERVER_INFO): only term is included
// for those that carry just a term, matching the server's expectation of a
// shorter envelope when a field doesn't apply.
func EncodeQuery(kind QueryKind, term *datum.Datum, optargs *datum.Datum) []byte {
	elems := []datum.Datum{datum.NewNumber(float64(kind))}
	if term != nil {
		elems = append(elems, *term)
	}
	if optargs != nil {
		elems = append(elems, *optargs)
	}
	return []byte(datum.String(datum.NewArray(elems...)))
}
