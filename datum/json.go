package datum

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ParseError reports a JSON parse failure at a byte offset, per the
// protocol's requirement that EOF mid-structure is a parse error too.
type ParseError struct {
	Offset int64
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("datum: json parse error at offset %d: %s", e.Offset, e.Reason)
}

// Parse decodes a single JSON value from r into a Datum. Leading/trailing
// whitespace (space, tab, CR, LF) around the value is tolerated.
func Parse(r io.Reader) (Datum, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if err == io.EOF {
			return Datum{}, &ParseError{Reason: "unexpected end of input"}
		}
		return Datum{}, &ParseError{Offset: dec.InputOffset(), Reason: err.Error()}
	}
	return fromJSONValue(v)
}

// ParseString is Parse over a string's bytes.
func ParseString(s string) (Datum, error) {
	return Parse(strings.NewReader(s))
}

// ParseBytes is Parse over a byte slice.
func ParseBytes(b []byte) (Datum, error) {
	return Parse(bytes.NewReader(b))
}

func fromJSONValue(v any) (Datum, error) {
	switch t := v.(type) {
	case nil:
		return Nil, nil
	case bool:
		return NewBool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Datum{}, &ParseError{Reason: "invalid number: " + err.Error()}
		}
		return NewNumber(f), nil
	case string:
		return NewString(t), nil
	case []any:
		elems := make([]Datum, len(t))
		for i, e := range t {
			d, err := fromJSONValue(e)
			if err != nil {
				return Datum{}, err
			}
			elems[i] = d
		}
		return NewArray(elems...), nil
	case map[string]any:
		fields := make(map[string]Datum, len(t))
		for k, e := range t {
			d, err := fromJSONValue(e)
			if err != nil {
				return Datum{}, err
			}
			fields[k] = d
		}
		return NewObject(fields), nil
	default:
		return Datum{}, &ParseError{Reason: fmt.Sprintf("unsupported JSON value %T", v)}
	}
}

// Write serializes d to w in canonical JSON form: OBJECT keys in ascending
// order, BINARY re-encoded as the $reql_type$ pseudo-type object, and
// numbers formatted locale-independently with -0.0 distinguishable from 0.
func Write(w io.Writer, d Datum) error {
	buf := &bytes.Buffer{}
	writeDatum(buf, d)
	_, err := w.Write(buf.Bytes())
	return err
}

// String returns d's canonical JSON serialization.
func String(d Datum) string {
	buf := &bytes.Buffer{}
	writeDatum(buf, d)
	return buf.String()
}

func writeDatum(buf *bytes.Buffer, d Datum) {
	switch d.tag {
	case NIL:
		buf.WriteString("null")
	case BOOL:
		if d.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case NUMBER:
		buf.WriteString(formatNumber(d.num))
	case STRING:
		writeJSONString(buf, d.str)
	case BINARY:
		writeDatum(buf, d.ToRaw())
	case ARRAY:
		buf.WriteByte('[')
		for i, e := range d.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeDatum(buf, e)
		}
		buf.WriteByte(']')
	case OBJECT:
		buf.WriteByte('{')
		for i, k := range d.objKeys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			writeDatum(buf, d.obj[k])
		}
		buf.WriteByte('}')
	}
}

// formatNumber renders f locale-independently as the shortest decimal
// representation that round-trips exactly, in strconv's 'g' form (so large
// magnitudes use an exponent: 1.2e20 is "1.2e+20"), except that a negative
// zero is rendered "-0.0" rather than "-0" so it survives a parse/serialize
// round trip as a distinguishable signed zero.
func formatNumber(f float64) string {
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
