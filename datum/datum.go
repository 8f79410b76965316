// Package datum implements the driver's tagged-variant dynamic value type,
// the unit of data exchanged with the server both inside query terms and
// inside query results.
package datum

import (
	"fmt"
	"reflect"
	"sort"

	docqlerrors "github.com/kartikbazzad/bunbase/docql/errors"
)

// Tag identifies a Datum's variant.
type Tag int

// Tag rank defines comparison order: NIL < BOOL < NUMBER < STRING < BINARY < ARRAY < OBJECT.
const (
	NIL Tag = iota
	BOOL
	NUMBER
	STRING
	BINARY
	ARRAY
	OBJECT
)

func (t Tag) String() string {
	switch t {
	case NIL:
		return "NIL"
	case BOOL:
		return "BOOL"
	case NUMBER:
		return "NUMBER"
	case STRING:
		return "STRING"
	case BINARY:
		return "BINARY"
	case ARRAY:
		return "ARRAY"
	case OBJECT:
		return "OBJECT"
	default:
		return "UNKNOWN"
	}
}

// ReqlTypeKey and BinaryDataKey name the pseudo-type object fields used to
// encode a BINARY Datum as JSON: {"$reql_type$": "BINARY", "data": "<base64>"}.
const (
	ReqlTypeKey  = "$reql_type$"
	BinaryDataKey = "data"
	BinaryTypeValue = "BINARY"
)

// Datum is the tagged-variant value. The zero value is NIL.
type Datum struct {
	tag    Tag
	b      bool
	num    float64
	str    string
	bin    []byte
	arr    []Datum
	obj    map[string]Datum
	// objKeys preserves the object's canonical (ascending) key order so
	// repeated iteration/serialization is deterministic without re-sorting
	// on every access.
	objKeys []string
}

// Nil is the NIL Datum.
var Nil = Datum{tag: NIL}

// NewBool constructs a BOOL Datum.
func NewBool(b bool) Datum { return Datum{tag: BOOL, b: b} }

// NewNumber constructs a NUMBER Datum.
func NewNumber(n float64) Datum { return Datum{tag: NUMBER, num: n} }

// NewString constructs a STRING Datum.
func NewString(s string) Datum { return Datum{tag: STRING, str: s} }

// NewBinary constructs a BINARY Datum from opaque bytes.
func NewBinary(b []byte) Datum {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Datum{tag: BINARY, bin: cp}
}

// NewArray constructs an ARRAY Datum.
func NewArray(elems ...Datum) Datum {
	cp := make([]Datum, len(elems))
	copy(cp, elems)
	return Datum{tag: ARRAY, arr: cp}
}

// NewObject constructs an OBJECT Datum from a key->Datum mapping. If the
// fields carry $reql_type$ = "BINARY" and a string "data" field, construction
// auto-demotes the result to a BINARY Datum (decoding "data" as base64) per
// the pseudo-type rule; a decode failure leaves it as an ordinary OBJECT.
func NewObject(fields map[string]Datum) Datum {
	if bin, ok := demoteBinary(fields); ok {
		return bin
	}
	keys := make([]string, 0, len(fields))
	obj := make(map[string]Datum, len(fields))
	for k, v := range fields {
		keys = append(keys, k)
		obj[k] = v
	}
	sort.Strings(keys)
	return Datum{tag: OBJECT, obj: obj, objKeys: keys}
}

func demoteBinary(fields map[string]Datum) (Datum, bool) {
	typ, ok := fields[ReqlTypeKey]
	if !ok || typ.tag != STRING || typ.str != BinaryTypeValue {
		return Datum{}, false
	}
	data, ok := fields[BinaryDataKey]
	if !ok || data.tag != STRING {
		return Datum{}, false
	}
	raw, err := decodeBase64(data.str)
	if err != nil {
		return Datum{}, false
	}
	return NewBinary(raw), true
}

// Tag returns the Datum's variant tag.
func (d Datum) Tag() Tag { return d.tag }

// IsNil reports whether d is the NIL variant.
func (d Datum) IsNil() bool { return d.tag == NIL }

// GetBool returns d's bool value, or ok=false if d is not BOOL.
func (d Datum) GetBool() (v bool, ok bool) {
	if d.tag != BOOL {
		return false, false
	}
	return d.b, true
}

// GetNumber returns d's float64 value, or ok=false if d is not NUMBER.
func (d Datum) GetNumber() (v float64, ok bool) {
	if d.tag != NUMBER {
		return 0, false
	}
	return d.num, true
}

// GetString returns d's string value, or ok=false if d is not STRING.
func (d Datum) GetString() (v string, ok bool) {
	if d.tag != STRING {
		return "", false
	}
	return d.str, true
}

// GetBinary returns d's byte slice, or ok=false if d is not BINARY.
func (d Datum) GetBinary() (v []byte, ok bool) {
	if d.tag != BINARY {
		return nil, false
	}
	return d.bin, true
}

// GetArray returns d's element slice, or ok=false if d is not ARRAY.
func (d Datum) GetArray() (v []Datum, ok bool) {
	if d.tag != ARRAY {
		return nil, false
	}
	return d.arr, true
}

// GetObject returns d's field map, or ok=false if d is not OBJECT.
func (d Datum) GetObject() (v map[string]Datum, ok bool) {
	if d.tag != OBJECT {
		return nil, false
	}
	return d.obj, true
}

// ObjectKeys returns the OBJECT's keys in canonical (ascending) order, or
// nil if d is not OBJECT.
func (d Datum) ObjectKeys() []string {
	if d.tag != OBJECT {
		return nil
	}
	return d.objKeys
}

// GetField returns the named field of an OBJECT Datum.
func (d Datum) GetField(key string) (Datum, bool) {
	if d.tag != OBJECT {
		return Datum{}, false
	}
	v, ok := d.obj[key]
	return v, ok
}

// GetNth returns the i'th element of an ARRAY Datum.
func (d Datum) GetNth(i int) (Datum, bool) {
	if d.tag != ARRAY || i < 0 || i >= len(d.arr) {
		return Datum{}, false
	}
	return d.arr[i], true
}

// ExtractBool is GetBool that fails loudly: it is for callers who already
// know (from the schema of whatever produced d) that d must be BOOL.
func (d Datum) ExtractBool() (bool, error) {
	v, ok := d.GetBool()
	if !ok {
		return false, &docqlerrors.TypeMismatch{Accessor: "extract_bool", Actual: d.tag.String()}
	}
	return v, nil
}

// ExtractNumber is the extract_* counterpart of GetNumber.
func (d Datum) ExtractNumber() (float64, error) {
	v, ok := d.GetNumber()
	if !ok {
		return 0, &docqlerrors.TypeMismatch{Accessor: "extract_number", Actual: d.tag.String()}
	}
	return v, nil
}

// ExtractString is the extract_* counterpart of GetString.
func (d Datum) ExtractString() (string, error) {
	v, ok := d.GetString()
	if !ok {
		return "", &docqlerrors.TypeMismatch{Accessor: "extract_string", Actual: d.tag.String()}
	}
	return v, nil
}

// ExtractArray is the extract_* counterpart of GetArray.
func (d Datum) ExtractArray() ([]Datum, error) {
	v, ok := d.GetArray()
	if !ok {
		return nil, &docqlerrors.TypeMismatch{Accessor: "extract_array", Actual: d.tag.String()}
	}
	return v, nil
}

// ExtractObject is the extract_* counterpart of GetObject.
func (d Datum) ExtractObject() (map[string]Datum, error) {
	v, ok := d.GetObject()
	if !ok {
		return nil, &docqlerrors.TypeMismatch{Accessor: "extract_object", Actual: d.tag.String()}
	}
	return v, nil
}

// ExtractBinary is the extract_* counterpart of GetBinary.
func (d Datum) ExtractBinary() ([]byte, error) {
	v, ok := d.GetBinary()
	if !ok {
		return nil, &docqlerrors.TypeMismatch{Accessor: "extract_binary", Actual: d.tag.String()}
	}
	return v, nil
}

// ToRaw returns d unchanged unless d is BINARY, in which case it returns the
// pseudo-type OBJECT form ({"$reql_type$": "BINARY", "data": base64(d)}).
// It builds that OBJECT directly rather than through NewObject, which would
// immediately demote the very same shape back to BINARY.
func (d Datum) ToRaw() Datum {
	if d.tag != BINARY {
		return d
	}
	fields := map[string]Datum{
		ReqlTypeKey:   NewString(BinaryTypeValue),
		BinaryDataKey: NewString(encodeBase64(d.bin)),
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Datum{tag: OBJECT, obj: fields, objKeys: keys}
}

// Compare orders a relative to b per the tag-rank-then-lexicographic rule:
// returns -1, 0, or 1.
func (a Datum) Compare(b Datum) int {
	if a.tag != b.tag {
		if a.tag < b.tag {
			return -1
		}
		return 1
	}
	switch a.tag {
	case NIL:
		return 0
	case BOOL:
		return compareBool(a.b, b.b)
	case NUMBER:
		return compareFloat(a.num, b.num)
	case STRING:
		return compareString(a.str, b.str)
	case BINARY:
		return compareBytes(a.bin, b.bin)
	case ARRAY:
		return compareArrays(a.arr, b.arr)
	case OBJECT:
		return compareObjects(a.obj, a.objKeys, b.obj, b.objKeys)
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return compareFloat(float64(len(a)), float64(len(b)))
}

func compareArrays(a, b []Datum) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	return compareFloat(float64(len(a)), float64(len(b)))
}

func compareObjects(a map[string]Datum, aKeys []string, b map[string]Datum, bKeys []string) int {
	n := len(aKeys)
	if len(bKeys) < n {
		n = len(bKeys)
	}
	for i := 0; i < n; i++ {
		if c := compareString(aKeys[i], bKeys[i]); c != 0 {
			return c
		}
		if c := a[aKeys[i]].Compare(b[bKeys[i]]); c != 0 {
			return c
		}
	}
	return compareFloat(float64(len(aKeys)), float64(len(bKeys)))
}

// FromAny converts a native Go value into a Datum. Supported inputs: nil,
// bool, all integer and float kinds, string, []byte (-> BINARY), slices and
// arrays of convertible element types (-> ARRAY), maps with string keys and
// convertible values, and structs (exported fields only, field name as key).
func FromAny(v any) (Datum, error) {
	if v == nil {
		return Nil, nil
	}
	if d, ok := v.(Datum); ok {
		return d, nil
	}
	if b, ok := v.([]byte); ok {
		return NewBinary(b), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return NewBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NewNumber(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NewNumber(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return NewNumber(rv.Float()), nil
	case reflect.String:
		return NewString(rv.String()), nil
	case reflect.Slice, reflect.Array:
		elems := make([]Datum, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e, err := FromAny(rv.Index(i).Interface())
			if err != nil {
				return Datum{}, err
			}
			elems[i] = e
		}
		return NewArray(elems...), nil
	case reflect.Map:
		fields := make(map[string]Datum, rv.Len())
		for _, key := range rv.MapKeys() {
			ks, ok := key.Interface().(string)
			if !ok {
				return Datum{}, fmt.Errorf("datum: map key %v is not a string", key.Interface())
			}
			fv, err := FromAny(rv.MapIndex(key).Interface())
			if err != nil {
				return Datum{}, err
			}
			fields[ks] = fv
		}
		return NewObject(fields), nil
	case reflect.Struct:
		rt := rv.Type()
		fields := make(map[string]Datum, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if f.PkgPath != "" {
				continue // unexported
			}
			fv, err := FromAny(rv.Field(i).Interface())
			if err != nil {
				return Datum{}, err
			}
			fields[f.Name] = fv
		}
		return NewObject(fields), nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Nil, nil
		}
		return FromAny(rv.Elem().Interface())
	default:
		return Datum{}, fmt.Errorf("datum: cannot convert %T to Datum", v)
	}
}

// MustFromAny is FromAny but panics on error. It exists only for literal,
// compile-time-known term construction (e.g. inside a constructor table),
// never for converting values that originate from the network or from a
// caller's uncontrolled input.
func MustFromAny(v any) Datum {
	d, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return d
}
