package datum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagRankOrdering(t *testing.T) {
	ordered := []Datum{
		Nil,
		NewBool(true),
		NewNumber(1),
		NewString("a"),
		NewBinary([]byte{1}),
		NewArray(NewNumber(1)),
		NewObject(map[string]Datum{"a": NewNumber(1)}),
	}
	for i := 0; i < len(ordered)-1; i++ {
		assert.Negative(t, ordered[i].Compare(ordered[i+1]), "tag %s should rank below %s", ordered[i].Tag(), ordered[i+1].Tag())
		assert.Positive(t, ordered[i+1].Compare(ordered[i]))
	}
}

func TestCompareWithinTag(t *testing.T) {
	assert.Negative(t, NewNumber(1).Compare(NewNumber(2)))
	assert.Equal(t, 0, NewNumber(2).Compare(NewNumber(2)))
	assert.Negative(t, NewString("a").Compare(NewString("b")))
	assert.Negative(t, NewBool(false).Compare(NewBool(true)))
}

func TestObjectCanonicalKeyOrder(t *testing.T) {
	o := NewObject(map[string]Datum{
		"z": NewNumber(1),
		"a": NewNumber(2),
		"m": NewNumber(3),
	})
	assert.Equal(t, []string{"a", "m", "z"}, o.ObjectKeys())
}

func TestBinaryPseudoTypeRoundTrip(t *testing.T) {
	b := NewBinary([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	raw := b.ToRaw()

	obj, ok := raw.GetObject()
	require.True(t, ok)
	typ, ok := obj[ReqlTypeKey]
	require.True(t, ok)
	typStr, _ := typ.GetString()
	assert.Equal(t, BinaryTypeValue, typStr)

	parsed, err := ParseString(String(raw))
	require.NoError(t, err)
	assert.Equal(t, BINARY, parsed.Tag())
	gotBytes, ok := parsed.GetBinary()
	require.True(t, ok)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, gotBytes)
}

func TestExtractTypeMismatch(t *testing.T) {
	_, err := NewString("x").ExtractNumber()
	require.Error(t, err)
}

func TestFromAnyStruct(t *testing.T) {
	type Doc struct {
		Name string
		Age  int
	}
	d, err := FromAny(Doc{Name: "ada", Age: 30})
	require.NoError(t, err)
	name, ok := d.GetField("Name")
	require.True(t, ok)
	s, _ := name.GetString()
	assert.Equal(t, "ada", s)
}

func TestFromAnyRejectsNonStringMapKeys(t *testing.T) {
	_, err := FromAny(map[int]string{1: "a"})
	assert.Error(t, err)
}

func TestMustFromAnyPanicsOnUnsupported(t *testing.T) {
	assert.Panics(t, func() {
		MustFromAny(make(chan int))
	})
}
