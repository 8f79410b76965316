package datum

import (
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberFormatting(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1.2, "1.2"},
		{1.2e20, "1.2e+20"},
		{-1, "-1"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, formatNumber(c.in))
	}
}

func TestNegativeZeroSurvivesRoundTrip(t *testing.T) {
	neg := NewNumber(math.Copysign(0, -1))
	assert.Equal(t, "-0.0", String(neg))

	parsed, err := ParseString(String(neg))
	require.NoError(t, err)
	n, ok := parsed.GetNumber()
	require.True(t, ok)
	assert.True(t, n == 0 && math.Signbit(n))
}

func TestStringEscaping(t *testing.T) {
	d := NewString("line\nbreak\ttab\"quote\\back\x01ctrl")
	out := String(d)
	parsed, err := ParseString(out)
	require.NoError(t, err)
	s, ok := parsed.GetString()
	require.True(t, ok)
	assert.Equal(t, "line\nbreak\ttab\"quote\\back\x01ctrl", s)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseString("{not json")
	require.Error(t, err)
}

func TestParseObjectArrayRoundTrip(t *testing.T) {
	d, err := ParseString(`{"b":2,"a":[1,2,3],"c":null}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,2,3],"b":2,"c":null}`, String(d))
}

func TestJSONGolden(t *testing.T) {
	g := goldie.New(t)

	doc := NewObject(map[string]Datum{
		"name":   NewString("ada"),
		"age":    NewNumber(36),
		"active": NewBool(true),
		"tags":   NewArray(NewString("admin"), NewString("staff")),
		"avatar": NewBinary([]byte{0x01, 0x02, 0x03}),
		"parent": Nil,
	})
	g.Assert(t, "document", []byte(String(doc)))
}
