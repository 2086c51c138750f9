package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogLongestFirst(t *testing.T) {
	index := make(map[string]int, len(Catalog))
	for i, op := range Catalog {
		index[op.Text] = i
	}

	// Every spelling must come before any shorter spelling it contains as a prefix.
	for _, long := range Catalog {
		for _, short := range Catalog {
			if long.Text == short.Text || !strings.HasPrefix(long.Text, short.Text) {
				continue
			}
			assert.Less(t, index[long.Text], index[short.Text],
				"%q must be matched before %q", long.Text, short.Text)
		}
	}
}

func TestLookup(t *testing.T) {
	op, ok := LookupPow(-1)
	require.True(t, ok)
	assert.Equal(t, ")^-1", op.Text)

	_, ok = LookupPow(4)
	assert.False(t, ok)

	op, ok = LookupFunc("scd")
	require.True(t, ok)
	assert.Equal(t, "scd(", op.Text)

	_, ok = LookupFunc("tan")
	assert.False(t, ok)
}

func TestSpellings(t *testing.T) {
	assert.Equal(t, "cbrt(", FuncSpelling("cbrt"))
	assert.Equal(t, ")^6", PowSpelling(6))
	assert.Equal(t, ")^-1", PowSpelling(-1))
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "+", PLUS.String())
	assert.Equal(t, "exp(-", EXPNEG.String())
	assert.Equal(t, "TOKEN(99)", TokenType(99).String())
}

func TestSpan(t *testing.T) {
	s := Span{Start: 2, End: 5}
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains(2))
	assert.False(t, s.Contains(5))
	assert.True(t, s.IsValid())
	assert.False(t, Span{Start: 3, End: 3}.IsValid())
}
