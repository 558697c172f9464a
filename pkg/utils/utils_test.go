package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Introdução à Computação Quântica", "introducao-a-computacao-quantica"},
		{"  React & Redux: 2026 ", "react-redux-2026"},
		{"---", "item"},
		{"Ética", "etica"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in, 0), tt.in)
	}
	assert.Equal(t, "abc", Slugify("abc-def", 4))
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{"seminario": true, "seminario-2": true}
	slug, err := UniqueSlug(context.Background(), "Seminário", func(_ context.Context, s string) (bool, error) {
		return taken[s], nil
	})
	require.NoError(t, err)
	assert.Equal(t, "seminario-3", slug)
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Talk", StripTags("Talk"))
	assert.Equal(t, "Hello world & friends", StripTags("<p>Hello <b>world</b> &amp; friends</p>"))
	assert.Equal(t, "Text", StripTags("<style>p{}</style><p>Text</p><script>alert(1)</script>"))
}

func TestNormalizeNewlines(t *testing.T) {
	assert.Equal(t, "a\nb\nc", NormalizeNewlines("a\r\nb\rc"))
}

func TestRandomPassword(t *testing.T) {
	p, err := RandomPassword(16)
	require.NoError(t, err)
	assert.Len(t, p, 16)
	for _, r := range p {
		assert.Contains(t, passwordAlphabet, string(r))
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("segredo123")
	require.NoError(t, err)
	assert.True(t, CheckPassword("segredo123", hash))
	assert.False(t, CheckPassword("outra", hash))
}

func TestLocalDay(t *testing.T) {
	// 02:00 UTC on the 16th is still the 15th in São Paulo.
	now := time.Date(2026, 6, 16, 2, 0, 0, 0, time.UTC)
	start, end := LocalDay(now, 1)
	assert.Equal(t, time.Date(2026, 6, 16, 3, 0, 0, 0, time.UTC), start.UTC())
	assert.Equal(t, 24*time.Hour, end.Sub(start))
	assert.Equal(t, "15/06/2026", FormatDate(now))
	assert.Equal(t, "15/06/2026 às 23:00", FormatDateTime(now))
}
