package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Hello,   World!!  ", "hello-world"},
		{"Go 1.26 -- what's new?", "go-1-26-what-s-new"},
		{"Crème brûlée", "crème-brûlée"},
		{"!!!", FallbackSlug},
		{"", FallbackSlug},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

// slugSet simulates posts already stored for two authors.
type slugSet map[uint]map[string]bool

func (s slugSet) probe(author uint) SlugExists {
	return func(_ context.Context, slug string) (bool, error) {
		return s[author][slug], nil
	}
}

func TestUniqueSlug(t *testing.T) {
	ctx := context.Background()
	existing := slugSet{
		1: {"hello-world": true},
		2: {"hello-world": true, "hello-world-1": true},
	}

	got, err := UniqueSlug(ctx, "Hello World", existing.probe(3))
	require.NoError(t, err)
	assert.Equal(t, "hello-world", got, "other authors' slugs must not matter")

	got, err = UniqueSlug(ctx, "Hello World", existing.probe(1))
	require.NoError(t, err)
	assert.Equal(t, "hello-world-1", got)

	got, err = UniqueSlug(ctx, "Hello World", existing.probe(2))
	require.NoError(t, err)
	assert.Equal(t, "hello-world-2", got)
}

func TestUniqueSlug_ProbeError(t *testing.T) {
	boom := errors.New("db down")
	_, err := UniqueSlug(context.Background(), "x", func(context.Context, string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestReadingTime(t *testing.T) {
	assert.Equal(t, 1, ReadingTime(""))
	assert.Equal(t, 1, ReadingTime("word"))
	assert.Equal(t, 1, ReadingTime(strings.Repeat("word ", 200)))
	assert.Equal(t, 2, ReadingTime(strings.Repeat("word ", 201)))
	assert.Equal(t, 2, ReadingTime(strings.Repeat("word ", 400)))
	assert.Equal(t, 1, ReadingTime("<p>"+strings.Repeat("<b>x</b> ", 10)+"</p>"))
}

func TestPlainText(t *testing.T) {
	in := "# Title\n\nSome **bold** and _italic_ text with a [link](https://example.com).\n\n<p>html  here</p>"
	assert.Equal(t, "Title Some bold and italic text with a link. html here", PlainText(in))
}

func TestPlainText_KeepsLiteralAngleBrackets(t *testing.T) {
	assert.Equal(t, "5 < 6 and 7 > 3", Excerpt("5 < 6 and 7 > 3", 160))
	assert.Equal(t, "x > y => done", PlainText("x > y => done"))
	assert.Equal(t, "Tom & Jerry", PlainText("<em>Tom</em> &amp; Jerry"))
	assert.Equal(t, "kept text", PlainText(`<script>alert(1)</script>kept <a href="x">text</a>`))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short text", Excerpt("short   text", 0))

	long := strings.Repeat("abcde ", 50)
	got := Excerpt(long, 20)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(strings.TrimSuffix(got, "..."))), 20)

	def := Excerpt(strings.Repeat("x", 500), 0)
	assert.Equal(t, DefaultExcerptLength+3, len(def))
}
