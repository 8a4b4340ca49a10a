package site

import (
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"index", "index"},
		{"index.templ", "index"},
		{"./blog/post.go", "blog/post"},
		{"/about", "about"},
		{`docs\guide.md`, "docs/guide"},
		{"blog//post", "blog/post"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeID(tt.in))
		})
	}
}

func TestRegisterAndLookup(t *testing.T) {
	s := New()
	require.NoError(t, s.Register("index", templ.NopComponent))
	require.NoError(t, s.Register("blog/post", templ.NopComponent))

	c, ok := s.Lookup("blog/post.templ")
	assert.True(t, ok)
	assert.NotNil(t, c)

	_, ok = s.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"blog/post", "index"}, s.IDs())
	assert.Equal(t, 2, s.Len())
}

func TestRegisterErrors(t *testing.T) {
	s := New()
	require.NoError(t, s.Register("index", templ.NopComponent))

	assert.Error(t, s.Register("index.go", templ.NopComponent))
	assert.Error(t, s.Register("about", nil))
	assert.Error(t, s.Register("", templ.NopComponent))

	assert.Panics(t, func() { s.MustRegister("index", templ.NopComponent) })
}

func TestNilSite(t *testing.T) {
	var s *Site
	_, ok := s.Lookup("index")
	assert.False(t, ok)
	assert.Empty(t, s.IDs())
	assert.Equal(t, 0, s.Len())
}
