package island

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func render(t *testing.T, ctx context.Context, c templ.Component) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := c.Render(ctx, &buf)
	return buf.String(), err
}

func scoped() (context.Context, *Counter) {
	counter := &Counter{}
	return WithScope(context.Background(), &Scope{Counter: counter, ScriptSrc: "../islandRender.js"}), counter
}

func TestNewMarkup(t *testing.T) {
	ctx, _ := scoped()

	out, err := render(t, ctx, New("Counter", text("<button>0</button>"), map[string]any{"start": 0}))
	require.NoError(t, err)

	assert.Equal(t,
		`<div id="island-1" data-island="Counter" data-props="{&#34;start&#34;:0}"><button>0</button></div>`+
			`<script type="module" src="../islandRender.js" defer></script>`,
		out)
}

func TestInstanceIDsIncreaseWithinScope(t *testing.T) {
	ctx, counter := scoped()

	first, err := render(t, ctx, New("Counter", nil, nil))
	require.NoError(t, err)
	second, err := render(t, ctx, New("Logo", nil, nil))
	require.NoError(t, err)

	assert.Contains(t, first, `id="island-1"`)
	assert.Contains(t, second, `id="island-2"`)
	assert.Equal(t, 2, counter.Value())

	counter.Reset()
	third, err := render(t, ctx, New("Counter", nil, nil))
	require.NoError(t, err)
	assert.Contains(t, third, `id="island-1"`)
}

func TestNewRequiresScope(t *testing.T) {
	_, err := render(t, context.Background(), New("Counter", nil, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoScope))
}

func TestNewRejectsInvalidIdentifier(t *testing.T) {
	ctx, counter := scoped()

	for _, id := range []string{"", "my-widget", "1st", "Unknown Thing"} {
		_, err := render(t, ctx, New(id, nil, nil))
		assert.Error(t, err, id)
	}
	assert.Equal(t, 0, counter.Value())
}

func TestPropsChildWinsOnCollision(t *testing.T) {
	child := WithProps(text("fallback"), map[string]any{"label": "child", "count": 2})
	merged := MergeProps(map[string]any{"label": "wrapper", "theme": "dark"}, child)

	assert.Equal(t, map[string]any{"label": "child", "count": 2, "theme": "dark"}, merged)
}

func TestComponentShorthand(t *testing.T) {
	ctx, _ := scoped()

	out, err := render(t, ctx, Component("Logo", map[string]any{"size": "sm"}, text("<img>")))
	require.NoError(t, err)
	assert.Contains(t, out, `data-island="Logo"`)
	assert.Contains(t, out, `data-props="{&#34;size&#34;:&#34;sm&#34;}"`)
	assert.Contains(t, out, `<img>`)
}

func TestUnserializableProps(t *testing.T) {
	ctx, _ := scoped()

	_, err := render(t, ctx, New("Counter", nil, map[string]any{"fn": func() {}}))
	assert.Error(t, err)
}

func TestDefaultScriptSrc(t *testing.T) {
	ctx := WithScope(context.Background(), &Scope{Counter: &Counter{}})

	out, err := render(t, ctx, New("Counter", nil, nil))
	require.NoError(t, err)
	assert.Contains(t, out, `src="islandRender.js"`)
	assert.Contains(t, out, `data-props="{}"`)
}

func TestChildErrorPropagates(t *testing.T) {
	ctx, _ := scoped()
	boom := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return errors.New("boom")
	})

	_, err := render(t, ctx, New("Counter", boom, nil))
	assert.EqualError(t, err, "boom")
}
