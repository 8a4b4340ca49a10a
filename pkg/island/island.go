// Package island marks templ components for client-side hydration.
//
// A page wraps an interactive component with New. While rendering, the
// wrapper emits the static markup of the component inside a marker element
// that carries the component identifier and its serialized props, followed by
// a deferred module script that loads the hydration bundle:
//
//	<div id="island-1" data-island="Counter" data-props="{&#34;start&#34;:1}">
//		<button>1</button>
//	</div>
//	<script type="module" src="islandRender.js" defer></script>
//
// Instance identifiers come from the Counter of the render Scope installed
// in the context by the renderer, so numbering restarts with every build.
package island

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"

	"github.com/a-h/templ"
)

// DefaultScriptSrc is the hydration bundle reference used when a scope does
// not name one.
const DefaultScriptSrc = "islandRender.js"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Counter hands out instance identifiers for one build.
type Counter struct {
	mu sync.Mutex
	n  int
}

// Next returns the next identifier, starting at 1.
func (c *Counter) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

// Value returns the last identifier handed out.
func (c *Counter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset restarts numbering.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}

// Scope is the per-render state islands read from the context.
type Scope struct {
	Counter *Counter
	// ScriptSrc is the hydration bundle reference, relative to the page.
	ScriptSrc string
}

type scopeKey struct{}

// WithScope installs scope for every island rendered with the returned
// context.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the scope installed by WithScope.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(scopeKey{}).(*Scope)
	return scope, ok && scope != nil && scope.Counter != nil
}

// PropsProvider is implemented by components that expose the props they were
// rendered with.
type PropsProvider interface {
	IslandProps() map[string]any
}

// ErrNoScope is returned when an island renders outside a render scope.
var ErrNoScope = errors.New("island rendered without a render scope")

// New wraps child as the island id. attrs are merged with the props of child
// when it implements PropsProvider; the child's values win on key collision.
func New(id string, child templ.Component, attrs map[string]any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if !identifierPattern.MatchString(id) {
			return fmt.Errorf("invalid island identifier %q", id)
		}

		scope, ok := ScopeFrom(ctx)
		if !ok {
			return fmt.Errorf("island %s: %w", id, ErrNoScope)
		}

		props, err := json.Marshal(MergeProps(attrs, child))
		if err != nil {
			return fmt.Errorf("island %s: serializing props: %w", id, err)
		}

		src := scope.ScriptSrc
		if src == "" {
			src = DefaultScriptSrc
		}

		if _, err := fmt.Fprintf(w, `<div id="island-%d" data-island="%s" data-props="%s">`,
			scope.Counter.Next(), templ.EscapeString(id), templ.EscapeString(string(props))); err != nil {
			return err
		}
		if child != nil {
			if err := child.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `</div><script type="module" src="%s" defer></script>`, templ.EscapeString(src))
		return err
	})
}

// MergeProps returns attrs overlaid with the props of child.
func MergeProps(attrs map[string]any, child templ.Component) map[string]any {
	merged := make(map[string]any, len(attrs))
	for k, v := range attrs {
		merged[k] = v
	}
	if p, ok := child.(PropsProvider); ok {
		for k, v := range p.IslandProps() {
			merged[k] = v
		}
	}
	return merged
}

type propsComponent struct {
	templ.Component
	props map[string]any
}

func (p propsComponent) IslandProps() map[string]any {
	return p.props
}

// WithProps attaches props to a fallback component so New serializes them.
func WithProps(fallback templ.Component, props map[string]any) templ.Component {
	if fallback == nil {
		fallback = templ.NopComponent
	}
	return propsComponent{Component: fallback, props: props}
}

// Component is shorthand for New(id, WithProps(fallback, props), nil).
func Component(id string, props map[string]any, fallback templ.Component) templ.Component {
	return New(id, WithProps(fallback, props), nil)
}
