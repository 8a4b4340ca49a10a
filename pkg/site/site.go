// Package site is the registry that binds page sources to their compiled
// templ components.
//
// Pages written in templ or Go are compiled into the project binary, so the
// build cannot load them by path. Instead the binary registers each page
// under its page ID, the path of the source file below the pages root without
// extension:
//
//	s := site.New()
//	s.MustRegister("index", pages.Index())
//	s.MustRegister("blog/post", pages.Post())
//	cmd.ExecuteSite(s)
//
// A page source with no registered component fails the build before
// anything is written.
package site

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

// Site maps page IDs to components.
type Site struct {
	pages map[string]templ.Component
	mutex sync.RWMutex
}

// New creates an empty site.
func New() *Site {
	return &Site{pages: make(map[string]templ.Component)}
}

// NormalizeID cleans a page ID: slash separated, no leading "./" or "/", and
// no extension.
func NormalizeID(id string) string {
	id = strings.ReplaceAll(id, "\\", "/")
	id = strings.TrimPrefix(path.Clean("/"+id), "/")
	return strings.TrimSuffix(id, path.Ext(id))
}

// Register binds component to id. Registering an ID twice is an error.
func (s *Site) Register(id string, component templ.Component) error {
	if component == nil {
		return fmt.Errorf("page %q: nil component", id)
	}

	key := NormalizeID(id)
	if key == "" {
		return fmt.Errorf("page %q: empty page id", id)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.pages[key]; exists {
		return fmt.Errorf("page %q already registered", key)
	}
	s.pages[key] = component
	return nil
}

// MustRegister is Register that panics on error, for use in main packages.
func (s *Site) MustRegister(id string, component templ.Component) *Site {
	if err := s.Register(id, component); err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the component registered for id.
func (s *Site) Lookup(id string) (templ.Component, bool) {
	if s == nil {
		return nil, false
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	c, ok := s.pages[NormalizeID(id)]
	return c, ok
}

// IDs returns every registered page ID in lexicographic order.
func (s *Site) IDs() []string {
	if s == nil {
		return nil
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids := make([]string, 0, len(s.pages))
	for id := range s.pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered pages.
func (s *Site) Len() int {
	if s == nil {
		return 0
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.pages)
}
