// Package discovery finds island markers in rendered markup.
//
// Markup is produced by the build's own renderer, so markers are matched
// with anchored patterns over the literal attribute syntax rather than with
// a full parser.
package discovery

import (
	"encoding/json"
	"html"
	"regexp"
	"strconv"

	"github.com/conneroisu/archipelago/internal/types"
)

var (
	islandAttr = regexp.MustCompile(`data-island="([^"]+)"`)
	// markerTag matches the opening tag written by the island wrapper, in
	// both raw and pretty-printed form.
	markerTag = regexp.MustCompile(`<div id="island-(\d+)" data-island="([^"]+)" data-props="([^"]*)"`)
)

// Discover returns the distinct component identifiers referenced by markup.
func Discover(markup string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, m := range islandAttr.FindAllStringSubmatch(markup, -1) {
		ids[html.UnescapeString(m[1])] = struct{}{}
	}
	return ids
}

// References returns every island marker of markup in document order.
// Markers whose props cannot be decoded are returned with nil Props.
func References(markup string) []types.IslandReference {
	matches := markerTag.FindAllStringSubmatch(markup, -1)
	refs := make([]types.IslandReference, 0, len(matches))
	for _, m := range matches {
		id, _ := strconv.Atoi(m[1])
		ref := types.IslandReference{
			Component:  html.UnescapeString(m[2]),
			InstanceID: id,
		}
		var props map[string]any
		if err := json.Unmarshal([]byte(html.UnescapeString(m[3])), &props); err == nil {
			ref.Props = props
		}
		refs = append(refs, ref)
	}
	return refs
}

// Combine counts, for each identifier, the number of pages referencing it.
func Combine(pages []string) types.UsedComponentSet {
	used := make(types.UsedComponentSet)
	for _, markup := range pages {
		for id := range Discover(markup) {
			used[id]++
		}
	}
	return used
}

// CombineRendered is Combine over rendered pages.
func CombineRendered(pages []*types.RenderedPage) types.UsedComponentSet {
	markups := make([]string, 0, len(pages))
	for _, p := range pages {
		markups = append(markups, p.Markup)
	}
	return Combine(markups)
}
