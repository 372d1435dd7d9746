package routes

import (
	"net/http"
	"slices"
)

// Group organizes routes under a common prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Wrap returns a copy of g in which every route selected by match is
// wrapped with mw. Children are left unchanged.
func (g Group) Wrap(mw func(http.Handler) http.Handler, match func(Route) bool) Group {
	g.Routes = slices.Clone(g.Routes)
	for i, r := range g.Routes {
		if match(r) {
			g.Routes[i].Handler = mw(r.Handler).ServeHTTP
		}
	}
	return g
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		registerGroup(mux, "", group)
	}
}

func registerGroup(mux *http.ServeMux, parentPrefix string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		mux.HandleFunc(route.String(fullPrefix), route.Handler)
	}
	for _, child := range group.Children {
		registerGroup(mux, fullPrefix, child)
	}
}
