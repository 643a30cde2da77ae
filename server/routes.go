package server

import (
	"cmp"
	"path"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voixagent/voixagent/component"
)

// operational routes are listed after the API in the startup summary.
var operational = []string{"/health", "/info", "/metrics", "/metrics/stream", "/metrics/prometheus"}

var methodRank = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// Routes lists the engine's routes: API paths first, then operational ones,
// each group by path and then method.
func (s *Server) Routes() []component.Route {
	infos := s.engine.Routes()
	slices.SortFunc(infos, func(a, b gin.RouteInfo) int {
		return cmp.Or(
			cmpBool(slices.Contains(operational, a.Path), slices.Contains(operational, b.Path)),
			strings.Compare(a.Path, b.Path),
			cmp.Compare(rank(a.Method), rank(b.Method)),
		)
	})
	routes := make([]component.Route, len(infos))
	for i, r := range infos {
		routes[i] = component.Route{Method: r.Method, Path: r.Path, Handler: handlerName(r.Handler)}
		if slices.Contains(operational, r.Path) {
			routes[i].Handler += " ⚙️"
		}
	}
	return routes
}

func rank(method string) int {
	if i := slices.Index(methodRank, method); i >= 0 {
		return i
	}
	return len(methodRank)
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}

// handlerName shortens gin's handler symbol:
// "github.com/voixagent/voixagent/server.(*API).getSession-fm" becomes
// "API.getSession" and a closure "endpoint.Health.func1" becomes "health".
func handlerName(symbol string) string {
	name := path.Base(strings.TrimSuffix(symbol, "-fm"))
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)
	parts := strings.Split(name, ".")

	closure := false
	for len(parts) > 1 && strings.HasPrefix(parts[len(parts)-1], "func") {
		parts, closure = parts[:len(parts)-1], true
	}
	if closure {
		return strings.ToLower(parts[len(parts)-1])
	}
	if len(parts) > 1 && strings.ToLower(parts[0]) == parts[0] {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}
