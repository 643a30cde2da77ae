package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/voixagent/voixagent/component"
)

// ProviderInfo is one capability binding shown in the summary.
type ProviderInfo struct {
	Capability string
	Provider   string
	Model      string
}

// Summary collects and prints what the server started with.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	out             io.Writer
	providers       []ProviderInfo
	plugins         []string
	routes          []component.Route
}

// NewSummary creates a summary that prints to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version, out: os.Stdout}
}

// SetOutput redirects the summary.
func (s *Summary) SetOutput(w io.Writer) { s.out = w }

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) { s.startupDuration = d }

// TrackProvider records the provider bound to a capability by default.
func (s *Summary) TrackProvider(capability, provider, model string) {
	s.providers = append(s.providers, ProviderInfo{Capability: capability, Provider: provider, Model: model})
}

// TrackPlugins records the default plugin pipeline.
func (s *Summary) TrackPlugins(names ...string) {
	s.plugins = append(make([]string, 0, len(s.plugins)+len(names)), s.plugins...)
	s.plugins = append(s.plugins, names...)
}

// TrackRoute records an HTTP route not reported by a RouteProvider.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, component.Route{Method: method, Path: path, Handler: handler})
}

// Display prints the summary. Infrastructure and routes are collected from
// components implementing Describable and RouteProvider.
func (s *Summary) Display(ctx context.Context, registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n%s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	var infra []component.Description
	routes := append([]component.Route(nil), s.routes...)
	if registry != nil {
		for _, c := range registry.All() {
			if d, ok := c.(component.Describable); ok {
				desc := d.Describe()
				if desc.Name == "" {
					desc.Name = c.Name()
				}
				infra = append(infra, desc)
			}
			if rp, ok := c.(component.RouteProvider); ok {
				routes = append(routes, rp.Routes()...)
			}
		}
	}

	if len(infra) > 0 {
		fmt.Fprintf(w, "\nInfrastructure\n")
		for i, d := range infra {
			details := d.Details
			if d.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, d.Port)
			}
			fmt.Fprintf(w, "   %s %s [%s]: %s\n", treePrefix(i, len(infra)), d.Name, d.Type, details)
		}
	}

	if len(s.providers) > 0 {
		fmt.Fprintf(w, "\nProviders\n")
		for i, p := range s.providers {
			model := p.Model
			if model == "" {
				model = "default"
			}
			fmt.Fprintf(w, "   %s %-5s %s (%s)\n", treePrefix(i, len(s.providers)), p.Capability, p.Provider, model)
		}
	}

	if s.plugins != nil {
		fmt.Fprintf(w, "\nPlugins\n")
		if len(s.plugins) == 0 {
			fmt.Fprintf(w, "   └── none enabled\n")
		}
		for i, name := range s.plugins {
			fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(s.plugins)), name)
		}
	}

	if len(routes) > 0 {
		fmt.Fprintf(w, "\nRoutes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s -> %s\n", treePrefix(i, len(routes)), r.Method, r.Path, r.Handler)
		}
	}

	if registry != nil {
		results := registry.HealthAll(ctx)
		if len(results) > 0 {
			fmt.Fprintf(w, "\nHealth (%s)\n", component.Overall(results))
			for i, h := range results {
				msg := ""
				if h.Message != "" {
					msg = ": " + h.Message
				}
				fmt.Fprintf(w, "   %s %s %s %s%s\n", treePrefix(i, len(results)), healthStatusIcon(h.Status),
					h.Name, strings.ToLower(string(h.Status)), msg)
			}
		}
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "[ok]"
	case component.StatusDegraded:
		return "[!!]"
	case component.StatusUnhealthy:
		return "[xx]"
	default:
		return "[??]"
	}
}
