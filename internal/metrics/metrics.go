// Package metrics holds the Prometheus collectors shared by the site components.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a private registry plus the collectors recorded into it. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	catalogRequests *prometheus.CounterVec
	playerActions   *prometheus.CounterVec
	pageRenders     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go runtime
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		catalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "podcastr_catalog_requests_total",
			Help: "Content API requests issued by the catalog fetcher.",
		}, []string{"op", "result"}),
		playerActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "podcastr_player_actions_total",
			Help: "Player store operations applied.",
		}, []string{"action"}),
		pageRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "podcastr_page_renders_total",
			Help: "Page generations by page and result.",
		}, []string{"page", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "podcastr_http_requests_total",
			Help: "HTTP responses by status code.",
		}, []string{"code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.catalogRequests,
		m.playerActions,
		m.pageRenders,
		m.httpRequests,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CatalogRequest counts one content API call by operation and outcome.
func (m *Metrics) CatalogRequest(op string, err error) {
	if m == nil {
		return
	}
	m.catalogRequests.WithLabelValues(op, result(err)).Inc()
}

// PlayerAction counts an applied player operation. It matches the observer
// signature of player.WithObserver.
func (m *Metrics) PlayerAction(action string) {
	if m == nil {
		return
	}
	m.playerActions.WithLabelValues(action).Inc()
}

// PageRender counts a page generation by page and outcome.
func (m *Metrics) PageRender(page string, err error) {
	if m == nil {
		return
	}
	m.pageRenders.WithLabelValues(page, result(err)).Inc()
}

// HTTPResponse counts a response by status code.
func (m *Metrics) HTTPResponse(code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(code).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
