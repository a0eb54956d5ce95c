package httphandler

import (
	"context"
	"net/http"
	"time"

	// Packages
	queue "github.com/mutablelogic/go-httpqueue/pkg/queue"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	prometheus "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type metrics struct {
	manager *queue.Manager
	tasks   *prometheus.Desc
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	metricsTimeout = 30 * time.Second
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// RegisterMetricsHandler registers a HTTP handler for prometheus
// metrics on the provided router with the given path prefix.
func RegisterMetricsHandler(router *http.ServeMux, prefix string, manager *queue.Manager) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(&metrics{
		manager: manager,
		tasks: prometheus.NewDesc(
			"httpqueue_tasks",
			"Number of tasks by type and status",
			[]string{"namespace", "type", "status"}, nil,
		),
	})
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	router.HandleFunc(joinPath(prefix, "metrics"), func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.ServeHTTP(w, r)
		default:
			_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
		}
	})
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - COLLECTOR

// Describe sends metric descriptors to the channel
func (m *metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.tasks
}

// Collect fetches task counts from the database and sends them to the
// channel
func (m *metrics) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), metricsTimeout)
	defer cancel()

	statuses, err := m.manager.TaskStats(ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(m.tasks, err)
		return
	}

	namespace := m.manager.Namespace()
	for _, status := range statuses {
		ch <- prometheus.MustNewConstMetric(
			m.tasks,
			prometheus.GaugeValue,
			float64(status.Count),
			namespace,
			status.Type,
			status.Status,
		)
	}
}
