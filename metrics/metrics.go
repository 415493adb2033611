// Package metrics exposes Prometheus counters for the HTTP surface and the
// claim, import and AI parse flows.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "potluck_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "code"})

	Claims = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "potluck_claims_total",
		Help: "Assignment attempts by outcome.",
	}, []string{"result"})

	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "potluck_import_rows_total",
		Help: "Imported rows by outcome.",
	}, []string{"result"})

	AIParse = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "potluck_ai_parse_total",
		Help: "Shopping list parse calls by callable status.",
	}, []string{"code"})
)

// Outcome labels.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
	ResultSkipped  = "skipped"
)

func ObserveRequest(method string, status int) {
	HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
