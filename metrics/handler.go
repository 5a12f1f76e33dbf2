package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler registers the collectors and returns the scrape endpoint.
func Handler() http.Handler {
	MustRegister()
	return promhttp.Handler()
}
