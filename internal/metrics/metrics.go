package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shopapi"

const (
	MethodPassword = "password"
	MethodGoogle   = "google"
)

// Collector counts session events. A nil *Collector is valid and records nothing.
type Collector struct {
	logins          *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	logouts         *prometheus.CounterVec
	revokedRequests prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by method and result.",
		}, []string{"method", "result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Access token refreshes by result.",
		}, []string{"result"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Logouts by result.",
		}, []string{"result"}),
		revokedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revoked_requests_total",
			Help:      "Requests rejected because their access token was revoked.",
		}),
	}
	reg.MustRegister(c.logins, c.refreshes, c.logouts, c.revokedRequests)
	return c
}

func (c *Collector) ObserveLogin(method, result string) {
	if c == nil {
		return
	}
	c.logins.WithLabelValues(method, result).Inc()
}

func (c *Collector) ObserveRefresh(result string) {
	if c == nil {
		return
	}
	c.refreshes.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveLogout(result string) {
	if c == nil {
		return
	}
	c.logouts.WithLabelValues(result).Inc()
}

func (c *Collector) IncRevokedRequest() {
	if c == nil {
		return
	}
	c.revokedRequests.Inc()
}
