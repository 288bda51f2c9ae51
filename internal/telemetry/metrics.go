// Package telemetry provides Prometheus metrics for the relay pipeline.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	postsReceived   prometheus.Counter
	postsDispatched prometheus.Counter
	dispatchErrors  prometheus.Counter
	rebuilds        prometheus.Counter
	reconnects      prometheus.Counter
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		postsReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_posts_received_total", Help: "Posts received from the upstream stream for watched accounts"})
		postsDispatched = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_posts_dispatched_total", Help: "Messages delivered to destination channels"})
		dispatchErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_dispatch_errors_total", Help: "Failed deliveries to destination channels"})
		rebuilds = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_subscription_rebuilds_total", Help: "Subscription rebuilds triggered by registry changes"})
		reconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_stream_reconnects_total", Help: "Automatic reconnects after transient stream failures"})
	})
}

// The increment helpers are nil-safe so code under test runs without Init.

// PostReceived counts a post accepted for routing.
func PostReceived() { inc(postsReceived) }

// PostDispatched counts a successful delivery.
func PostDispatched() { inc(postsDispatched) }

// DispatchFailed counts a failed delivery.
func DispatchFailed() { inc(dispatchErrors) }

// Rebuilt counts a subscription rebuild.
func Rebuilt() { inc(rebuilds) }

// Reconnected counts an automatic stream reconnect.
func Reconnected() { inc(reconnects) }

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
