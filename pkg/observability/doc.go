/*
Package observability turns resolution hooks into logs and Prometheus metrics.

Metrics and Logging each return a domain.Hooks value; Combine fans a single
event out to several of them:

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Combine(m.Hooks(), observability.Logging(logger))
*/
package observability
