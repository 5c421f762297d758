/*
Package observability turns engine lifecycle hooks into logs and Prometheus
metrics.

Hooks from several consumers are fanned out with Combine:

	metrics, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Combine(metrics.Hooks(), observability.LoggingHooks(logger))
	engine, _ := formflow.New(def, formflow.WithLifecycleHooks(hooks))
*/
package observability
