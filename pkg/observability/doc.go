/*
Package observability turns engine lifecycle hooks into prometheus metrics and
structured log lines.

	m, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	engine := runtime.New(store, sessions, resolver,
		runtime.WithHooks(m.Hooks()),
		runtime.WithHooks(observability.LogHooks(logger)),
	)
*/
package observability
