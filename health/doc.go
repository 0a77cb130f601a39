// Package health provides health checks and HTTP probe endpoints.
//
// A Checker reports a Result with a Status of healthy, degraded or
// unhealthy. An Aggregator runs registered checkers concurrently under a
// shared deadline and reports the worst status among them.
//
//	agg := health.NewAggregator()
//	_ = agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{}))
//	_ = agg.Register(cacheChecker)
//
//	router := mux.NewRouter()
//	health.RegisterRoutes(router, agg)
//
// Routes:
//
//	GET /healthz        liveness, always 200
//	GET /readyz         200 OK or DEGRADED, 503 UNHEALTHY
//	GET /health         JSON report of every check
//	GET /health/{name}  JSON result of one check
package health
