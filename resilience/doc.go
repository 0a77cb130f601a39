// Package resilience wraps calls to slow or failing dependencies.
//
// The answer cache uses it in two places. The background flusher retries a
// failed save with backoff. The Responder calls its answer generator through
// an Executor (circuit breaker, retry, per-attempt timeout) and caps
// background refreshes with a Bulkhead.
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        MaxFailures:  5,
//	        ResetTimeout: time.Minute,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 2})),
//	    resilience.WithTimeout(20*time.Second),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    answer, err = generate(ctx, question)
//	    return err
//	})
package resilience
