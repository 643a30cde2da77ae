// Package resilience wraps capability calls with a per-call timeout, retry
// with exponential backoff and a circuit breaker.
//
// Retries and breaker accounting follow the errors taxonomy: only retryable
// AppErrors are retried or counted as backend failures.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("generation"))
//	out, err := resilience.Call(cb, func() (Response, error) {
//	    return resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (Response, error) {
//	        return resilience.WithTimeout(ctx, 30*time.Second, "generation", call)
//	    })
//	})
package resilience
