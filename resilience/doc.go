// Package resilience provides the retry and throttling helpers used by
// commands whose per-item work talks to remote services.
//
//	limiter := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 20, Burst: 5})
//	body, err := resilience.Retry(ctx, cfg, func(ctx context.Context) ([]byte, error) {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return nil, err
//	    }
//	    return fetch(ctx, url)
//	})
package resilience
