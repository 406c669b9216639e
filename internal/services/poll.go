package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/ezpbars/internal/trace"
	"golang.org/x/time/rate"
)

// PollFunc adapts a job's status into the trace client's poll fallback.
func PollFunc(svc JobService, uid string) trace.PollFunc {
	return func(ctx context.Context) (bool, error) {
		result, err := svc.GetJob(ctx, uid)
		if err != nil {
			return false, err
		}
		return result.Complete(), nil
	}
}

// HTTPPoller builds a poll fallback from any URL whose JSON body carries a `status` field, throttled to perSecond.
func HTTPPoller(rawURL string, client *http.Client, perSecond float64) trace.PollFunc {
	if client == nil {
		client = http.DefaultClient
	}
	var limiter *rate.Limiter
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	svc := &APIService{httpClient: client, limiter: limiter}

	return func(ctx context.Context) (bool, error) {
		if svc.limiter != nil {
			if err := svc.limiter.Wait(ctx); err != nil {
				return false, err
			}
		}
		resp, err := svc.Get(ctx, rawURL)
		if err != nil {
			return false, err
		}
		if resp.StatusCode != http.StatusOK {
			return false, statusError(resp)
		}
		var result JobResult
		if err := resp.Decode(&result); err != nil {
			return false, fmt.Errorf("poll %s: %w", rawURL, err)
		}
		return result.Complete(), nil
	}
}
