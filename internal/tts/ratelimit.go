package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"golang.org/x/time/rate"
)

type rateLimited struct {
	next    Synthesizer
	limiter *rate.Limiter
}

// NewRateLimited spaces calls to s so that at most requestsPerMinute reach
// the backend. A non-positive limit returns s unchanged.
func NewRateLimited(s Synthesizer, requestsPerMinute int) Synthesizer {
	if requestsPerMinute <= 0 {
		return s
	}
	return &rateLimited{
		next:    s,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

func (r *rateLimited) Synthesize(ctx context.Context, req Request) (audio.Segment, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return audio.Segment{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Synthesize(ctx, req)
}
