package ratelimit

import (
	"context"
	"fmt"
	"strings"
)

const keyExportActor = "reports:export:actor:%s"

// Limiter throttles report downloads per admin user.
type Limiter interface {
	AllowExport(ctx context.Context, actor string) (Result, error)
}

type exportLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func (l *exportLimiter) AllowExport(ctx context.Context, actor string) (Result, error) {
	key := fmt.Sprintf(keyExportActor, strings.TrimSpace(actor))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
