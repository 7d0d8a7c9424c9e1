package cache

import (
	"strings"
	"time"

	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("cache",
	fx.Provide(NewReportCache),
)

// ReportCache memoizes computed trend and ranking responses.
type ReportCache interface {
	GetTrend(key string) (domain.Trend, bool)
	SetTrend(key string, trend domain.Trend, ttl time.Duration)
	GetRanking(key string) (domain.RankResult, bool)
	SetRanking(key string, result domain.RankResult, ttl time.Duration)
	Invalidate()
}

type reportCache struct {
	trends   Cache[string, domain.Trend]
	rankings Cache[string, domain.RankResult]
}

func NewReportCache() ReportCache {
	return &reportCache{
		trends:   NewTTLCache[string, domain.Trend](),
		rankings: NewTTLCache[string, domain.RankResult](),
	}
}

func (c *reportCache) GetTrend(key string) (domain.Trend, bool) {
	return c.trends.Get(key)
}

func (c *reportCache) SetTrend(key string, trend domain.Trend, ttl time.Duration) {
	if key == "" {
		return
	}
	c.trends.Set(key, trend, ttl)
}

func (c *reportCache) GetRanking(key string) (domain.RankResult, bool) {
	return c.rankings.Get(key)
}

func (c *reportCache) SetRanking(key string, result domain.RankResult, ttl time.Duration) {
	if key == "" {
		return
	}
	c.rankings.Set(key, result, ttl)
}

// Invalidate drops every memoized response, e.g. after new records are imported.
func (c *reportCache) Invalidate() {
	c.trends.Purge()
	c.rankings.Purge()
}

// Key joins non-empty normalized parts into a cache key.
func Key(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
