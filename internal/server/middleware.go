package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/loobook/internal/actorcontext"
	"go.uber.org/zap"
)

const defaultAdminHeader = "X-Admin-User"

// AdminRequired resolves the admin user forwarded by the gateway and stores
// it on the request context.
func (s *Server) AdminRequired() gin.HandlerFunc {
	header := strings.TrimSpace(s.cfg.Admin.Header)
	if header == "" {
		header = defaultAdminHeader
	}
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(header))
		if actor == "" || actor == actorcontext.SystemActor {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := actorcontext.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// exportRateLimit throttles downloads per admin user. Limiter failures let
// the request through.
func (s *Server) exportRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		actor, _ := actorcontext.ActorFromContext(c.Request.Context())
		res, err := s.limiter.AllowExport(c.Request.Context(), actor)
		if err != nil {
			s.log.Warn("export rate limit check failed", zap.String("actor", actor), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			retry := int(math.Ceil(res.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
