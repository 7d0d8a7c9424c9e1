package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/loobook/internal/audit/domain"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"go.uber.org/zap"
)

// recordAudit writes an audit entry for a completed mutation. A failed write
// is logged and does not change the response.
func (s *Server) recordAudit(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(c.Request.Context(), action, targetType, targetID, metadata); err != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	if s.auditSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var query struct {
		Action     string `form:"action"`
		TargetType string `form:"target_type"`
		TargetID   string `form:"target_id"`
		Actor      string `form:"actor"`
		StartAt    string `form:"start"`
		EndAt      string `form:"end"`
		Page       string `form:"page"`
		PageSize   string `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startAt, err := parseOptionalTime(query.StartAt, false)
	if err != nil {
		AbortWithError(c, domain.ErrInvalidDateRange)
		return
	}
	endAt, err := parseOptionalTime(query.EndAt, true)
	if err != nil {
		AbortWithError(c, domain.ErrInvalidDateRange)
		return
	}
	page, err := parseOptionalInt(query.Page)
	if err != nil {
		AbortWithError(c, domain.ErrInvalidPage)
		return
	}
	pageSize, err := parseOptionalInt(query.PageSize)
	if err != nil {
		AbortWithError(c, domain.ErrInvalidPageSize)
		return
	}

	req := auditdomain.ListAuditLogRequest{
		Action:     query.Action,
		TargetType: query.TargetType,
		TargetID:   query.TargetID,
		Actor:      query.Actor,
		StartAt:    startAt,
		EndAt:      endAt,
	}
	if page != nil {
		req.Page = *page
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, auditListError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func auditListError(err error) error {
	switch {
	case errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return domain.ErrInvalidDateRange
	case errors.Is(err, auditdomain.ErrInvalidPageSize):
		return domain.ErrInvalidPageSize
	default:
		return err
	}
}
