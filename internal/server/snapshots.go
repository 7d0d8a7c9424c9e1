package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/loobook/internal/audit/domain"
	"github.com/smallbiznis/loobook/internal/export"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"go.uber.org/zap"
)

type createSnapshotRequest struct {
	BusinessID json.Number `json:"business_id"`
	Year       int         `json:"year"`
	Month      int         `json:"month"`
	Notes      string      `json:"notes"`
}

type bulkSnapshotRequest struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Notes string `json:"notes"`
}

func (s *Server) CreateSnapshot(c *gin.Context) {
	var req createSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	businessID, err := snowflake.ParseString(strings.TrimSpace(req.BusinessID.String()))
	if err != nil || businessID <= 0 {
		AbortWithError(c, domain.ErrInvalidBusinessID)
		return
	}

	resp, err := s.snapshotSvc.Generate(c.Request.Context(), domain.GenerateRequest{
		BusinessID: businessID,
		Year:       req.Year,
		Month:      req.Month,
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.ActionSnapshotCreate, auditdomain.TargetSnapshot, resp.ID.String(), map[string]any{
		"business_id": resp.BusinessID.String(),
		"year":        resp.Year,
		"month":       resp.Month,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) BulkCreateSnapshots(c *gin.Context) {
	var req bulkSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.snapshotSvc.BulkGenerate(c.Request.Context(), domain.BulkGenerateRequest{
		Year:  req.Year,
		Month: req.Month,
		Notes: strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.ActionSnapshotBulk, auditdomain.TargetSnapshot, "", map[string]any{
		"year":      resp.Year,
		"month":     resp.Month,
		"succeeded": len(resp.Succeeded),
		"skipped":   len(resp.Skipped),
		"failed":    len(resp.Failed),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSnapshots(c *gin.Context) {
	var query struct {
		BusinessID string `form:"business_id"`
		Year       string `form:"year"`
		Month      string `form:"month"`
		Page       string `form:"page"`
		PageSize   string `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	businessID, err := parseOptionalSnowflakeID(query.BusinessID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, err := parseOptionalInt(query.Year)
	if err != nil {
		AbortWithError(c, domain.ErrInvalidYear)
		return
	}
	month, err := parseOptionalInt(query.Month)
	if err != nil {
		AbortWithError(c, domain.ErrInvalidMonth)
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

	req := domain.ListSnapshotsRequest{
		BusinessID: businessID,
		Year:       year,
		Month:      month,
	}
	if page != nil {
		req.Page = *page
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}

	resp, err := s.snapshotSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSnapshot(c *gin.Context) {
	id, err := parseSnapshotID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.snapshotSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteSnapshot(c *gin.Context) {
	id, err := parseSnapshotID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.snapshotSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.ActionSnapshotDelete, auditdomain.TargetSnapshot, id.String(), nil)

	c.Status(http.StatusNoContent)
}

func (s *Server) ExportSnapshotPDF(c *gin.Context) {
	snapshot, business, ok := s.loadSnapshotForExport(c)
	if !ok {
		return
	}

	doc, err := s.renderer.SnapshotPDF(c.Request.Context(), snapshot, business)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writeAttachment(c, export.SnapshotFilename(businessName(business), snapshot, "pdf"), export.ContentTypePDF, doc)
}

func (s *Server) ExportSnapshotCSV(c *gin.Context) {
	snapshot, business, ok := s.loadSnapshotForExport(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.SnapshotCSV(c.Request.Context(), &buf, snapshot); err != nil {
		AbortWithError(c, err)
		return
	}
	writeAttachment(c, export.SnapshotFilename(businessName(business), snapshot, "csv"), export.ContentTypeCSV, buf.Bytes())
}

// loadSnapshotForExport resolves the snapshot and, best effort, its business
// for naming the file.
func (s *Server) loadSnapshotForExport(c *gin.Context) (*domain.ReportSnapshot, *domain.Business, bool) {
	id, err := parseSnapshotID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return nil, nil, false
	}

	ctx := c.Request.Context()
	snapshot, err := s.snapshotSvc.Get(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return nil, nil, false
	}

	var business *domain.Business
	if s.records != nil {
		business, err = s.records.GetBusiness(ctx, snapshot.BusinessID)
		if err != nil {
			s.log.Warn("business lookup for export failed",
				zap.String("business_id", snapshot.BusinessID.String()),
				zap.Error(err),
			)
			business = nil
		}
	}
	return snapshot, business, true
}

func businessName(business *domain.Business) string {
	if business == nil {
		return ""
	}
	return business.Name
}
