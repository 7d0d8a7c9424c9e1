package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/loobook/internal/audit/domain"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
)

type upsertBusinessRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	ApprovalStatus string `json:"approval_status"`
	IsActive       *bool  `json:"is_active"`
}

// ImportRecords accepts a JSON array of raw booking payloads.
func (s *Server) ImportRecords(c *gin.Context) {
	raws, err := decodeRawRecords(c)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reportSvc.ImportRecords(c.Request.Context(), raws)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.ActionRecordsImport, auditdomain.TargetRecords, "", map[string]any{
		"received": len(raws),
		"imported": resp.Imported,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// decodeRawRecords keeps JSON numbers as json.Number so snowflake-sized ids
// survive intact.
func decodeRawRecords(c *gin.Context) ([]domain.RawRecord, error) {
	if c.Request.Body == nil {
		return nil, ErrInvalidRequest
	}
	decoder := json.NewDecoder(c.Request.Body)
	decoder.UseNumber()

	var payloads []map[string]any
	if err := decoder.Decode(&payloads); err != nil {
		return nil, err
	}
	raws := make([]domain.RawRecord, 0, len(payloads))
	for _, payload := range payloads {
		raws = append(raws, domain.RawRecord(payload))
	}
	return raws, nil
}

func (s *Server) UpsertBusiness(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id <= 0 {
		AbortWithError(c, domain.ErrInvalidBusinessID)
		return
	}

	var req upsertBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reportSvc.UpsertBusiness(c.Request.Context(), domain.UpsertBusinessRequest{
		ID:             id,
		Name:           req.Name,
		Type:           req.Type,
		ApprovalStatus: domain.ApprovalStatus(req.ApprovalStatus),
		IsActive:       req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.ActionBusinessUpsert, auditdomain.TargetBusiness, id.String(), map[string]any{
		"approval_status": string(resp.ApprovalStatus),
		"is_active":       resp.IsActive,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
