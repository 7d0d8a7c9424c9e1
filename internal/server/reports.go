package server

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/loobook/internal/export"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/ranking"
)

func (s *Server) GetAggregate(c *gin.Context) {
	var query struct {
		BusinessID     string   `form:"business_id"`
		Start          string   `form:"start"`
		End            string   `form:"end"`
		TimeField      string   `form:"time_field"`
		PaymentStatus  []string `form:"payment_status"`
		IncludePending string   `form:"include_pending"`
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
	window, err := parseDateRange(query.Start, query.End)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	field, err := domain.ParseTimeField(query.TimeField)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	statuses, err := parsePaymentStatuses(query.PaymentStatus)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	includePending, err := parseOptionalBool(query.IncludePending)
	if err != nil {
		AbortWithError(c, newValidationError("include_pending", "invalid_include_pending", "invalid include_pending"))
		return
	}

	resp, err := s.reportSvc.Aggregate(c.Request.Context(), domain.AggregateRequest{
		BusinessID:      businessID,
		DateRange:       window,
		TimeField:       field,
		PaymentStatuses: statuses,
		IncludePending:  includePending != nil && *includePending,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTrend(c *gin.Context) {
	var query struct {
		BusinessID    string `form:"business_id"`
		Period        string `form:"period"`
		Buckets       string `form:"buckets"`
		ReferenceDate string `form:"reference_date"`
		TimeField     string `form:"time_field"`
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
	periodRaw := query.Period
	if strings.TrimSpace(periodRaw) == "" {
		periodRaw = string(domain.PeriodDaily)
	}
	trendPeriod, err := domain.ParsePeriod(periodRaw)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	buckets, err := parseOptionalInt(query.Buckets)
	if err != nil {
		AbortWithError(c, domain.ErrInvalidBucketCount)
		return
	}
	bucketCount := defaultBuckets(trendPeriod)
	if buckets != nil {
		bucketCount = *buckets
	}
	reference, err := parseOptionalTime(query.ReferenceDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("reference_date", "invalid_reference_date", "invalid reference_date"))
		return
	}
	field, err := domain.ParseTimeField(query.TimeField)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := domain.TrendRequest{
		BusinessID:  businessID,
		Period:      trendPeriod,
		BucketCount: bucketCount,
		TimeField:   field,
	}
	if reference != nil {
		req.ReferenceDate = *reference
	}

	resp, err := s.reportSvc.Trend(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type rankingQuery struct {
	Start     string `form:"start"`
	End       string `form:"end"`
	TimeField string `form:"time_field"`
	SortBy    string `form:"sort_by"`
	SortDir   string `form:"sort_dir"`
	Page      string `form:"page"`
	PageSize  string `form:"page_size"`
}

func (q rankingQuery) toRequest() (domain.RankRequest, error) {
	window, err := parseDateRange(q.Start, q.End)
	if err != nil {
		return domain.RankRequest{}, err
	}
	field, err := domain.ParseTimeField(q.TimeField)
	if err != nil {
		return domain.RankRequest{}, err
	}
	sortKey, err := ranking.ParseSortKey(strings.TrimSpace(q.SortBy))
	if err != nil {
		return domain.RankRequest{}, err
	}
	direction, err := ranking.ParseSortDirection(strings.ToLower(strings.TrimSpace(q.SortDir)))
	if err != nil {
		return domain.RankRequest{}, err
	}
	page, err := parseOptionalInt(q.Page)
	if err != nil {
		return domain.RankRequest{}, domain.ErrInvalidPage
	}
	pageSize, err := parseOptionalInt(q.PageSize)
	if err != nil {
		return domain.RankRequest{}, domain.ErrInvalidPageSize
	}

	req := domain.RankRequest{
		DateRange:     window,
		TimeField:     field,
		SortKey:       sortKey,
		SortDirection: direction,
	}
	if page != nil {
		req.Page = *page
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}
	return req, nil
}

func (s *Server) GetRankings(c *gin.Context) {
	var query rankingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req, err := query.toRequest()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.Rank(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportRankingsCSV(c *gin.Context) {
	var query rankingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req, err := query.toRequest()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rows, err := s.reportSvc.RankAll(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.RankingCSV(c.Request.Context(), &buf, rows); err != nil {
		AbortWithError(c, err)
		return
	}
	writeAttachment(c, export.RankingFilename(req.DateRange), export.ContentTypeCSV, buf.Bytes())
}

func (s *Server) GetComparison(c *gin.Context) {
	var query struct {
		BusinessID    string `form:"business_id"`
		Start         string `form:"start"`
		End           string `form:"end"`
		PreviousStart string `form:"previous_start"`
		PreviousEnd   string `form:"previous_end"`
		TimeField     string `form:"time_field"`
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
	current, err := parseDateRange(query.Start, query.End)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if current == nil {
		AbortWithError(c, domain.ErrInvalidDateRange)
		return
	}
	previous, err := parseDateRange(query.PreviousStart, query.PreviousEnd)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	field, err := domain.ParseTimeField(query.TimeField)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.Compare(c.Request.Context(), domain.CompareRequest{
		BusinessID: businessID,
		Current:    *current,
		Previous:   previous,
		TimeField:  field,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func defaultBuckets(p domain.Period) int {
	switch p {
	case domain.PeriodWeekly:
		return 12
	case domain.PeriodMonthly:
		return 12
	default:
		return 30
	}
}

func writeAttachment(c *gin.Context, filename string, contentType string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Cache-Control", "no-store")
	c.Header("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	c.Data(http.StatusOK, contentType, body)
}
