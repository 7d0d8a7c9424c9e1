package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/loobook/internal/audit"
	auditdomain "github.com/smallbiznis/loobook/internal/audit/domain"
	"github.com/smallbiznis/loobook/internal/authorization"
	"github.com/smallbiznis/loobook/internal/cache"
	"github.com/smallbiznis/loobook/internal/config"
	"github.com/smallbiznis/loobook/internal/export"
	"github.com/smallbiznis/loobook/internal/locker"
	"github.com/smallbiznis/loobook/internal/observability"
	obsmiddleware "github.com/smallbiznis/loobook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/loobook/internal/observability/metrics"
	obstracing "github.com/smallbiznis/loobook/internal/observability/tracing"
	"github.com/smallbiznis/loobook/internal/ratelimit"
	"github.com/smallbiznis/loobook/internal/reporting"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	cache.Module,
	locker.Module,
	ratelimit.Module,
	export.Module,
	reporting.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	authzSvc    authorization.Service
	auditSvc    auditdomain.Service
	reportSvc   domain.Service
	snapshotSvc domain.SnapshotService
	records     domain.RecordStore
	renderer    export.Renderer
	limiter     ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	AuthzSvc    authorization.Service
	AuditSvc    auditdomain.Service
	ReportSvc   domain.Service
	SnapshotSvc domain.SnapshotService
	Records     domain.RecordStore
	Renderer    export.Renderer
	Limiter     ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		authzSvc:    p.AuthzSvc,
		auditSvc:    p.AuditSvc,
		reportSvc:   p.ReportSvc,
		snapshotSvc: p.SnapshotSvc,
		records:     p.Records,
		renderer:    p.Renderer,
		limiter:     p.Limiter,
	}

	svc.registerReportRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerReportRoutes() {
	admin := s.engine.Group("/admin/reports", s.AdminRequired())

	view := s.authorize(authorization.ObjectReport, authorization.ActionReportView)
	download := []gin.HandlerFunc{
		s.authorize(authorization.ObjectReport, authorization.ActionReportExport),
		s.exportRateLimit(),
	}

	// -------- Live reports --------
	admin.GET("/aggregate", view, s.GetAggregate)
	admin.GET("/trend", view, s.GetTrend)
	admin.GET("/rankings", view, s.GetRankings)
	admin.GET("/rankings/export.csv", append(download, s.ExportRankingsCSV)...)
	admin.GET("/compare", view, s.GetComparison)

	// -------- Snapshots --------
	admin.POST("/snapshots", s.authorize(authorization.ObjectReport, authorization.ActionReportGenerate), s.CreateSnapshot)
	admin.POST("/snapshots/bulk", s.authorize(authorization.ObjectReport, authorization.ActionReportGenerate), s.BulkCreateSnapshots)
	admin.GET("/snapshots", view, s.ListSnapshots)
	admin.GET("/snapshots/:id", view, s.GetSnapshot)
	admin.DELETE("/snapshots/:id", s.authorize(authorization.ObjectReport, authorization.ActionReportDelete), s.DeleteSnapshot)
	admin.GET("/snapshots/:id/export.pdf", append(download, s.ExportSnapshotPDF)...)
	admin.GET("/snapshots/:id/export.csv", append(download, s.ExportSnapshotCSV)...)

	// -------- Ingestion --------
	admin.POST("/records/import", s.authorize(authorization.ObjectReport, authorization.ActionReportImport), s.ImportRecords)
	admin.PUT("/businesses/:id", s.authorize(authorization.ObjectBusiness, authorization.ActionBusinessManage), s.UpsertBusiness)

	// -------- Audit --------
	admin.GET("/audit-logs", s.authorize(authorization.ObjectAudit, authorization.ActionAuditView), s.ListAuditLogs)
}
