package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/actorcontext"
	auditdomain "github.com/smallbiznis/loobook/internal/audit/domain"
	"github.com/smallbiznis/loobook/internal/clock"
	obscontext "github.com/smallbiznis/loobook/internal/observability/context"
	"github.com/smallbiznis/loobook/pkg/db/pagination"
	"github.com/smallbiznis/loobook/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, action, targetType, targetID string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	targetType = strings.TrimSpace(targetType)
	if targetType == "" {
		targetType = "unknown"
	}

	payload := map[string]any{}
	for key, value := range metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		Actor:      actorcontext.ActorOrSystem(ctx),
		Action:     action,
		TargetType: targetType,
		TargetID:   normalize(targetID),
		RequestID:  normalize(requestID(ctx)),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if len(payload) > 0 {
		entry.Metadata = datatypes.JSONMap(payload)
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}
	if req.PageSize < 0 || req.Page < 0 {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageSize
	}

	page := req.Pagination.WithDefault(defaultPageSize)
	if page.PageSize > maxPageSize {
		page.PageSize = maxPageSize
	}

	items, total, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Actor:      req.Actor,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Limit:      page.PageSize,
		Offset:     page.Offset(),
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}
	if items == nil {
		items = []auditdomain.AuditLog{}
	}

	return auditdomain.ListAuditLogResponse{
		PageInfo:  pagination.BuildPageInfo(page, total),
		AuditLogs: items,
	}, nil
}

func requestID(ctx context.Context) string {
	if id := obscontext.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return correlation.ID(ctx)
}

func normalize(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
