package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionSnapshotCreate = "report.snapshot.create"
	ActionSnapshotBulk   = "report.snapshot.bulk"
	ActionSnapshotDelete = "report.snapshot.delete"
	ActionRecordsImport  = "report.records.import"
	ActionBusinessUpsert = "business.upsert"
	ActionRoleGrant      = "admin.role.grant"
)

const (
	TargetSnapshot = "report_snapshot"
	TargetBusiness = "business"
	TargetRecords  = "transaction_records"
	TargetMember   = "admin_member"
)

// AuditLog is an append-only record of a mutating admin action.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Actor      string            `gorm:"type:varchar(128);not null;index" json:"actor"`
	Action     string            `gorm:"type:varchar(64);not null;index" json:"action"`
	TargetType string            `gorm:"type:varchar(64);not null" json:"target_type"`
	TargetID   *string           `gorm:"type:varchar(64)" json:"target_id,omitempty"`
	RequestID  *string           `gorm:"type:varchar(64)" json:"request_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	Actor      string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	Actor      string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
	Offset     int
}

type Service interface {
	// Record stores an entry for the actor on ctx.
	Record(ctx context.Context, action, targetType, targetID string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, int64, error)
}

var (
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidPageSize  = errors.New("invalid_page_size")
)
