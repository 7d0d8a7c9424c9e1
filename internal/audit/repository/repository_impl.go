package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/loobook/internal/audit/domain"
	"github.com/smallbiznis/loobook/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.AuditLog{})
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.AuditLog, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{})

	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
		stmt = stmt.Where("target_type = ?", targetType)
	}
	if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
		stmt = stmt.Where("target_id = ?", targetID)
	}
	if actor := strings.TrimSpace(filter.Actor); actor != "" {
		stmt = stmt.Where("actor = ?", actor)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []domain.AuditLog
	stmt = pagination.Apply(stmt.Order("created_at desc, id desc"), filter.Limit, filter.Offset)
	if err := stmt.Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
