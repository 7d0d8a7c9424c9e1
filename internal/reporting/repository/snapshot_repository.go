package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/pkg/db"
	"github.com/smallbiznis/loobook/pkg/db/pagination"
	"gorm.io/gorm"
)

type snapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) domain.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Insert relies on the (business_id, year, month) unique index; a conflict is
// reported as ErrDuplicateReport and the stored row is left untouched.
func (r *snapshotRepository) Insert(ctx context.Context, snapshot *domain.ReportSnapshot) error {
	row := toSnapshotRow(snapshot)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicateReport
		}
		return err
	}
	return nil
}

func (r *snapshotRepository) FindByID(ctx context.Context, id snowflake.ID) (*domain.ReportSnapshot, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *snapshotRepository) FindByPeriod(ctx context.Context, businessID snowflake.ID, year, month int) (*domain.ReportSnapshot, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).Where("business_id = ? AND year = ? AND month = ?", businessID, year, month))
}

func (r *snapshotRepository) List(ctx context.Context, filter domain.SnapshotFilter) ([]domain.ReportSnapshot, error) {
	stmt := r.filtered(ctx, filter).
		Order("year DESC").
		Order("month DESC").
		Order("business_id ASC")
	stmt = pagination.Apply(stmt, filter.Limit, filter.Offset)

	var rows []reportSnapshotRow
	if err := stmt.Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]domain.ReportSnapshot, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

func (r *snapshotRepository) Count(ctx context.Context, filter domain.SnapshotFilter) (int64, error) {
	var count int64
	err := r.filtered(ctx, filter).Count(&count).Error
	return count, err
}

func (r *snapshotRepository) Delete(ctx context.Context, id snowflake.ID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM report_snapshots WHERE id = ?`, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *snapshotRepository) filtered(ctx context.Context, filter domain.SnapshotFilter) *gorm.DB {
	stmt := r.db.WithContext(ctx).Model(&reportSnapshotRow{})
	if filter.BusinessID != nil {
		stmt = stmt.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.Year != nil {
		stmt = stmt.Where("year = ?", *filter.Year)
	}
	if filter.Month != nil {
		stmt = stmt.Where("month = ?", *filter.Month)
	}
	return stmt
}

func (r *snapshotRepository) findOne(_ context.Context, stmt *gorm.DB) (*domain.ReportSnapshot, error) {
	var row reportSnapshotRow
	if err := stmt.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	snapshot := row.toDomain()
	return &snapshot, nil
}
