package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/clock"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/filter"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const importBatchSize = 500

type recordStore struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewRecordStore(db *gorm.DB, genID *snowflake.Node, clk clock.Clock) domain.RecordStore {
	return &recordStore{db: db, genID: genID, clock: clk}
}

func (r *recordStore) FetchTransactionRecords(ctx context.Context, query domain.RecordQuery) ([]domain.TransactionRecord, error) {
	column := timeColumn(query.TimeField)

	stmt := r.db.WithContext(ctx).Model(&transactionRecordRow{})
	if query.BusinessID != nil {
		stmt = stmt.Where("business_id = ?", *query.BusinessID)
	}
	if query.DateRange != nil {
		stmt = stmt.Where(column+" >= ? AND "+column+" <= ?", query.DateRange.Start.UTC(), query.DateRange.End.UTC())
	}

	var rows []transactionRecordRow
	if err := stmt.Order(column + " ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]domain.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		record := filter.Normalize(row.Payload)
		record.ID = row.ID
		record.BusinessID = row.BusinessID
		records = append(records, record)
	}
	return records, nil
}

func (r *recordStore) FetchBusinesses(ctx context.Context, query domain.BusinessQuery) ([]domain.Business, error) {
	stmt := r.db.WithContext(ctx).Model(&domain.Business{})
	if query.ActiveOnly {
		stmt = stmt.Where("is_active = ? AND approval_status = ?", true, domain.ApprovalApproved)
	}

	var items []domain.Business
	if err := stmt.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *recordStore) GetBusiness(ctx context.Context, id snowflake.ID) (*domain.Business, error) {
	var business domain.Business
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, type, approval_status, is_active, created_at, updated_at
		 FROM businesses
		 WHERE id = ?`,
		id,
	).Scan(&business).Error
	if err != nil {
		return nil, err
	}
	if business.ID == 0 {
		return nil, nil
	}
	return &business, nil
}

// ImportRecords stores raw payloads verbatim next to the normalized columns
// used for lookups. Re-importing a record with the same id replaces it.
func (r *recordStore) ImportRecords(ctx context.Context, raws []domain.RawRecord) (int, error) {
	if len(raws) == 0 {
		return 0, nil
	}

	now := r.clock.Now()
	rows := make([]transactionRecordRow, 0, len(raws))
	for _, raw := range raws {
		record := filter.Normalize(raw)
		id := record.ID
		if id == 0 {
			id = r.genID.Generate()
		}
		row := transactionRecordRow{
			ID:            id,
			BusinessID:    record.BusinessID,
			BookingStart:  record.BookingStart,
			Status:        string(record.Status),
			PaymentStatus: string(record.PaymentStatus),
			Payload:       raw,
			ImportedAt:    now,
		}
		if !record.CreatedAt.IsZero() {
			createdAt := record.CreatedAt
			row.OccurredAt = &createdAt
		}
		rows = append(rows, row)
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"business_id", "created_at", "booking_start", "status", "payment_status", "payload", "imported_at",
		}),
	}).CreateInBatches(rows, importBatchSize).Error
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *recordStore) UpsertBusiness(ctx context.Context, business *domain.Business) error {
	business.Name = strings.TrimSpace(business.Name)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "type", "approval_status", "is_active", "updated_at"}),
	}).Create(business).Error
}

func timeColumn(field domain.TimeField) string {
	if field == domain.TimeFieldBookingStart {
		return "booking_start"
	}
	return "created_at"
}
