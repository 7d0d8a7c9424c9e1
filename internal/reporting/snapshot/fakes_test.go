package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
)

type fakeRecordStore struct {
	businesses []domain.Business
	records    []domain.TransactionRecord
	fetchErr   map[snowflake.ID]error
}

func (f *fakeRecordStore) FetchTransactionRecords(_ context.Context, q domain.RecordQuery) ([]domain.TransactionRecord, error) {
	if q.BusinessID != nil {
		if err := f.fetchErr[*q.BusinessID]; err != nil {
			return nil, err
		}
	}
	out := []domain.TransactionRecord{}
	for _, r := range f.records {
		if q.BusinessID != nil && r.BusinessID != *q.BusinessID {
			continue
		}
		if q.DateRange != nil {
			ts, ok := r.Timestamp(q.TimeField)
			if !ok || !q.DateRange.Contains(ts) {
				continue
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRecordStore) FetchBusinesses(_ context.Context, q domain.BusinessQuery) ([]domain.Business, error) {
	out := []domain.Business{}
	for _, b := range f.businesses {
		if q.ActiveOnly && !b.Active() {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeRecordStore) GetBusiness(_ context.Context, id snowflake.ID) (*domain.Business, error) {
	for _, b := range f.businesses {
		if b.ID == id {
			business := b
			return &business, nil
		}
	}
	return nil, nil
}

func (f *fakeRecordStore) ImportRecords(context.Context, []domain.RawRecord) (int, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeRecordStore) UpsertBusiness(context.Context, *domain.Business) error {
	return errors.New("not implemented")
}

type periodKey struct {
	business    snowflake.ID
	year, month int
}

type fakeSnapshotRepo struct {
	mu    sync.Mutex
	items map[snowflake.ID]domain.ReportSnapshot
	keys  map[periodKey]snowflake.ID
	// hideExisting makes FindByPeriod miss so the insert-time guard is exercised.
	hideExisting bool
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{
		items: map[snowflake.ID]domain.ReportSnapshot{},
		keys:  map[periodKey]snowflake.ID{},
	}
}

func (f *fakeSnapshotRepo) Insert(_ context.Context, s *domain.ReportSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := periodKey{s.BusinessID, s.Year, s.Month}
	if _, ok := f.keys[key]; ok {
		return domain.ErrDuplicateReport
	}
	f.keys[key] = s.ID
	f.items[s.ID] = *s
	return nil
}

func (f *fakeSnapshotRepo) FindByID(_ context.Context, id snowflake.ID) (*domain.ReportSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (f *fakeSnapshotRepo) FindByPeriod(_ context.Context, businessID snowflake.ID, year, month int) (*domain.ReportSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideExisting {
		return nil, nil
	}
	id, ok := f.keys[periodKey{businessID, year, month}]
	if !ok {
		return nil, nil
	}
	item := f.items[id]
	return &item, nil
}

func (f *fakeSnapshotRepo) List(_ context.Context, filter domain.SnapshotFilter) ([]domain.ReportSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.ReportSnapshot{}
	for _, item := range f.items {
		if filter.BusinessID != nil && item.BusinessID != *filter.BusinessID {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeSnapshotRepo) Count(ctx context.Context, filter domain.SnapshotFilter) (int64, error) {
	items, _ := f.List(ctx, filter)
	return int64(len(items)), nil
}

func (f *fakeSnapshotRepo) Delete(_ context.Context, id snowflake.ID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return false, nil
	}
	delete(f.items, id)
	delete(f.keys, periodKey{item.BusinessID, item.Year, item.Month})
	return true, nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]string{}
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.held[key] = "token-" + key
	return l.held[key], true, nil
}

func (l *fakeLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type recordingObserver struct {
	mu        sync.Mutex
	generated int
	bulk      []*domain.BulkResult
}

func (o *recordingObserver) SnapshotGenerated(context.Context, *domain.ReportSnapshot) {
	o.mu.Lock()
	o.generated++
	o.mu.Unlock()
}

func (o *recordingObserver) BulkCompleted(_ context.Context, result *domain.BulkResult, _ time.Duration) {
	o.mu.Lock()
	o.bulk = append(o.bulk, result)
	o.mu.Unlock()
}
