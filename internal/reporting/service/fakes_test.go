package service

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
)

type fakeStore struct {
	mu         sync.Mutex
	businesses []domain.Business
	records    []domain.TransactionRecord
	imported   []domain.RawRecord
	fetches    int
	queries    []domain.RecordQuery
}

func (f *fakeStore) FetchTransactionRecords(_ context.Context, q domain.RecordQuery) ([]domain.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	f.queries = append(f.queries, q)

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

func (f *fakeStore) FetchBusinesses(_ context.Context, q domain.BusinessQuery) ([]domain.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Business{}
	for _, b := range f.businesses {
		if q.ActiveOnly && !b.Active() {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) GetBusiness(_ context.Context, id snowflake.ID) (*domain.Business, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.businesses {
		if b.ID == id {
			business := b
			return &business, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ImportRecords(_ context.Context, raws []domain.RawRecord) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imported = append(f.imported, raws...)
	return len(raws), nil
}

func (f *fakeStore) UpsertBusiness(_ context.Context, business *domain.Business) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.businesses {
		if b.ID == business.ID {
			business.CreatedAt = b.CreatedAt
			f.businesses[i] = *business
			return nil
		}
	}
	f.businesses = append(f.businesses, *business)
	return nil
}

func (f *fakeStore) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}
