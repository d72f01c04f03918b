// Package service implements the expense operations on top of an injected
// store: idempotent creation, filtered listing with exact-decimal totals, and
// category aggregation.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"expense-service/internal/models"
	"expense-service/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the storage surface the service needs. *storage.DB satisfies it;
// tests inject fakes.
type Store interface {
	InsertExpense(ctx context.Context, e *models.Expense) (*models.Expense, error)
	GetExpenseByKey(ctx context.Context, key string) (*models.Expense, error)
	ListExpenses(ctx context.Context, f storage.ListFilter) ([]models.Expense, error)
	ListExpensesByMonth(ctx context.Context, year int, month time.Month) ([]models.Expense, error)
	Categories(ctx context.Context) ([]string, error)
}

// Service coordinates expense operations against a store.
type Service struct {
	store Store
	retry *RetryExecutor
}

// NewService creates a Service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, retry: NewRetryExecutor()}
}

// CreateExpense persists at most one expense per idempotency key. The second
// return value reports whether a new record was created: a repeated
// submission with a known key returns the original record and false.
//
// The sequence is read-check-write-recheck. The pre-check is the fast path
// for retries after an earlier success; the recheck on a uniqueness conflict
// closes the race where two first-time submissions with the same key both
// pass the pre-check. The storage constraint is the source of truth, so the
// losing writer re-reads and returns the winner's record.
func (s *Service) CreateExpense(ctx context.Context, in models.ExpenseInput) (*models.Expense, bool, error) {
	if err := in.Validate(); err != nil {
		return nil, false, err
	}

	key := in.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	existing, err := s.store.GetExpenseByKey(ctx, key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("check idempotency key: %w", err)
	}

	expense := &models.Expense{
		ID:             uuid.NewString(),
		IdempotencyKey: key,
		Amount:         in.Amount,
		Category:       in.Category,
		Description:    in.Description,
		Date:           in.Date,
	}

	var persisted *models.Expense
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		var insertErr error
		persisted, insertErr = s.store.InsertExpense(ctx, expense)
		return insertErr
	})
	if err == nil {
		return persisted, true, nil
	}

	if errors.Is(err, storage.ErrDuplicateKey) {
		// A concurrent submission with the same key committed between the
		// pre-check and our insert. Its record is the single winner.
		winner, lookupErr := s.store.GetExpenseByKey(ctx, key)
		if lookupErr != nil {
			return nil, false, fmt.Errorf("lookup after conflict: %w", lookupErr)
		}
		return winner, false, nil
	}

	return nil, false, fmt.Errorf("create expense: %w", err)
}

// ListResult is a filtered, ordered view over the expenses plus aggregates.
type ListResult struct {
	Expenses []models.Expense `json:"expenses"`
	Count    int              `json:"count"`
	Total    decimal.Decimal  `json:"total"`
}

// ListExpenses returns expenses matching the filter together with their count
// and exact-decimal sum.
func (s *Service) ListExpenses(ctx context.Context, f storage.ListFilter) (*ListResult, error) {
	expenses, err := s.store.ListExpenses(ctx, f)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}

	return &ListResult{Expenses: expenses, Count: len(expenses), Total: total}, nil
}

// Categories returns the distinct categories in use, alphabetically ordered.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.store.Categories(ctx)
}

// CategoryStat aggregates one category's spending within a month.
type CategoryStat struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// MonthlyStatistics summarizes one calendar month.
type MonthlyStatistics struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryStat  `json:"categories"`
}

// Statistics aggregates the month's expenses per category, largest spend
// first. All sums use exact decimal arithmetic.
func (s *Service) Statistics(ctx context.Context, year int, month time.Month) (*MonthlyStatistics, error) {
	expenses, err := s.store.ListExpensesByMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*CategoryStat)
	total := decimal.Zero
	for _, e := range expenses {
		stat, ok := totals[e.Category]
		if !ok {
			stat = &CategoryStat{Category: e.Category, Total: decimal.Zero}
			totals[e.Category] = stat
		}
		stat.Total = stat.Total.Add(e.Amount)
		stat.Count++
		total = total.Add(e.Amount)
	}

	stats := make([]CategoryStat, 0, len(totals))
	for _, stat := range totals {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if !stats[i].Total.Equal(stats[j].Total) {
			return stats[i].Total.GreaterThan(stats[j].Total)
		}
		return stats[i].Category < stats[j].Category
	})

	return &MonthlyStatistics{
		Year:       year,
		Month:      int(month),
		Total:      total,
		Categories: stats,
	}, nil
}
