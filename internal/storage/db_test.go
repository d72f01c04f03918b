package storage

import (
	"context"
	"testing"
	"time"

	"expense-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for database operations
type DBTestSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) newExpense(amount, category string, date models.Date) *models.Expense {
	return &models.Expense{
		ID:             uuid.NewString(),
		IdempotencyKey: uuid.NewString(),
		Amount:         decimal.RequireFromString(amount),
		Category:       category,
		Date:           date,
	}
}

func (suite *DBTestSuite) TestInsertExpense() {
	e := suite.newExpense("10.50", "Food", models.NewDate(2026, time.August, 20))
	e.Description = "Lunch"

	persisted, err := suite.db.InsertExpense(suite.ctx, e)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), e.ID, persisted.ID)
	assert.False(suite.T(), persisted.CreatedAt.IsZero(), "created_at should be assigned")

	// Round trip through the key lookup
	got, err := suite.db.GetExpenseByKey(suite.ctx, e.IdempotencyKey)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), e.ID, got.ID)
	assert.True(suite.T(), got.Amount.Equal(decimal.RequireFromString("10.50")))
	assert.Equal(suite.T(), "Food", got.Category)
	assert.Equal(suite.T(), "Lunch", got.Description)
	assert.Equal(suite.T(), "2026-08-20", got.Date.String())
	assert.True(suite.T(), got.CreatedAt.Equal(persisted.CreatedAt))
}

func (suite *DBTestSuite) TestInsertDuplicateKey() {
	e := suite.newExpense("10.00", "Food", models.NewDate(2026, time.August, 20))
	_, err := suite.db.InsertExpense(suite.ctx, e)
	require.NoError(suite.T(), err)

	dup := suite.newExpense("99.99", "Other", models.NewDate(2026, time.August, 21))
	dup.IdempotencyKey = e.IdempotencyKey
	_, err = suite.db.InsertExpense(suite.ctx, dup)
	assert.ErrorIs(suite.T(), err, ErrDuplicateKey)

	// The losing insert must leave no record behind
	expenses, err := suite.db.ListExpenses(suite.ctx, ListFilter{})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), expenses, 1)
	assert.Equal(suite.T(), e.ID, expenses[0].ID)
}

func (suite *DBTestSuite) TestDistinctKeysNeverCollide() {
	date := models.NewDate(2026, time.August, 20)
	first := suite.newExpense("10.00", "Food", date)
	second := suite.newExpense("10.00", "Food", date)

	_, err := suite.db.InsertExpense(suite.ctx, first)
	require.NoError(suite.T(), err)
	_, err = suite.db.InsertExpense(suite.ctx, second)
	require.NoError(suite.T(), err)

	expenses, err := suite.db.ListExpenses(suite.ctx, ListFilter{})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), expenses, 2)
}

func (suite *DBTestSuite) TestGetExpenseByKeyNotFound() {
	_, err := suite.db.GetExpenseByKey(suite.ctx, "no-such-key")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestListExpensesOrdering() {
	// Insert out of date order; list must come back newest first with
	// same-day ties broken by creation order.
	older := suite.newExpense("5.00", "Food", models.NewDate(2026, time.August, 18))
	newest := suite.newExpense("20.00", "Transport", models.NewDate(2026, time.August, 20))
	sameDayFirst := suite.newExpense("15.00", "Food", models.NewDate(2026, time.August, 19))
	sameDaySecond := suite.newExpense("7.50", "Food", models.NewDate(2026, time.August, 19))

	for _, e := range []*models.Expense{newest, older, sameDayFirst, sameDaySecond} {
		_, err := suite.db.InsertExpense(suite.ctx, e)
		require.NoError(suite.T(), err)
	}

	expenses, err := suite.db.ListExpenses(suite.ctx, ListFilter{})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 4)
	assert.Equal(suite.T(), newest.ID, expenses[0].ID)
	assert.Equal(suite.T(), sameDaySecond.ID, expenses[1].ID, "same-day tie should break by creation order, newest first")
	assert.Equal(suite.T(), sameDayFirst.ID, expenses[2].ID)
	assert.Equal(suite.T(), older.ID, expenses[3].ID)

	// Oldest first reverses the order
	expenses, err = suite.db.ListExpenses(suite.ctx, ListFilter{OldestFirst: true})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 4)
	assert.Equal(suite.T(), older.ID, expenses[0].ID)
	assert.Equal(suite.T(), newest.ID, expenses[3].ID)
}

func (suite *DBTestSuite) TestListExpensesCategoryFilter() {
	date := models.NewDate(2026, time.August, 20)
	food := suite.newExpense("10.00", "Food", date)
	fastFood := suite.newExpense("8.00", "Fast food", date)
	transport := suite.newExpense("3.00", "Transport", date)

	for _, e := range []*models.Expense{food, fastFood, transport} {
		_, err := suite.db.InsertExpense(suite.ctx, e)
		require.NoError(suite.T(), err)
	}

	// Case-insensitive substring match
	expenses, err := suite.db.ListExpenses(suite.ctx, ListFilter{Category: "fOoD"})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), expenses, 2)
	for _, e := range expenses {
		assert.Contains(suite.T(), []string{"Food", "Fast food"}, e.Category)
	}

	expenses, err = suite.db.ListExpenses(suite.ctx, ListFilter{Category: "rent"})
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), expenses)
}

func (suite *DBTestSuite) TestListExpensesByMonth() {
	inMonth := suite.newExpense("10.00", "Food", models.NewDate(2026, time.August, 31))
	nextMonth := suite.newExpense("20.00", "Food", models.NewDate(2026, time.September, 1))
	prevMonth := suite.newExpense("30.00", "Food", models.NewDate(2026, time.July, 31))

	for _, e := range []*models.Expense{inMonth, nextMonth, prevMonth} {
		_, err := suite.db.InsertExpense(suite.ctx, e)
		require.NoError(suite.T(), err)
	}

	expenses, err := suite.db.ListExpensesByMonth(suite.ctx, 2026, time.August)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 1)
	assert.Equal(suite.T(), inMonth.ID, expenses[0].ID)
}

func (suite *DBTestSuite) TestCategories() {
	date := models.NewDate(2026, time.August, 20)
	for _, category := range []string{"Transport", "Food", "Food", "Entertainment"} {
		_, err := suite.db.InsertExpense(suite.ctx, suite.newExpense("1.00", category, date))
		require.NoError(suite.T(), err)
	}

	categories, err := suite.db.Categories(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Entertainment", "Food", "Transport"}, categories)
}

func (suite *DBTestSuite) TestAmountStoredExactly() {
	// Amounts whose binary float representation drifts must round-trip exactly.
	for _, amount := range []string{"10.10", "20.20", "0.01"} {
		_, err := suite.db.InsertExpense(suite.ctx, suite.newExpense(amount, "Food", models.NewDate(2026, time.August, 20)))
		require.NoError(suite.T(), err)
	}

	expenses, err := suite.db.ListExpenses(suite.ctx, ListFilter{})
	require.NoError(suite.T(), err)

	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	assert.Equal(suite.T(), "30.31", total.String())
}

func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}
