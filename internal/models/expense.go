package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxCategoryLen is the maximum length of a category after trimming.
	MaxCategoryLen = 100
	// MaxDescriptionLen is the maximum length of a description.
	MaxDescriptionLen = 1000
)

// Expense represents a persisted financial expense record. Records are
// append-only: once created they are never mutated or deleted.
type Expense struct {
	ID             string          `json:"id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category"`
	Description    string          `json:"description,omitempty"`
	Date           Date            `json:"date"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ExpenseInput is a create request before validation. IdempotencyKey may be
// empty; the service generates one in that case.
type ExpenseInput struct {
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category"`
	Description    string          `json:"description,omitempty"`
	Date           Date            `json:"date"`
}

// ValidationError reports a rejected input field. It signals a client error,
// not a storage or protocol failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the input against the data-model rules and normalizes it:
// the category is trimmed of surrounding whitespace. It must pass before any
// storage interaction.
func (in *ExpenseInput) Validate() error {
	if !in.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if in.Amount.Exponent() < -2 {
		return &ValidationError{Field: "amount", Reason: "must have at most 2 decimal places"}
	}

	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		return &ValidationError{Field: "category", Reason: "cannot be blank"}
	}
	if len(in.Category) > MaxCategoryLen {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("must be at most %d characters", MaxCategoryLen)}
	}

	if len(in.Description) > MaxDescriptionLen {
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("must be at most %d characters", MaxDescriptionLen)}
	}

	if in.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}

	return nil
}
