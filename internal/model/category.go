package model

import "time"

// Category is a user-defined bucket transactions are assigned to.
type Category struct {
	CreatedAt     time.Time `json:"created_at"`
	MonthlyBudget *int64    `json:"monthly_budget,omitempty"`
	Name          string    `json:"name"`
	Color         string    `json:"color"`
	Icon          string    `json:"icon"`
	ID            int64     `json:"id"`
	IsDefault     bool      `json:"is_default"`
	TaxDeductible bool      `json:"tax_deductible"`
}

// DeletePolicy decides what happens to rows that reference a deleted category.
type DeletePolicy string

const (
	// DeleteBlock refuses to delete a category that is still referenced.
	DeleteBlock DeletePolicy = "block"
	// DeleteCascade clears the category from transactions and deletes its rules.
	DeleteCascade DeletePolicy = "cascade"
)
