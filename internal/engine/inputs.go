package engine

import (
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/ingest"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/pattern"
	"github.com/Veraticus/the-ledger-must-balance/internal/validation"
)

// ImportRequest describes one batch of rows to admit.
type ImportRequest struct {
	Mapping      ingest.ColumnMapping `json:"mapping"`
	BatchID      string               `json:"batch_id" validate:"omitempty,uuid"`
	Filename     string               `json:"filename" validate:"max=255"`
	SourceType   string               `json:"source_type" validate:"max=32"`
	AccountLabel string               `json:"account_label" validate:"max=100"`
	AccountType  model.AccountType    `json:"account_type" validate:"omitempty,account_type"`
}

func (r *ImportRequest) validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if err := r.Mapping.Validate(); err != nil {
		return common.Validationf("invalid column mapping: %v", err)
	}
	r.AccountType = model.AccountType(strings.ToLower(string(r.AccountType)))
	r.AccountLabel = strings.TrimSpace(r.AccountLabel)
	return nil
}

// RuleInput creates or replaces a categorization rule.
type RuleInput struct {
	Priority   *int            `json:"priority" validate:"omitempty,gte=0,lte=1000"`
	IsActive   *bool           `json:"is_active"`
	Pattern    string          `json:"pattern" validate:"notblank,max=500"`
	MatchType  model.MatchType `json:"match_type" validate:"match_type"`
	CategoryID int64           `json:"category_id" validate:"gt=0"`
}

func (r *RuleInput) validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	r.Pattern = strings.TrimSpace(r.Pattern)
	return pattern.ValidateRule(r.Pattern, r.MatchType)
}

func (r RuleInput) rule() model.Rule {
	rule := model.Rule{
		Pattern:    r.Pattern,
		MatchType:  r.MatchType,
		CategoryID: r.CategoryID,
		Priority:   model.DefaultRulePriority,
		IsActive:   true,
	}
	if r.Priority != nil {
		rule.Priority = *r.Priority
	}
	if r.IsActive != nil {
		rule.IsActive = *r.IsActive
	}
	return rule
}

// CategoryInput creates or replaces a category.
type CategoryInput struct {
	MonthlyBudget *int64 `json:"monthly_budget" validate:"omitempty,gte=0"`
	Name          string `json:"name" validate:"notblank,max=100"`
	Color         string `json:"color" validate:"hexcolor_or_empty"`
	Icon          string `json:"icon" validate:"max=32"`
	IsDefault     bool   `json:"is_default"`
	TaxDeductible bool   `json:"tax_deductible"`
}

func (c *CategoryInput) validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	c.Name = strings.TrimSpace(c.Name)
	return nil
}

func (c CategoryInput) category() model.Category {
	return model.Category{
		Name:          c.Name,
		Color:         c.Color,
		Icon:          c.Icon,
		IsDefault:     c.IsDefault,
		TaxDeductible: c.TaxDeductible,
		MonthlyBudget: c.MonthlyBudget,
	}
}

// AliasInput maps a raw merchant string to a canonical name.
type AliasInput struct {
	Alias     string `json:"alias" validate:"notblank,max=200"`
	Canonical string `json:"canonical" validate:"notblank,max=200"`
}

func (a *AliasInput) validate() error {
	if err := validation.Struct(a); err != nil {
		return err
	}
	a.Alias = strings.TrimSpace(a.Alias)
	a.Canonical = strings.TrimSpace(a.Canonical)
	return nil
}

// SuggestionInput accepts a rule suggestion, possibly with user edits.
// Pattern and MatchType default to an exact match on Merchant.
type SuggestionInput struct {
	Priority   *int            `json:"priority" validate:"omitempty,gte=0,lte=1000"`
	Merchant   string          `json:"merchant" validate:"notblank,max=200"`
	Pattern    string          `json:"pattern" validate:"max=500"`
	MatchType  model.MatchType `json:"match_type" validate:"omitempty,match_type"`
	CategoryID int64           `json:"category_id" validate:"gt=0"`
}

func (s *SuggestionInput) validate(defaultPriority int) error {
	if err := validation.Struct(s); err != nil {
		return err
	}
	s.Merchant = strings.TrimSpace(s.Merchant)
	s.Pattern = strings.TrimSpace(s.Pattern)
	if s.Pattern == "" {
		s.Pattern = s.Merchant
	}
	if s.MatchType == "" {
		s.MatchType = model.MatchExact
	}
	if s.Priority == nil {
		s.Priority = &defaultPriority
	}
	return pattern.ValidateRule(s.Pattern, s.MatchType)
}
