// Package pattern matches categorization rules against transactions and
// mines the ledger for rules worth adding.
package pattern

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

// SortRules orders rules by priority descending, then ID ascending.
func SortRules(rules []model.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}

// DisabledRule is an active rule skipped because its pattern does not compile.
type DisabledRule struct {
	Reason string `json:"reason"`
	RuleID int64  `json:"rule_id"`
}

// Matcher evaluates transactions against a fixed set of rules.
type Matcher struct {
	compiled map[int64]*regexp.Regexp
	rules    []model.Rule
	disabled []DisabledRule
}

// NewMatcher keeps the active rules in evaluation order and compiles regex
// patterns once. A regex rule that fails to compile is disabled for the
// lifetime of the matcher.
func NewMatcher(rules []model.Rule) *Matcher {
	m := &Matcher{compiled: make(map[int64]*regexp.Regexp)}

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if rule.MatchType == model.MatchRegex {
			re, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				m.disabled = append(m.disabled, DisabledRule{RuleID: rule.ID, Reason: err.Error()})
				continue
			}
			m.compiled[rule.ID] = re
		}
		m.rules = append(m.rules, rule)
	}

	SortRules(m.rules)
	sort.Slice(m.disabled, func(i, j int) bool { return m.disabled[i].RuleID < m.disabled[j].RuleID })
	return m
}

// Rules returns the usable rules in evaluation order.
func (m *Matcher) Rules() []model.Rule {
	return m.rules
}

// Disabled returns rules skipped because their pattern is invalid.
func (m *Matcher) Disabled() []DisabledRule {
	return m.disabled
}

// Categorize returns the first rule that matches txn.
func (m *Matcher) Categorize(txn *model.Transaction) (model.Rule, bool) {
	for _, rule := range m.rules {
		if m.matches(rule, txn) {
			return rule, true
		}
	}
	return model.Rule{}, false
}

// Matches reports whether a single rule matches txn.
func (m *Matcher) Matches(rule model.Rule, txn *model.Transaction) bool {
	if rule.MatchType == model.MatchRegex {
		if _, ok := m.compiled[rule.ID]; !ok {
			return false
		}
	}
	return m.matches(rule, txn)
}

func (m *Matcher) matches(rule model.Rule, txn *model.Transaction) bool {
	switch rule.MatchType {
	case model.MatchContains:
		return strings.Contains(strings.ToLower(txn.DescriptionRaw), strings.ToLower(rule.Pattern))
	case model.MatchRegex:
		return m.compiled[rule.ID].MatchString(txn.DescriptionRaw)
	case model.MatchExact:
		return strings.EqualFold(strings.TrimSpace(rule.Pattern), strings.TrimSpace(txn.DisplayMerchant()))
	}
	return false
}

// Categorize is a convenience for one-off matching against rules.
func Categorize(txn *model.Transaction, rules []model.Rule) (model.Rule, bool) {
	return NewMatcher(rules).Categorize(txn)
}

// Assignment is the category state a rule run would give a transaction.
type Assignment struct {
	CategoryID *int64
	Provenance *model.RuleProvenance
	Source     model.CategorySource
}

// Assign computes the rule-driven category state for txn. When nothing
// matches the result is uncategorized.
func (m *Matcher) Assign(txn *model.Transaction) Assignment {
	rule, ok := m.Categorize(txn)
	if !ok {
		return Assignment{Source: model.SourceNone}
	}
	id := rule.CategoryID
	return Assignment{
		CategoryID: &id,
		Source:     model.SourceRule,
		Provenance: model.ProvenanceOf(rule),
	}
}

// Changes reports whether applying a to txn would alter it.
func (a Assignment) Changes(txn *model.Transaction) bool {
	return txn.CategorySource != a.Source ||
		!model.SameCategory(txn.CategoryID, a.CategoryID) ||
		!model.SameProvenance(txn.Provenance, a.Provenance)
}
