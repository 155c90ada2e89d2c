package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
)

// FormatAmount renders cents with a sign color.
func FormatAmount(cents int64) string {
	s := model.FormatCents(cents)
	if cents < 0 {
		return DebitStyle.Render(s)
	}
	return CreditStyle.Render(s)
}

// FormatDate renders a posted date.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatConfidence colors a 0-100 confidence.
func FormatConfidence(pct int) string {
	s := strconv.Itoa(pct) + "%"
	switch {
	case pct >= 85:
		return SuccessStyle.Render(s)
	case pct >= 60:
		return WarningStyle.Render(s)
	default:
		return SubtleStyle.Render(s)
	}
}

// FormatSeverity colors an audit severity.
func FormatSeverity(s model.Severity) string {
	if s == model.SeverityWarning {
		return WarningStyle.Render(string(s))
	}
	return InfoStyle.Render(string(s))
}

// FormatCategory names a category id using names, or "-" when nil.
func FormatCategory(id *int64, names map[int64]string) string {
	if id == nil {
		return SubtleStyle.Render("-")
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", *id)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
