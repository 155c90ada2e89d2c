package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

// Page size bounds for transaction listings.
const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return badRequest("invalid request body")
	}
	return c.Validate(dst)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("%s must be a positive integer", name)
	}
	return id, nil
}

func queryInt64(c echo.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, badRequest("%s must be an integer", name)
	}
	return &v, nil
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, badRequest("%s must be a date like 2006-01-02", name)
	}
	return &t, nil
}

func transactionFilter(c echo.Context) (service.TransactionFilter, error) {
	f := service.TransactionFilter{Limit: defaultPageLimit}

	err := echo.QueryParamsBinder(c).
		Int("limit", &f.Limit).
		Int("offset", &f.Offset).
		Bool("uncategorized", &f.Uncategorized).
		Bool("normal_only", &f.NormalOnly).
		String("merchant", &f.Merchant).
		BindError()
	if err != nil {
		return f, badRequest("invalid query: %v", err)
	}
	if f.Limit <= 0 || f.Limit > maxPageLimit {
		return f, badRequest("limit must be between 1 and %d", maxPageLimit)
	}

	if f.From, err = queryDate(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return f, err
	}
	if f.ImportID, err = queryInt64(c, "import_id"); err != nil {
		return f, err
	}
	if f.CategoryID, err = queryInt64(c, "category_id"); err != nil {
		return f, err
	}
	if raw := c.QueryParam("source"); raw != "" {
		source := model.CategorySource(strings.ToLower(raw))
		if source == "none" {
			source = model.SourceNone
		}
		if !source.Valid() {
			return f, badRequest("source must be one of rule, manual, none")
		}
		f.Source = &source
	}
	return f, nil
}
