package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/engine"
	"github.com/Veraticus/the-ledger-must-balance/internal/ingest"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/report"
	"github.com/labstack/echo/v4"
)

type admitRequest struct {
	engine.ImportRequest
	Rows []ingest.Row `json:"rows"`
}

func (s *Server) admit(c echo.Context) error {
	var req admitRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	res, err := engineFrom(c).Admit(c.Request().Context(), req.ImportRequest, req.Rows)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// admitCSV reads a raw CSV body. The column mapping is detected from the
// header for the source_type query parameter.
func (s *Server) admitCSV(c echo.Context) error {
	headers, rows, err := ingest.ReadCSV(c.Request().Body)
	if err != nil {
		return badRequest("invalid CSV: %v", err)
	}

	sourceType := c.QueryParam("source_type")
	if sourceType == "" {
		sourceType = "generic"
	}
	mapping, err := ingest.DetectMapping(sourceType, headers)
	if err != nil {
		return badRequest("cannot map CSV columns: %v", err)
	}

	res, err := engineFrom(c).Admit(c.Request().Context(), engine.ImportRequest{
		Mapping:      mapping,
		BatchID:      c.QueryParam("batch_id"),
		Filename:     c.QueryParam("filename"),
		SourceType:   strings.ToLower(sourceType),
		AccountLabel: c.QueryParam("account_label"),
		AccountType:  model.AccountType(c.QueryParam("account_type")),
	}, rows)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (s *Server) listImports(c echo.Context) error {
	imports, err := engineFrom(c).ListImports(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, imports)
}

func (s *Server) deleteImport(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	removed, err := engineFrom(c).DeleteImport(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"removed_transactions": removed})
}

func (s *Server) listTransactions(c echo.Context) error {
	filter, err := transactionFilter(c)
	if err != nil {
		return err
	}
	page, err := engineFrom(c).ListTransactions(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) getTransaction(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	txn, err := engineFrom(c).GetTransaction(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, txn)
}

type categoryRequest struct {
	CategoryID *int64 `json:"category_id" validate:"omitempty,gt=0"`
}

func (s *Server) setCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req categoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	txn, err := engineFrom(c).SetManualCategory(c.Request().Context(), id, req.CategoryID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, txn)
}

type noteRequest struct {
	Note string `json:"note"`
}

func (s *Server) setNote(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req noteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := engineFrom(c).SetNote(c.Request().Context(), id, req.Note); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

func (s *Server) setTags(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req tagsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	tags, err := engineFrom(c).SetTags(c.Request().Context(), id, req.Tags)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]string{"tags": tags})
}

func (s *Server) deleteTransaction(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := engineFrom(c).DeleteTransaction(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listTags(c echo.Context) error {
	tags, err := engineFrom(c).ListTags(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]string{"tags": tags})
}

func (s *Server) listRules(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	rules, err := engineFrom(c).ListRules(c.Request().Context(), activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rules)
}

func (s *Server) getRule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	rule, err := engineFrom(c).GetRule(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rule)
}

func (s *Server) createRule(c echo.Context) error {
	var in engine.RuleInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	rule, err := engineFrom(c).CreateRule(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rule)
}

func (s *Server) updateRule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in engine.RuleInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	rule, err := engineFrom(c).UpdateRule(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rule)
}

func (s *Server) deleteRule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := engineFrom(c).DeleteRule(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) applyRules(c echo.Context) error {
	res, err := engineFrom(c).ApplyRules(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) listCategories(c echo.Context) error {
	cats, err := engineFrom(c).ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cats)
}

func (s *Server) getCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	cat, err := engineFrom(c).GetCategory(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

func (s *Server) createCategory(c echo.Context) error {
	var in engine.CategoryInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	cat, err := engineFrom(c).CreateCategory(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cat)
}

func (s *Server) updateCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in engine.CategoryInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	cat, err := engineFrom(c).UpdateCategory(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

func (s *Server) deleteCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	policy := model.DeletePolicy(strings.ToLower(c.QueryParam("policy")))
	res, err := engineFrom(c).DeleteCategory(c.Request().Context(), id, policy)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) seedCategories(c echo.Context) error {
	created, err := engineFrom(c).SeedDefaults(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"created": created})
}

func (s *Server) listAliases(c echo.Context) error {
	aliases, err := engineFrom(c).ListAliases(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, aliases)
}

func (s *Server) createAlias(c echo.Context) error {
	var in engine.AliasInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	alias, err := engineFrom(c).CreateAlias(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, alias)
}

func (s *Server) updateAlias(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in engine.AliasInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	alias, err := engineFrom(c).UpdateAlias(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alias)
}

func (s *Server) deleteAlias(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := engineFrom(c).DeleteAlias(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) rebuildMerchants(c echo.Context) error {
	res, err := engineFrom(c).RebuildCanonicalMerchants(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) transferCandidates(c echo.Context) error {
	candidates, err := engineFrom(c).TransferCandidates(c.Request().Context())
	if err != nil {
		return err
	}
	if candidates == nil {
		candidates = []model.TransferCandidate{}
	}
	return c.JSON(http.StatusOK, candidates)
}

type pairRequest struct {
	ID1 int64 `json:"id1" validate:"gt=0"`
	ID2 int64 `json:"id2" validate:"gt=0"`
}

func (s *Server) confirmTransfer(c echo.Context) error {
	var req pairRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	outcome, err := engineFrom(c).ConfirmTransfer(c.Request().Context(), req.ID1, req.ID2)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]model.ConfirmOutcome{"status": outcome})
}

func (s *Server) unconfirmTransfer(c echo.Context) error {
	var req pairRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := engineFrom(c).UnconfirmTransfer(c.Request().Context(), req.ID1, req.ID2); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) auditFlags(c echo.Context) error {
	from, err := queryDate(c, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return err
	}
	flags, err := engineFrom(c).AuditFlags(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	if flags == nil {
		flags = []model.AuditFlag{}
	}
	return c.JSON(http.StatusOK, flags)
}

func (s *Server) recurring(c echo.Context) error {
	groups, err := engineFrom(c).Recurring(c.Request().Context())
	if err != nil {
		return err
	}
	if groups == nil {
		groups = []model.RecurringGroup{}
	}
	return c.JSON(http.StatusOK, groups)
}

func (s *Server) suggestions(c echo.Context) error {
	suggestions, err := engineFrom(c).RuleSuggestions(c.Request().Context())
	if err != nil {
		return err
	}
	if suggestions == nil {
		suggestions = []model.RuleSuggestion{}
	}
	return c.JSON(http.StatusOK, suggestions)
}

func (s *Server) applySuggestion(c echo.Context) error {
	var in engine.SuggestionInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	res, err := engineFrom(c).ApplySuggestion(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) health(c echo.Context) error {
	health, err := engineFrom(c).Health(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, health)
}


func (s *Server) summary(c echo.Context) error {
	from, err := queryDate(c, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return err
	}
	summary, err := engineFrom(c).Summary(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// taxExport answers with CSV unless the client asks for JSON.
func (s *Server) taxExport(c echo.Context) error {
	var year int
	if err := echo.QueryParamsBinder(c).MustInt("year", &year).BindError(); err != nil {
		return badRequest("year is required, e.g. 2025")
	}
	r, err := engineFrom(c).TaxExport(c.Request().Context(), year)
	if err != nil {
		return err
	}
	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) {
		return c.JSON(http.StatusOK, r)
	}

	var buf bytes.Buffer
	if err := report.WriteTaxCSV(&buf, r); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="tax-%d.csv"`, year))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
