package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
	"github.com/cleaning-crm/api/internal/middleware"
	"github.com/cleaning-crm/api/internal/policy"
	"github.com/cleaning-crm/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// SettlementServicer is satisfied by *service.SettlementService.
type SettlementServicer interface {
	PrepareReport(ctx context.Context, orderID int64) (*service.ReportDraft, error)
	Settle(ctx context.Context, orderID int64, entries []service.ReportEntry) (*service.SettlementResult, error)
	ListReports(ctx context.Context, from, to *time.Time) ([]database.ManagerReportRow, error)
	ExportReports(ctx context.Context, w io.Writer, from, to *time.Time) error
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ManagerReportHandler closes orders and serves the salary report.
type ManagerReportHandler struct {
	svc    SettlementServicer
	orders OrderGetter
	loc    *time.Location
}

func NewManagerReportHandler(svc SettlementServicer, orders OrderGetter, loc *time.Location) *ManagerReportHandler {
	return &ManagerReportHandler{svc: svc, orders: orders, loc: loc}
}

// RegisterOrderRoutes expects to share the /orders sub-router with OrderHandler.
func (h *ManagerReportHandler) RegisterOrderRoutes(r chi.Router) {
	r.Route("/{id}/manager-report", func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleAdmin, enum.RoleManager))
		r.Get("/", h.Prepare)
		r.Post("/", h.Settle)
	})
}

// RegisterRoutes is expected to be mounted at /manager-reports.
func (h *ManagerReportHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequireRole(enum.RoleAdmin, enum.RoleManager))
	r.Get("/", h.List)
	r.Get("/export.xlsx", h.Export)
}

type reportEntryRequest struct {
	CleanerID          int64           `json:"cleaner_id" validate:"required,gt=0"`
	Salary             decimal.Decimal `json:"salary"`
	Bonus              decimal.Decimal `json:"bonus"`
	BonusDescription   string          `json:"bonus_description" validate:"max=500"`
	Forfeit            decimal.Decimal `json:"forfeit"`
	ForfeitDescription string          `json:"forfeit_description" validate:"max=500"`
}

type settleRequest struct {
	Entries []reportEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

// Prepare returns default salaries and the crew's photos. Unmet preconditions
// come back as 409 with a "warning" the manager can act on.
func (h *ManagerReportHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	order, ok := authorizeOrder(w, r, h.orders, policy.CanSettle)
	if !ok {
		return
	}
	draft, err := h.svc.PrepareReport(r.Context(), order.ID)
	if err != nil {
		writeServiceError(w, err, "prepare manager report")
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *ManagerReportHandler) Settle(w http.ResponseWriter, r *http.Request) {
	order, ok := authorizeOrder(w, r, h.orders, policy.CanSettle)
	if !ok {
		return
	}
	var req settleRequest
	if !decodeValid(w, r, &req) {
		return
	}

	entries := make([]service.ReportEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = service.ReportEntry{
			CleanerID:          e.CleanerID,
			Salary:             e.Salary,
			Bonus:              e.Bonus,
			BonusDescription:   e.BonusDescription,
			Forfeit:            e.Forfeit,
			ForfeitDescription: e.ForfeitDescription,
		}
	}

	result, err := h.svc.Settle(r.Context(), order.ID, entries)
	if err != nil {
		writeServiceError(w, err, "settle order")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// List returns reports created between ?start_date and ?end_date.
func (h *ManagerReportHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.reportRange(w, r)
	if !ok {
		return
	}
	rows, err := h.svc.ListReports(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err, "list manager reports")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rows))
}

// Export renders the same rows as an .xlsx download. The workbook is built
// in memory first so a failure can still be answered with JSON.
func (h *ManagerReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.reportRange(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.ExportReports(r.Context(), &buf, from, to); err != nil {
		writeServiceError(w, err, "export manager reports")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="manager-reports.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *ManagerReportHandler) reportRange(w http.ResponseWriter, r *http.Request) (from, to *time.Time, ok bool) {
	start, end, ok := dateRange(w, r, h.loc)
	if !ok {
		return nil, nil, false
	}
	if start.Valid {
		from = &start.Time
	}
	if end.Valid {
		to = &end.Time
	}
	return from, to, true
}
