package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/koperasi-orders.git/internal/audit"
	"github.com/ariefcatur/koperasi-orders.git/internal/catalog"
	"github.com/ariefcatur/koperasi-orders.git/internal/orders"
	"github.com/ariefcatur/koperasi-orders.git/internal/reports"
)

type ReportSource interface {
	OrdersInRange(ctx context.Context, status orders.Status, from, to time.Time) ([]orders.Order, error)
	ProductsByID(ctx context.Context, ids []int64) (map[int64]catalog.Product, error)
	ActiveProducts(ctx context.Context) ([]catalog.Product, error)
}

type AuditLog interface {
	Append(ctx context.Context, e audit.Entry) error
	List(ctx context.Context, page, size int) ([]audit.Entry, error)
}

type ReportsHandler struct {
	Source ReportSource
	Audit  AuditLog
}

func (h *ReportsHandler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/reports/monthly", h.monthly)
		r.Get("/reports/analytics", h.analytics)
		r.Get("/audit", h.auditList)
	})
}

func (h *ReportsHandler) monthly(w http.ResponseWriter, r *http.Request) {
	admin, ok := mustAdmin(w, r)
	if !ok {
		return
	}
	now := time.Now()
	year := queryInt(r, "year", now.Year())
	month := queryInt(r, "month", int(now.Month()))
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	from, to := reports.MonthRange(year, month)
	completed, err := h.Source.OrdersInRange(ctx, orders.StatusCompleted, from, to)
	if err != nil {
		writeErr(w, err)
		return
	}
	products, err := h.Source.ProductsByID(ctx, reports.LineProductIDs(completed))
	if err != nil {
		writeErr(w, err)
		return
	}
	active, err := h.Source.ActiveProducts(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}

	rep := reports.BuildMonthly(year, month, completed, products, active)

	if h.Audit != nil {
		_ = h.Audit.Append(ctx, audit.Entry{
			ActorUserID: admin.UserID,
			Action:      audit.ActionGenerateReport,
			Entity:      "Report",
			Meta: map[string]any{
				"reportType":  "monthly",
				"year":        year,
				"month":       month,
				"totalOrders": rep.Summary.TotalOrders,
			},
		})
	}

	writeJSON(w, http.StatusOK, rep)
}

func (h *ReportsHandler) analytics(w http.ResponseWriter, r *http.Request) {
	if _, ok := mustAdmin(w, r); !ok {
		return
	}
	days := queryInt(r, "days", 30)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	from := time.Now().AddDate(0, 0, -days)
	recent, err := h.Source.OrdersInRange(ctx, "", from, time.Now())
	if err != nil {
		writeErr(w, err)
		return
	}
	products, err := h.Source.ProductsByID(ctx, reports.LineProductIDs(recent))
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reports.BuildAnalytics(days, recent, products))
}

func (h *ReportsHandler) auditList(w http.ResponseWriter, r *http.Request) {
	if _, ok := mustAdmin(w, r); !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Audit.List(ctx, queryInt(r, "page", 1), queryInt(r, "size", 20))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
