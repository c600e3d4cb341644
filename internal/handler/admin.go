package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/glowcart/storefront/internal/domain/audit"
	"github.com/glowcart/storefront/internal/domain/stats"
)

func encodeAuditEntry(e *jx.Encoder, a *audit.Entry) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(a.ID) })
		e.Field("actorId", func(e *jx.Encoder) { e.Str(a.ActorID) })
		e.Field("action", func(e *jx.Encoder) { e.Str(a.Action) })
		e.Field("details", func(e *jx.Encoder) { e.Str(a.Details) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, a.CreatedAt) })
	})
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", audit.DefaultListLimit)
	if err != nil {
		fail(w, r, err)
		return
	}
	entries, err := h.audit.List(r.Context(), limit)
	if err != nil {
		fail(w, r, errors.Wrap(err, "list audit entries"))
		return
	}
	writeJSON(w, http.StatusOK, encodeList(entries, encodeAuditEntry))
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.stats.Dashboard(r.Context())
	if err != nil {
		fail(w, r, errors.Wrap(err, "dashboard"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("totalOrders", func(e *jx.Encoder) { e.Int(d.TotalOrders) })
			e.Field("totalProducts", func(e *jx.Encoder) { e.Int(d.TotalProducts) })
			e.Field("totalRevenue", func(e *jx.Encoder) { encodeMoney(e, d.TotalRevenue) })
			e.Field("avgOrderValue", func(e *jx.Encoder) { encodeMoney(e, d.AvgOrderValue) })
			e.Field("revenueTrend", func(e *jx.Encoder) { e.Float64(d.RevenueTrend) })
			e.Field("ordersTrend", func(e *jx.Encoder) { e.Float64(d.OrdersTrend) })
		})
	})
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	f := stats.Filter(r.URL.Query().Get("filter"))
	if f == "" {
		f = stats.FilterMonth
	}
	points, err := h.stats.Progress(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeList(points, func(e *jx.Encoder, p *stats.Point) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("label", func(e *jx.Encoder) { e.Str(p.Label) })
			e.Field("revenue", func(e *jx.Encoder) { encodeMoney(e, p.Revenue) })
			e.Field("orders", func(e *jx.Encoder) { e.Int(p.Orders) })
		})
	}))
}
