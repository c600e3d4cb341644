package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/domain/review"
)

func encodeReview(e *jx.Encoder, rv *review.Review) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(rv.ID) })
		e.Field("productId", func(e *jx.Encoder) { e.Str(rv.ProductID) })
		if rv.UserID != "" {
			e.Field("userId", func(e *jx.Encoder) { e.Str(rv.UserID) })
		}
		e.Field("name", func(e *jx.Encoder) { e.Str(rv.Name) })
		e.Field("title", func(e *jx.Encoder) { e.Str(rv.Title) })
		e.Field("rating", func(e *jx.Encoder) { e.Int(rv.Rating) })
		e.Field("comment", func(e *jx.Encoder) { e.Str(rv.Comment) })
		e.Field("recommend", func(e *jx.Encoder) { e.Bool(rv.Recommend) })
		if rv.AdminReply != "" {
			e.Field("adminReply", func(e *jx.Encoder) { e.Str(rv.AdminReply) })
		}
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, rv.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, rv.UpdatedAt) })
	})
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	var rv review.Review
	if err := decodeBody(r, fields{
		"productId": str(&rv.ProductID),
		"rating":    integer(&rv.Rating),
		"title":     str(&rv.Title),
		"comment":   str(&rv.Comment),
		"recommend": boolean(&rv.Recommend),
	}); err != nil {
		fail(w, r, err)
		return
	}
	rv.ProductID = strings.TrimSpace(rv.ProductID)
	if rv.ProductID == "" {
		fail(w, r, invalid("productId", "is required"))
		return
	}
	p := auth.PrincipalFrom(r.Context())
	rv.UserID = p.ID
	rv.Name = p.Name

	if err := h.reviews.Create(r.Context(), &rv); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeReview(e, &rv) })
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.List(r.Context())
	if err != nil {
		fail(w, r, errors.Wrap(err, "list reviews"))
		return
	}
	writeJSON(w, http.StatusOK, encodeList(reviews, encodeReview))
}

// set allocates *dst and decodes into it, so absent fields stay nil.
func set[T any](dst **T, decode func(*T) func(*jx.Decoder) error) func(*jx.Decoder) error {
	return func(d *jx.Decoder) error {
		v := new(T)
		if err := decode(v)(d); err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func (h *Handler) updateReview(w http.ResponseWriter, r *http.Request) {
	var patch review.Patch
	if err := decodeBody(r, fields{
		"rating":     set(&patch.Rating, integer),
		"title":      set(&patch.Title, str),
		"comment":    set(&patch.Comment, str),
		"recommend":  set(&patch.Recommend, boolean),
		"adminReply": set(&patch.AdminReply, str),
	}); err != nil {
		fail(w, r, err)
		return
	}

	rv, err := h.reviews.Update(r.Context(), r.PathValue("id"), patch, actorID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeReview(e, rv) })
}

func (h *Handler) deleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.Delete(r.Context(), r.PathValue("id"), actorID(r)); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
