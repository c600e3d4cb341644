package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/glowcart/storefront/internal/domain/category"
)

func categoryFields(c *category.Category) fields {
	return fields{
		"title":       str(&c.Title),
		"slug":        str(&c.Slug),
		"description": str(&c.Description),
		"image":       str(&c.Image),
	}
}

func validateCategory(c *category.Category) error {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return invalid("title", "is required")
	}
	if c.Slug == "" {
		c.Slug = slugify(c.Title)
	}
	return nil
}

func encodeCategory(e *jx.Encoder, c *category.Category) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(c.ID) })
		e.Field("title", func(e *jx.Encoder) { e.Str(c.Title) })
		e.Field("slug", func(e *jx.Encoder) { e.Str(c.Slug) })
		e.Field("description", func(e *jx.Encoder) { e.Str(c.Description) })
		e.Field("image", func(e *jx.Encoder) { e.Str(c.Image) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, c.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, c.UpdatedAt) })
	})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		fail(w, r, errors.Wrap(err, "list categories"))
		return
	}
	writeJSON(w, http.StatusOK, encodeList(categories, encodeCategory))
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCategory(e, c) })
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var c category.Category
	if err := decodeBody(r, categoryFields(&c)); err != nil {
		fail(w, r, err)
		return
	}
	if err := validateCategory(&c); err != nil {
		fail(w, r, err)
		return
	}
	now := h.now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := h.categories.Create(r.Context(), &c); err != nil {
		fail(w, r, errors.Wrap(err, "create category"))
		return
	}
	h.audit.Record(r.Context(), actorID(r), "Category Creation", fmt.Sprintf("created category %q (%s)", c.Title, c.ID))
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCategory(e, &c) })
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := decodeBody(r, categoryFields(c)); err != nil {
		fail(w, r, err)
		return
	}
	if err := validateCategory(c); err != nil {
		fail(w, r, err)
		return
	}
	c.UpdatedAt = h.now().UTC()

	if err := h.categories.Update(r.Context(), c); err != nil {
		fail(w, r, errors.Wrap(err, "update category"))
		return
	}
	h.audit.Record(r.Context(), actorID(r), "Category Update", fmt.Sprintf("updated category %q (%s)", c.Title, c.ID))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCategory(e, c) })
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.categories.Delete(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	h.audit.Record(r.Context(), actorID(r), "Category Deletion", fmt.Sprintf("deleted category %s", id))
	w.WriteHeader(http.StatusNoContent)
}
