package handler

import (
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/domain/product"
)

// productFields lists the fields an admin may set on create and update. Stock
// is accepted on create only; afterwards it moves through checkout and restock.
func productFields(p *product.Product) fields {
	return fields{
		"title":       str(&p.Title),
		"slug":        str(&p.Slug),
		"description": str(&p.Description),
		"images":      stringList(&p.Images),
		"price":       money(&p.Price),
		"salePrice":   optMoney(&p.SalePrice),
		"categoryId":  str(&p.CategoryID),
		"tags":        stringList(&p.Tags),
		"isFeatured":  boolean(&p.IsFeatured),
		"status": func(d *jx.Decoder) error {
			s, err := d.Str()
			p.Status = product.Status(s)
			return err
		},
	}
}

var priceMessage = fmt.Sprintf("must be a non-negative amount with at most %d decimals", product.PriceScale)

func validateProduct(p *product.Product) error {
	p.Title = strings.TrimSpace(p.Title)
	switch {
	case p.Title == "":
		return invalid("title", "is required")
	case !product.ValidPrice(p.Price):
		return invalid("price", priceMessage)
	case p.SalePrice.Valid && !product.ValidPrice(p.SalePrice.Decimal):
		return invalid("salePrice", priceMessage)
	case p.Stock < 0 || p.Stock > product.MaxStock:
		return invalid("stock", fmt.Sprintf("must be between 0 and %d", product.MaxStock))
	}
	if p.Slug == "" {
		p.Slug = slugify(p.Title)
	}
	if p.Status == "" {
		p.Status = product.StatusActive
	}
	if p.Status != product.StatusActive && p.Status != product.StatusInactive {
		return invalid("status", "must be active or inactive")
	}
	return nil
}

// slugify lowercases s and joins its alphanumeric runs with dashes.
func slugify(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, "-")
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("title", func(e *jx.Encoder) { e.Str(p.Title) })
		e.Field("slug", func(e *jx.Encoder) { e.Str(p.Slug) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("images", func(e *jx.Encoder) { encodeStrings(e, p.Images) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
		e.Field("salePrice", func(e *jx.Encoder) {
			if p.SalePrice.Valid {
				encodeMoney(e, p.SalePrice.Decimal)
				return
			}
			e.Null()
		})
		e.Field("unitPrice", func(e *jx.Encoder) { encodeMoney(e, p.UnitPrice()) })
		if badge := p.SaleBadge(); badge != "" {
			e.Field("saleBadge", func(e *jx.Encoder) { e.Str(badge) })
		}
		e.Field("availabilityLabel", func(e *jx.Encoder) { e.Str(p.AvailabilityLabel()) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
		if p.CategoryID != "" {
			e.Field("categoryId", func(e *jx.Encoder) { e.Str(p.CategoryID) })
		}
		e.Field("tags", func(e *jx.Encoder) { encodeStrings(e, p.Tags) })
		e.Field("isFeatured", func(e *jx.Encoder) { e.Bool(p.IsFeatured) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(p.Status)) })
		e.Field("rating", func(e *jx.Encoder) { e.Float64(p.Rating) })
		e.Field("totalReviews", func(e *jx.Encoder) { e.Int(p.TotalReviews) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, p.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, p.UpdatedAt) })
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.products.List(r.Context(), product.Filter{
		CategoryID:   q.Get("category"),
		FeaturedOnly: q.Get("featured") == "true",
	})
	if err != nil {
		fail(w, r, errors.Wrap(err, "list products"))
		return
	}
	if !auth.PrincipalFrom(r.Context()).IsAdmin() {
		visible := products[:0]
		for _, p := range products {
			if p.Status == product.StatusActive {
				visible = append(visible, p)
			}
		}
		products = visible
	}
	writeJSON(w, http.StatusOK, encodeList(products, encodeProduct))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if p.Status != product.StatusActive && !auth.PrincipalFrom(r.Context()).IsAdmin() {
		fail(w, r, product.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var p product.Product
	fs := productFields(&p)
	fs["stock"] = integer(&p.Stock)
	if err := decodeBody(r, fs); err != nil {
		fail(w, r, err)
		return
	}
	if err := validateProduct(&p); err != nil {
		fail(w, r, err)
		return
	}
	now := h.now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := h.products.Create(r.Context(), &p); err != nil {
		fail(w, r, errors.Wrap(err, "create product"))
		return
	}
	h.audit.Record(r.Context(), actorID(r), "Product Creation", fmt.Sprintf("created product %q (%s)", p.Title, p.ID))
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeProduct(e, &p) })
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := decodeBody(r, productFields(p)); err != nil {
		fail(w, r, err)
		return
	}
	if err := validateProduct(p); err != nil {
		fail(w, r, err)
		return
	}
	p.UpdatedAt = h.now().UTC()

	if err := h.products.Update(r.Context(), p); err != nil {
		fail(w, r, errors.Wrap(err, "update product"))
		return
	}
	h.audit.Record(r.Context(), actorID(r), "Product Update", fmt.Sprintf("updated product %q (%s)", p.Title, p.ID))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.products.Delete(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	h.audit.Record(r.Context(), actorID(r), "Product Deletion", fmt.Sprintf("deleted product %s", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) restockProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	qty := 0
	if err := decodeBody(r, fields{"quantity": integer(&qty)}); err != nil {
		fail(w, r, err)
		return
	}
	if qty <= 0 || qty > product.MaxStock {
		fail(w, r, invalid("quantity", fmt.Sprintf("must be between 1 and %d", product.MaxStock)))
		return
	}

	stock, err := h.products.Restock(r.Context(), id, qty)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.audit.Record(r.Context(), actorID(r), "Product Restock", fmt.Sprintf("added %d units to product %s", qty, id))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Str(id) })
			e.Field("stock", func(e *jx.Encoder) { e.Int(stock) })
		})
	})
}

func (h *Handler) listProductReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListByProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, errors.Wrap(err, "list product reviews"))
		return
	}
	writeJSON(w, http.StatusOK, encodeList(reviews, encodeReview))
}
