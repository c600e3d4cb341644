package handler

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/glowcart/storefront/internal/domain/support"
)

const maxTicketMessage = 5000

func validateTicket(t *support.Ticket) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Message = strings.TrimSpace(t.Message)
	switch {
	case t.Name == "":
		return invalid("name", "is required")
	case !support.ValidEmail(t.Email):
		return invalid("email", "must be a valid email address")
	case t.Message == "":
		return invalid("message", "is required")
	case utf8.RuneCountInString(t.Message) > maxTicketMessage:
		return invalid("message", fmt.Sprintf("must be at most %d characters", maxTicketMessage))
	}
	return nil
}

func encodeTicket(e *jx.Encoder, t *support.Ticket) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(t.ID) })
		if t.UserID != "" {
			e.Field("userId", func(e *jx.Encoder) { e.Str(t.UserID) })
		}
		e.Field("name", func(e *jx.Encoder) { e.Str(t.Name) })
		e.Field("email", func(e *jx.Encoder) { e.Str(t.Email) })
		e.Field("message", func(e *jx.Encoder) { e.Str(t.Message) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(t.Status)) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, t.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, t.UpdatedAt) })
	})
}

// createTicket accepts submissions from guests and signed-in users alike.
func (h *Handler) createTicket(w http.ResponseWriter, r *http.Request) {
	var t support.Ticket
	err := decodeBody(r, fields{
		"name":    str(&t.Name),
		"email":   str(&t.Email),
		"message": str(&t.Message),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := validateTicket(&t); err != nil {
		fail(w, r, err)
		return
	}
	now := h.now().UTC()
	t.ID = uuid.NewString()
	t.UserID = actorID(r)
	t.Status = support.StatusOpen
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := h.tickets.Create(r.Context(), &t); err != nil {
		fail(w, r, errors.Wrap(err, "create ticket"))
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeTicket(e, &t) })
}

func (h *Handler) listTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.tickets.List(r.Context())
	if err != nil {
		fail(w, r, errors.Wrap(err, "list tickets"))
		return
	}
	writeJSON(w, http.StatusOK, encodeList(tickets, encodeTicket))
}

func (h *Handler) myTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.tickets.ListByUser(r.Context(), actorID(r))
	if err != nil {
		fail(w, r, errors.Wrap(err, "list tickets"))
		return
	}
	writeJSON(w, http.StatusOK, encodeList(tickets, encodeTicket))
}

// updateTicket changes the status only; the submission itself is immutable.
func (h *Handler) updateTicket(w http.ResponseWriter, r *http.Request) {
	var status string
	if err := decodeBody(r, fields{"status": str(&status)}); err != nil {
		fail(w, r, err)
		return
	}
	s := support.Status(status)
	if !s.Valid() {
		fail(w, r, support.ErrInvalidStatus)
		return
	}

	t, err := h.tickets.SetStatus(r.Context(), r.PathValue("id"), s, h.now().UTC())
	if err != nil {
		fail(w, r, err)
		return
	}
	h.audit.Record(r.Context(), actorID(r), "Support Update", fmt.Sprintf("ticket from %s set to %s", t.Email, t.Status))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeTicket(e, t) })
}

func (h *Handler) deleteTicket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.tickets.Delete(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	h.audit.Record(r.Context(), actorID(r), "Support Deletion", fmt.Sprintf("deleted ticket %s", id))
	w.WriteHeader(http.StatusNoContent)
}
