package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/notify"
)

// stream serves notifications as server-sent events until the client
// disconnects.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)
	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		lg.Debug("Clear write deadline", zap.Error(err))
	}

	p := auth.PrincipalFrom(ctx)
	sub := h.hub.Subscribe(notify.Subscriber{UserID: p.ID, Admin: p.IsAdmin()}, func() {
		lg.Debug("Notification stream closed", zap.String("user_id", p.ID))
	})
	defer h.hub.Unsubscribe(sub.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(e notify.Event) error {
		if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, e.JSON()); err != nil {
			return err
		}
		return rc.Flush()
	}

	if err := send(notify.Event{
		ID:        uuid.NewString(),
		Type:      notify.TypeConnected,
		UserID:    p.ID,
		Message:   "Connected to notification stream",
		CreatedAt: h.now().UTC(),
	}); err != nil {
		return
	}

	ping := time.NewTicker(h.keepAlive)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			if err := send(e); err != nil {
				lg.Debug("Write notification", zap.Error(err))
				return
			}
		}
	}
}
