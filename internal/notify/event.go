// Package notify delivers storefront events to connected clients and to a
// message broker.
package notify

import (
	"sort"
	"strings"
	"time"

	"github.com/go-faster/jx"
)

// Event types.
const (
	TypeConnected      = "CONNECTED"
	TypeOrderStatus    = "ORDER_STATUS"
	TypeAdminNewOrder  = "ADMIN_NEW_ORDER"
	TypeAdminLowStock  = "ADMIN_LOW_STOCK"
	TypeAdminNewReview = "ADMIN_NEW_REVIEW"
)

const adminPrefix = "ADMIN_"

// Event is a notification addressed either to one user (UserID) or, for
// ADMIN_* types, to every administrator.
type Event struct {
	ID        string
	Type      string
	UserID    string
	Message   string
	Data      map[string]string
	CreatedAt time.Time
}

// ForAdmins reports whether the event targets administrators.
func (e Event) ForAdmins() bool {
	return strings.HasPrefix(e.Type, adminPrefix)
}

// Encode writes the event as a JSON object.
func (e Event) Encode(enc *jx.Encoder) {
	enc.ObjStart()
	enc.FieldStart("id")
	enc.Str(e.ID)
	enc.FieldStart("type")
	enc.Str(e.Type)
	if e.UserID != "" {
		enc.FieldStart("userId")
		enc.Str(e.UserID)
	}
	enc.FieldStart("message")
	enc.Str(e.Message)
	if len(e.Data) > 0 {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		enc.FieldStart("data")
		enc.ObjStart()
		for _, k := range keys {
			enc.FieldStart(k)
			enc.Str(e.Data[k])
		}
		enc.ObjEnd()
	}
	enc.FieldStart("createdAt")
	enc.Str(e.CreatedAt.UTC().Format(time.RFC3339))
	enc.ObjEnd()
}

// JSON returns the encoded event.
func (e Event) JSON() []byte {
	var enc jx.Encoder
	e.Encode(&enc)
	return enc.Bytes()
}
