package handler

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const maxBodySize = 1 << 20

// ValidationError reports a malformed or incomplete request payload. Field is
// the JSON path of the offending value, e.g. "items[1].quantity".
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

func path(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// fields maps every accepted payload key to its decoder. Keys outside the
// map and repeated keys are rejected, so each payload has exactly one
// spelling and one value per field.
type fields map[string]func(d *jx.Decoder) error

func decodeObject(d *jx.Decoder, prefix string, fs fields) error {
	if d.Next() != jx.Object {
		return invalid(prefix, "must be an object")
	}
	seen := make(map[string]struct{}, len(fs))
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		name := string(key)
		field := path(prefix, name)
		fn, ok := fs[name]
		if !ok {
			return invalid(field, "unknown field")
		}
		if _, dup := seen[name]; dup {
			return invalid(field, "duplicate field")
		}
		seen[name] = struct{}{}
		if err := fn(d); err != nil {
			if ve, ok := asValidation(err); ok {
				return ve
			}
			return invalid(field, "invalid value")
		}
		return nil
	})
}

func asValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// decodeBody reads the request body as one JSON object mapped by fs.
func decodeBody(r *http.Request, fs fields) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return invalid("", "unreadable request body")
	}
	if len(body) > maxBodySize {
		return invalid("", "request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return invalid("", "request body is required")
	}

	d := jx.DecodeBytes(body)
	if err := decodeObject(d, "", fs); err != nil {
		if ve, ok := asValidation(err); ok {
			return ve
		}
		return invalid("", "malformed JSON body")
	}
	if d.Next() != jx.Invalid {
		return invalid("", "unexpected data after JSON object")
	}
	return nil
}

func str(dst *string) func(*jx.Decoder) error {
	return func(d *jx.Decoder) (err error) {
		*dst, err = d.Str()
		return err
	}
}

func integer(dst *int) func(*jx.Decoder) error {
	return func(d *jx.Decoder) (err error) {
		*dst, err = d.Int()
		return err
	}
}

func boolean(dst *bool) func(*jx.Decoder) error {
	return func(d *jx.Decoder) (err error) {
		*dst, err = d.Bool()
		return err
	}
}

func stringList(dst *[]string) func(*jx.Decoder) error {
	return func(d *jx.Decoder) error {
		out := make([]string, 0)
		if err := d.Arr(func(d *jx.Decoder) error {
			s, err := d.Str()
			out = append(out, s)
			return err
		}); err != nil {
			return err
		}
		*dst = out
		return nil
	}
}

// readDecimal accepts a JSON number or a numeric string.
func readDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Decimal{}, errors.New("not a number")
	}
}

func money(dst *decimal.Decimal) func(*jx.Decoder) error {
	return func(d *jx.Decoder) (err error) {
		*dst, err = readDecimal(d)
		return err
	}
}

// optMoney decodes a decimal or null.
func optMoney(dst *decimal.NullDecimal) func(*jx.Decoder) error {
	return func(d *jx.Decoder) error {
		if d.Next() == jx.Null {
			*dst = decimal.NullDecimal{}
			return d.Null()
		}
		v, err := readDecimal(d)
		if err != nil {
			return err
		}
		*dst = decimal.NewNullDecimal(v)
		return nil
	}
}

func timestamp(dst *time.Time) func(*jx.Decoder) error {
	return func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		*dst, err = time.Parse(time.RFC3339, s)
		return err
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalid(name, "must be an integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg, field string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
			if field != "" {
				e.Field("field", func(e *jx.Encoder) { e.Str(field) })
			}
		})
	})
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Float64(d.Round(2).InexactFloat64())
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeStrings(e *jx.Encoder, ss []string) {
	e.Arr(func(e *jx.Encoder) {
		for _, s := range ss {
			e.Str(s)
		}
	})
}

func encodeList[T any](items []T, encode func(*jx.Encoder, *T)) func(*jx.Encoder) {
	return func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range items {
				encode(e, &items[i])
			}
		})
	}
}
