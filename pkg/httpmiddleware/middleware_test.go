package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_Order(t *testing.T) {
	var trail []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trail = append(trail, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Wrap(okHandler(), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, trail)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		cfg         CORSConfig
		method      string
		headers     map[string]string
		wantCode    int
		wantOrigin  string
		wantHeaders string
		wantCreds   string
	}{
		{
			name:       "any origin simple request",
			cfg:        CORSConfig{},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://shop.example"},
			wantCode:   http.StatusOK,
			wantOrigin: "*",
		},
		{
			name:       "listed origin echoed with configured case",
			cfg:        CORSConfig{Origins: []string{"https://Shop.example"}},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://shop.example"},
			wantCode:   http.StatusOK,
			wantOrigin: "https://Shop.example",
		},
		{
			name:     "unlisted origin",
			cfg:      CORSConfig{Origins: []string{"https://shop.example"}},
			method:   http.MethodGet,
			headers:  map[string]string{"Origin": "https://evil.example"},
			wantCode: http.StatusOK,
		},
		{
			name:   "preflight echoes requested headers",
			cfg:    CORSConfig{},
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":                         "https://shop.example",
				"Access-Control-Request-Method":  "POST",
				"Access-Control-Request-Headers": "api_key",
			},
			wantCode:    http.StatusNoContent,
			wantOrigin:  "*",
			wantHeaders: "api_key",
		},
		{
			name:   "credentials disable wildcard",
			cfg:    CORSConfig{Origins: []string{"*", "https://shop.example"}, Credentials: true, Headers: []string{"Content-Type", "api_key"}},
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":                        "https://shop.example",
				"Access-Control-Request-Method": "PUT",
			},
			wantCode:    http.StatusNoContent,
			wantOrigin:  "https://shop.example",
			wantHeaders: "Content-Type, api_key",
			wantCreds:   "true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/products", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			CORS(tt.cfg)(okHandler()).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantHeaders, w.Header().Get("Access-Control-Allow-Headers"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), InjectLogger(zap.New(core)), Recovery())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal server error"}`, w.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Panic recovered", logs.All()[0].Message)
}

func TestRecovery_AbortHandler(t *testing.T) {
	h := Recovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "absent", incoming: "", keep: false},
		{name: "valid", incoming: "req-123", keep: true},
		{name: "too long", incoming: strings.Repeat("a", 129), keep: false},
		{name: "control characters", incoming: "bad\nid", keep: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
			if tt.keep {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.NotEqual(t, tt.incoming, seen)
			}
		})
	}
}

func TestLogRequests(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zctx.From(r.Context()).Info("Handling")
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("hello"))
	}), RequestID(), InjectLogger(zap.New(core)), LogRequests())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/fail", nil))

	entries := logs.FilterMessage("Request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/ok", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.EqualValues(t, 5, fields["bytes"])
	assert.NotEmpty(t, fields["request_id"])

	failed := logs.FilterMessage("Request failed").All()
	require.Len(t, failed, 1)
	assert.EqualValues(t, http.StatusBadGateway, failed[0].ContextMap()["status"])

	assert.Equal(t, 2, logs.FilterMessage("Handling").Len())
}
