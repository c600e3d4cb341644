package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures CORS.
type CORSConfig struct {
	// Origins allowed to call the API. Empty or "*" allows any origin.
	Origins []string
	// Methods defaults to GET, POST, PUT, DELETE, OPTIONS.
	Methods []string
	// Headers defaults to echoing Access-Control-Request-Headers.
	Headers []string
	Expose  []string
	// Credentials disables the "*" origin; matching origins are echoed.
	Credentials bool
	// MaxAge of preflight results in seconds. Zero omits the header.
	MaxAge int
}

type corsPolicy struct {
	any         bool
	origins     map[string]string // lowercase -> configured spelling
	methods     string
	headers     string
	expose      string
	credentials bool
	maxAge      string
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	p := corsPolicy{
		any:         len(cfg.Origins) == 0,
		origins:     make(map[string]string, len(cfg.Origins)),
		methods:     strings.Join(cfg.Methods, ", "),
		headers:     strings.Join(cfg.Headers, ", "),
		expose:      strings.Join(cfg.Expose, ", "),
		credentials: cfg.Credentials,
	}
	for _, o := range cfg.Origins {
		if o == "*" {
			p.any = true
			continue
		}
		p.origins[strings.ToLower(o)] = o
	}
	if p.credentials {
		p.any = false
	}
	if p.methods == "" {
		p.methods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value or "" when the
// origin is rejected.
func (p corsPolicy) allowOrigin(origin string) string {
	if p.any {
		return "*"
	}
	return p.origins[strings.ToLower(origin)]
}

// CORS handles preflight requests and decorates actual cross-origin
// responses. Vary headers are set whenever the response depends on Origin.
func CORS(cfg CORSConfig) Middleware {
	p := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")
			if !p.any {
				h.Add("Vary", "Origin")
			}
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allow := p.allowOrigin(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if allow != "" {
					h.Set("Access-Control-Allow-Origin", allow)
					h.Set("Access-Control-Allow-Methods", p.methods)
					switch {
					case p.headers != "":
						h.Set("Access-Control-Allow-Headers", p.headers)
					case r.Header.Get("Access-Control-Request-Headers") != "":
						h.Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
					}
					if p.credentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
					if p.maxAge != "" {
						h.Set("Access-Control-Max-Age", p.maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allow != "" {
				h.Set("Access-Control-Allow-Origin", allow)
				if p.credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if p.expose != "" {
					h.Set("Access-Control-Expose-Headers", p.expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
