package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSConfig controls which browser origins may call the API. An origin of
// "*" allows any origin; the request's own origin is echoed back either way.
type CORSConfig struct {
	AllowedOrigins   []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string      `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	ExposedHeaders   []string      `yaml:"exposed_headers" mapstructure:"exposed_headers"`
	AllowCredentials bool          `yaml:"allow_credentials" mapstructure:"allow_credentials"`
	MaxAge           time.Duration `yaml:"max_age" mapstructure:"max_age"`
}

// corsPolicy is a CORSConfig with its header values rendered once.
type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]struct{}
	methods     string
	headers     string
	exposed     string
	credentials bool
	maxAge      string
}

func newCORSPolicy(cfg *CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins:     make(map[string]struct{}, len(cfg.AllowedOrigins)),
		methods:     strings.Join(cfg.AllowedMethods, ", "),
		headers:     strings.Join(cfg.AllowedHeaders, ", "),
		exposed:     strings.Join(cfg.ExposedHeaders, ", "),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	if secs := int(cfg.MaxAge / time.Second); secs > 0 {
		p.maxAge = strconv.Itoa(secs)
	}
	return p
}

func (p *corsPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.anyOrigin {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// CORS tags responses to allowed origins and answers every OPTIONS request
// with 204. Preflights from other origins get no CORS headers, which the
// browser treats as a refusal.
func CORS(cfg *CORSConfig) Middleware {
	p := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")
			origin := r.Header.Get("Origin")
			allowed := p.allows(origin)
			if allowed {
				h.Set("Access-Control-Allow-Origin", origin)
				if p.credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method != http.MethodOptions {
				if allowed && p.exposed != "" {
					h.Set("Access-Control-Expose-Headers", p.exposed)
				}
				next.ServeHTTP(w, r)
				return
			}

			if allowed {
				setIf(h, "Access-Control-Allow-Methods", p.methods)
				setIf(h, "Access-Control-Allow-Headers", p.headers)
				setIf(h, "Access-Control-Max-Age", p.maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func setIf(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}
