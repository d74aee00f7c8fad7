package pipeline

import (
	"net/http"
	"regexp"

	"github.com/enkryptcom/enkrypt-backend/pkg/apierrors"
	"github.com/enkryptcom/enkrypt-backend/pkg/log"
)

// WithCORS matches the Origin header against a whitelist of compiled
// regexes, the way the teacher's Middleware.CheckAccessControl matches
// client IPs against CIDRs. A request with no Origin header (same-origin,
// curl, server-to-server) is always allowed through.
func WithCORS(whitelist []string) Middleware {
	patterns := make([]*regexp.Regexp, 0, len(whitelist))
	for _, pat := range whitelist {
		re, err := regexp.Compile(pat)
		if err != nil {
			log.Logger.Warn().Str("pattern", pat).Err(err).Msg("invalid API_ORIGIN_WHITELIST pattern, skipping")
			continue
		}
		patterns = append(patterns, re)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if len(patterns) == 0 {
				writeErr(w, r, apierrors.BadRequest("ORIGIN_NOT_ALLOWED", "origin not permitted"))
				return
			}

			allowed := false
			for _, re := range patterns {
				if re.MatchString(origin) {
					allowed = true
					break
				}
			}
			if !allowed {
				writeErr(w, r, apierrors.BadRequest("ORIGIN_NOT_ALLOWED", "origin not permitted"))
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			next.ServeHTTP(w, r)
		})
	}
}
