package middleware

import (
	"net/http"

	"github.com/zerospeak/stranglergw/internal/util"
)

// MatchContext installs the match-state holder the proxy writes the
// resolved route and cluster into. It must wrap outside any middleware
// that labels by route, which all read the holder after the inner handler
// returns.
func MatchContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _ := util.ContextWithMatchState(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
