package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/loot-dogs/gameserver/internal/apperr"
	"github.com/loot-dogs/gameserver/internal/avatar"
)

type playerContextKey struct{}

const bearerPrefix = "Bearer "

// authenticated wraps fn, requiring a valid "Authorization: Bearer <token>"
// header that resolves to a live avatar. The avatar is attached to the
// request context for the handler to retrieve via playerFromContext.
func (s *Server) authenticated(fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			writeError(w, apperr.New(apperr.Unauthorized, "missing or malformed Authorization header"))
			return
		}
		token := strings.TrimPrefix(header, bearerPrefix)
		a, ok := s.world.PlayerByToken(token)
		if !ok {
			writeError(w, apperr.New(apperr.Unauthorized, "unknown token"))
			return
		}
		ctx := context.WithValue(r.Context(), playerContextKey{}, a)
		fn(w, r.WithContext(ctx))
	})
}

func playerFromContext(r *http.Request) *avatar.Avatar {
	a, _ := r.Context().Value(playerContextKey{}).(*avatar.Avatar)
	return a
}
