package devhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
)

func (s *Server) logAccess(r *http.Request, status, size int, duration time.Duration) {
	s.metrics.ObserveResponse(r.Method, status, duration)

	hlog.FromRequest(r).Debug().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("bytes", size).
		Dur("duration", duration).
		Str("remote_ip", r.RemoteAddr).
		Msg("Request served")
}
