package devhttp

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/yourname/devfiles/pkg/httperrors"
)

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	err := s.FilesService.Respond(w, r)
	if err == nil {
		return
	}

	status := httperrors.Status(err)
	level := zerolog.DebugLevel
	if status >= http.StatusInternalServerError {
		level = zerolog.ErrorLevel
	}
	hlog.FromRequest(r).WithLevel(level).Err(err).Int("status", status).Msg("Request rejected")

	httperrors.Write(w, err)
}

// waitBuild держит запрос, пока сборка невалидна.
func (s *Server) waitBuild(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.State.Ready(r.Context()); err != nil {
			httperrors.Write(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
