package devhttp

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"
)

// healthStats payload ответа /-/health.
type healthStats struct {
	OK         bool   `json:"ok"`
	BuildValid bool   `json:"build_valid"`
	Source     string `json:"source"`
	Root       string `json:"root"`
}

// health сообщает, готова ли сборка. Не ждёт её, в отличие от файловых маршрутов.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	err := json.NewEncoder(w).Encode(healthStats{
		OK:         true,
		BuildValid: s.State.Valid(),
		Source:     s.Cfg.Source,
		Root:       s.root,
	})
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to write health")
	}
}
