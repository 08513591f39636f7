package httperrors

import (
	"errors"
	"net/http"

	"github.com/yourname/devfiles/internal/models"
)

// Write переводит ошибку ответчика в HTTP-статус.
// 412, 416 и 400 уходят с пустым телом, остальные статусы с текстом статуса.
func Write(w http.ResponseWriter, err error) {
	code := Status(err)
	switch code {
	case http.StatusPreconditionFailed, http.StatusRequestedRangeNotSatisfiable, http.StatusBadRequest:
		h := w.Header()
		h.Del("Content-Type")
		h.Set("Content-Length", "0")
		w.WriteHeader(code)
	default:
		h := w.Header()
		if code == http.StatusMethodNotAllowed {
			h.Set("Allow", "GET, HEAD")
		}
		// заголовки сущности, выставленные до ошибки, к тексту статуса не относятся
		for _, k := range []string{"ETag", "Last-Modified", "Accept-Ranges", "Cache-Control", "Content-Range"} {
			h.Del(k)
		}
		http.Error(w, http.StatusText(code), code)
	}
}

// Status возвращает код, который Write выставит для err.
func Status(err error) int {
	switch {
	case errors.Is(err, models.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, models.ErrRangeUnsatisfiable):
		return http.StatusRequestedRangeNotSatisfiable
	case errors.Is(err, models.ErrRangeMalformed):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
