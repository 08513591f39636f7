package filesvc

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/yourname/devfiles/internal/models"
)

// Respond проводит запрос через конечный автомат ответа.
//
// Терминальные ошибки (405, 403, 404, 500, 412, 400, 416) возвращаются до записи
// статуса и обёрнуты в сентинелы models; их отображает в статус вызывающая сторона.
// nil означает, что ответ уже зафиксирован (200, 206, 304 или HEAD).
func (s *Files) Respond(w http.ResponseWriter, r *http.Request) error {
	if err := checkMethod(r.Method); err != nil {
		return err
	}

	target, err := resolvePath(s.root, r.URL.Path)
	if err != nil {
		return err
	}

	ctx := r.Context()
	meta, err := s.Source.Stat(ctx, target.name)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrIO) {
			err = fmt.Errorf("%w: %w", models.ErrIO, err)
		}
		return err
	}
	if meta.IsDir {
		return fmt.Errorf("%s is a directory: %w", target.name, models.ErrForbidden)
	}
	if target.trailingSlash {
		return fmt.Errorf("%s is not a directory: %w", target.name, models.ErrForbidden)
	}

	h := w.Header()
	s.composeHeaders(h, target.name, meta)

	if isConditionalRequest(r.Header) {
		if preconditionFailed(r.Header, h) {
			return fmt.Errorf("%s: %w", target.name, models.ErrPreconditionFailed)
		}
		if isFresh(r.Header, h) {
			h.Del("Content-Type")
			h.Del("Content-Length")
			w.WriteHeader(http.StatusNotModified)
			return nil
		}
	}

	if r.Method == http.MethodHead {
		h.Set("Content-Length", strconv.FormatUint(meta.Size, 10))
		w.WriteHeader(http.StatusOK)
		return nil
	}

	outcome := s.resolveRange(r.Header, h, meta.Size)
	status, parts, err := planBody(h, outcome, meta.Size)
	if err != nil {
		return err
	}

	w.WriteHeader(status)

	written, err := s.stream.Copy(ctx, w, s.stream.Chunks(ctx, target.name, parts))
	s.Metrics.AddStreamedBytes(written)
	if err != nil {
		// Заголовки уже ушли: остаётся оборвать тело.
		s.Metrics.StreamAborted()
		s.Logger.Warn().Err(err).
			Str("path", target.name).
			Int64("written", written).
			Msg("Response body aborted")
	}

	return nil
}

// planBody выставляет статус-зависимые заголовки и возвращает части тела.
func planBody(h http.Header, outcome RangeOutcome, size uint64) (int, []Part, error) {
	switch outcome.Kind {
	case RangeMalformed:
		return 0, nil, models.ErrRangeMalformed
	case RangeUnsatisfiable:
		h.Set("Content-Range", unsatisfiedRange(size))
		return 0, nil, fmt.Errorf("%s: %w", unsatisfiedRange(size), models.ErrRangeUnsatisfiable)
	case RangeSatisfiable:
		if len(outcome.Ranges) == 1 {
			r := outcome.Ranges[0]
			h.Set("Content-Range", contentRange(r, size))
			h.Set("Content-Length", strconv.FormatUint(r.Length(), 10))
			return http.StatusPartialContent, []Part{{ByteRange: r}}, nil
		}

		boundary := newBoundary()
		parts := multipartParts(outcome.Ranges, size, h.Get("Content-Type"), boundary)
		h.Set("Content-Type", multipartContentType(boundary))
		h.Set("Content-Length", strconv.FormatUint(contentLength(parts), 10))
		return http.StatusPartialContent, parts, nil
	default:
		h.Set("Content-Length", strconv.FormatUint(size, 10))
		if size == 0 {
			return http.StatusOK, nil, nil
		}
		return http.StatusOK, []Part{{ByteRange: ByteRange{Start: 0, End: size - 1}}}, nil
	}
}
