package filesvc

import (
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/yourname/devfiles/internal/models"
)

const defaultContentType = "application/octet-stream"

// composeHeaders заполняет заголовки до условной и range-логики.
// Пользовательские значения пишутся первыми, протокольные поля их перекрывают.
func (s *Files) composeHeaders(h http.Header, name string, meta models.FileMetadata) {
	opts := s.Options

	if opts.Headers != nil {
		for key, value := range opts.Headers.headersFor(name, meta) {
			h.Set(key, value)
		}
	}

	h.Set("Content-Type", contentTypeFor(name))

	if opts.ETag {
		h.Set("ETag", FormatETag(meta))
	} else {
		h.Del("ETag")
	}

	if opts.AcceptRanges {
		h.Set("Accept-Ranges", "bytes")
	} else {
		h.Del("Accept-Ranges")
	}

	if opts.CacheControl != "" {
		h.Set("Cache-Control", opts.CacheControl)
	}

	if opts.LastModified {
		h.Set("Last-Modified", FormatLastModified(meta))
	} else {
		h.Del("Last-Modified")
	}
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}

// FormatETag строит сильный ETag из размера и времени изменения (мс), оба в hex.
func FormatETag(meta models.FileMetadata) string {
	return `"` + strconv.FormatUint(meta.Size, 16) + "-" +
		strconv.FormatInt(meta.ModTime.UnixMilli(), 16) + `"`
}

// FormatLastModified форматирует время изменения как HTTP-date.
func FormatLastModified(meta models.FileMetadata) string {
	return meta.ModTime.UTC().Format(http.TimeFormat)
}
