package filesvc

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourname/devfiles/internal/models"
)

func TestFormatETag(t *testing.T) {
	meta := models.FileMetadata{Size: 10, ModTime: testModTime}

	assert.Equal(t, `"a-18cc820d888"`, FormatETag(meta))
	// тот же файл даёт те же валидаторы
	assert.Equal(t, FormatETag(meta), FormatETag(models.FileMetadata{Size: 10, ModTime: testModTime}))
	assert.NotEqual(t, FormatETag(meta), FormatETag(models.FileMetadata{Size: 11, ModTime: testModTime}))
	assert.Equal(t, "Tue, 02 Jan 2024 03:04:05 GMT", FormatLastModified(meta))
}

func TestComposeHeaders_Defaults(t *testing.T) {
	files := &Files{Deps: Deps{Options: DefaultOptions("/srv")}}
	meta := models.FileMetadata{Size: 10, ModTime: testModTime}

	h := http.Header{}
	files.composeHeaders(h, "/srv/app.js", meta)

	assert.Contains(t, h.Get("Content-Type"), "javascript")
	assert.Equal(t, FormatETag(meta), h.Get("ETag"))
	assert.Equal(t, "bytes", h.Get("Accept-Ranges"))
	assert.Equal(t, "Tue, 02 Jan 2024 03:04:05 GMT", h.Get("Last-Modified"))
	assert.Empty(t, h.Get("Cache-Control"))
}

func TestComposeHeaders_Disabled(t *testing.T) {
	files := &Files{Deps: Deps{Options: Options{Root: "/srv", CacheControl: "no-store"}}}

	h := http.Header{}
	h.Set("ETag", `"stale"`)
	h.Set("Last-Modified", "stale")
	h.Set("Accept-Ranges", "none")
	files.composeHeaders(h, "/srv/blob", models.FileMetadata{Size: 1, ModTime: testModTime})

	assert.Equal(t, "application/octet-stream", h.Get("Content-Type"))
	assert.Empty(t, h.Values("ETag"))
	assert.Empty(t, h.Values("Last-Modified"))
	assert.Empty(t, h.Values("Accept-Ranges"))
	assert.Equal(t, "no-store", h.Get("Cache-Control"))
}

func TestComposeHeaders_UserHeaders(t *testing.T) {
	t.Run("static, protocol fields win", func(t *testing.T) {
		opts := DefaultOptions("/srv")
		opts.Headers = StaticHeaders{"X-Build": "42", "ETag": `"mine"`, "Content-Type": "text/plain"}
		files := &Files{Deps: Deps{Options: opts}}

		h := http.Header{}
		files.composeHeaders(h, "/srv/app.css", models.FileMetadata{Size: 3, ModTime: testModTime})

		assert.Equal(t, "42", h.Get("X-Build"))
		assert.NotEqual(t, `"mine"`, h.Get("ETag"))
		assert.Contains(t, h.Get("Content-Type"), "text/css")
	})

	t.Run("computed sees path and metadata", func(t *testing.T) {
		var gotName string
		var gotSize uint64
		opts := DefaultOptions("/srv")
		opts.Headers = ComputedHeaders(func(name string, meta models.FileMetadata) map[string]string {
			gotName, gotSize = name, meta.Size
			return map[string]string{"X-Path": name}
		})
		files := &Files{Deps: Deps{Options: opts}}

		h := http.Header{}
		files.composeHeaders(h, "/srv/index.html", models.FileMetadata{Size: 7, ModTime: testModTime})

		assert.Equal(t, "/srv/index.html", gotName)
		assert.Equal(t, uint64(7), gotSize)
		assert.Equal(t, "/srv/index.html", h.Get("X-Path"))
	})

	t.Run("nil computed", func(t *testing.T) {
		opts := DefaultOptions("/srv")
		opts.Headers = ComputedHeaders(nil)
		files := &Files{Deps: Deps{Options: opts}}

		h := http.Header{}
		files.composeHeaders(h, "/srv/a.txt", models.FileMetadata{ModTime: testModTime})
		assert.NotEmpty(t, h.Get("ETag"))
	})
}
