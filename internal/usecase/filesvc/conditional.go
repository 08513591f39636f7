package filesvc

import (
	"net/http"
	"strings"
	"time"
)

// entityTag разобранный валидатор: opaque включает кавычки.
type entityTag struct {
	opaque string
	weak   bool
}

// isConditionalRequest сообщает, есть ли в запросе условные заголовки кеша.
func isConditionalRequest(req http.Header) bool {
	return req.Get("If-Match") != "" ||
		req.Get("If-None-Match") != "" ||
		req.Get("If-Modified-Since") != "" ||
		req.Get("If-Unmodified-Since") != ""
}

// preconditionFailed проверяет If-Match, затем If-Unmodified-Since.
func preconditionFailed(req, res http.Header) bool {
	if match := req.Get("If-Match"); match != "" {
		if strings.TrimSpace(match) == "*" {
			return false
		}
		current, ok := parseEntityTag(res.Get("ETag"))
		if !ok {
			return true
		}
		return !anyTagMatches(match, current, weakMatch)
	}

	if since, ok := parseHTTPDate(req.Get("If-Unmodified-Since")); ok {
		modified, ok := parseHTTPDate(res.Get("Last-Modified"))
		return !ok || modified.After(since)
	}

	return false
}

// isFresh решает, можно ли ответить 304: If-None-Match важнее If-Modified-Since.
func isFresh(req, res http.Header) bool {
	if hasNoCache(req.Get("Cache-Control")) {
		return false
	}

	if noneMatch := req.Get("If-None-Match"); noneMatch != "" {
		if strings.TrimSpace(noneMatch) == "*" {
			return true
		}
		current, ok := parseEntityTag(res.Get("ETag"))
		if !ok {
			return false
		}
		return anyTagMatches(noneMatch, current, weakMatch)
	}

	if since, ok := parseHTTPDate(req.Get("If-Modified-Since")); ok {
		modified, ok := parseHTTPDate(res.Get("Last-Modified"))
		return ok && !modified.After(since)
	}

	return false
}

// isRangeFresh проверяет If-Range: тег сравнивается только строго, иначе как дата.
func isRangeFresh(req, res http.Header) bool {
	ifRange := strings.TrimSpace(req.Get("If-Range"))
	if ifRange == "" {
		return true
	}

	if isETag(ifRange) {
		tag, ok := parseEntityTag(ifRange)
		if !ok {
			return false
		}
		current, ok := parseEntityTag(res.Get("ETag"))
		return ok && strongMatch(tag, current)
	}

	date, ok := parseHTTPDate(ifRange)
	if !ok {
		return false
	}
	modified, ok := parseHTTPDate(res.Get("Last-Modified"))
	return ok && !modified.After(date)
}

func isETag(value string) bool {
	return strings.HasPrefix(value, `"`) || strings.HasPrefix(value, `W/"`)
}

func strongMatch(a, b entityTag) bool {
	return !a.weak && !b.weak && a.opaque == b.opaque
}

func weakMatch(a, b entityTag) bool {
	return a.opaque == b.opaque
}

// anyTagMatches перебирает список тегов через запятую; битые элементы пропускаются.
func anyTagMatches(list string, current entityTag, match func(a, b entityTag) bool) bool {
	for rest := list; rest != ""; {
		rest = strings.TrimLeft(rest, " \t,")
		if rest == "" {
			break
		}

		tag, remain, ok := scanEntityTag(rest)
		if ok && match(tag, current) {
			return true
		}
		if !ok {
			// пропускаем мусор до следующего элемента
			if i := strings.IndexByte(rest, ','); i >= 0 {
				remain = rest[i+1:]
			} else {
				remain = ""
			}
		}
		rest = remain
	}
	return false
}

func parseEntityTag(value string) (entityTag, bool) {
	tag, rest, ok := scanEntityTag(strings.TrimSpace(value))
	if !ok || strings.TrimSpace(rest) != "" {
		return entityTag{}, false
	}
	return tag, true
}

// scanEntityTag читает один entity-tag с начала строки и возвращает остаток.
func scanEntityTag(s string) (entityTag, string, bool) {
	var tag entityTag
	if strings.HasPrefix(s, "W/") {
		tag.weak = true
		s = s[2:]
	}
	if len(s) < 2 || s[0] != '"' {
		return entityTag{}, s, false
	}
	end := strings.IndexByte(s[1:], '"')
	if end < 0 {
		return entityTag{}, s, false
	}
	tag.opaque = s[:end+2]
	return tag, s[end+2:], true
}

func parseHTTPDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := http.ParseTime(value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func hasNoCache(cacheControl string) bool {
	for _, directive := range strings.Split(cacheControl, ",") {
		if strings.EqualFold(strings.TrimSpace(directive), "no-cache") {
			return true
		}
	}
	return false
}
