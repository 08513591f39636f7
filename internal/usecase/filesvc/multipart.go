package filesvc

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Part один кусок тела ответа: диапазон и обрамление multipart/byteranges.
type Part struct {
	ByteRange
	Preamble string
	Suffix   string
}

// Size возвращает число байтов, которое часть займёт в теле ответа.
func (p Part) Size() uint64 {
	return p.Length() + uint64(len(p.Preamble)) + uint64(len(p.Suffix))
}

// newBoundary генерирует разделитель; он не зависит от содержимого файла.
func newBoundary() string {
	return uuid.NewString()
}

// multipartContentType значение Content-Type для ответа с несколькими частями.
func multipartContentType(boundary string) string {
	return "multipart/byteranges; boundary=" + boundary
}

// multipartParts строит преамбулы и завершающий разделитель для каждого диапазона.
func multipartParts(ranges []ByteRange, size uint64, contentType, boundary string) []Part {
	parts := make([]Part, len(ranges))
	for i, r := range ranges {
		var b strings.Builder
		if i > 0 {
			b.WriteString("\r\n")
		}
		b.WriteString("--")
		b.WriteString(boundary)
		b.WriteString("\r\nContent-Type: ")
		b.WriteString(contentType)
		b.WriteString("\r\nContent-Range: ")
		b.WriteString(contentRange(r, size))
		b.WriteString("\r\n\r\n")

		parts[i] = Part{ByteRange: r, Preamble: b.String()}
	}
	parts[len(parts)-1].Suffix = "\r\n--" + boundary + "--\r\n"
	return parts
}

// contentLength точная длина тела в байтах, включая обрамление.
func contentLength(parts []Part) uint64 {
	var total uint64
	for _, p := range parts {
		total += p.Size()
	}
	return total
}

func contentRange(r ByteRange, size uint64) string {
	return "bytes " + strconv.FormatUint(r.Start, 10) + "-" + strconv.FormatUint(r.End, 10) +
		"/" + strconv.FormatUint(size, 10)
}

func unsatisfiedRange(size uint64) string {
	return "bytes */" + strconv.FormatUint(size, 10)
}
