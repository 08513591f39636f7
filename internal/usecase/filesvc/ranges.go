package filesvc

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// ByteRange включительный диапазон байтов [Start, End].
type ByteRange struct {
	Start uint64
	End   uint64
}

// Length возвращает число байтов в диапазоне.
func (r ByteRange) Length() uint64 {
	return r.End - r.Start + 1
}

// RangeKind вариант результата разбора Range.
type RangeKind int

const (
	// RangeFull: Range не применяется, отдаём файл целиком со статусом 200.
	RangeFull RangeKind = iota
	// RangeSatisfiable: есть хотя бы один диапазон, статус 206.
	RangeSatisfiable
	// RangeUnsatisfiable: ни один диапазон не попал в файл, статус 416.
	RangeUnsatisfiable
	// RangeMalformed: синтаксически битый заголовок, статус 400.
	RangeMalformed
)

func (k RangeKind) String() string {
	switch k {
	case RangeFull:
		return "full"
	case RangeSatisfiable:
		return "satisfiable"
	case RangeUnsatisfiable:
		return "unsatisfiable"
	case RangeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// RangeOutcome результат RangeResolver; Ranges заполнен только для RangeSatisfiable.
type RangeOutcome struct {
	Kind   RangeKind
	Ranges []ByteRange
}

// ParseRange разбирает значение Range для файла размером size.
// Пересекающиеся и соседние диапазоны склеиваются, результат отсортирован по Start.
func ParseRange(size uint64, header string) RangeOutcome {
	eq := strings.IndexByte(header, '=')
	if eq < 0 {
		return RangeOutcome{Kind: RangeMalformed}
	}

	// Неизвестные единицы игнорируются, как будто Range не было.
	if !strings.EqualFold(strings.TrimSpace(header[:eq]), "bytes") {
		return RangeOutcome{Kind: RangeFull}
	}

	var ranges []ByteRange
	for _, spec := range strings.Split(header[eq+1:], ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}

		r, ok, err := parseRangeSpec(spec, size)
		if err != nil {
			return RangeOutcome{Kind: RangeMalformed}
		}
		if ok {
			ranges = append(ranges, r)
		}
	}

	if len(ranges) == 0 {
		return RangeOutcome{Kind: RangeUnsatisfiable}
	}

	return RangeOutcome{Kind: RangeSatisfiable, Ranges: combineRanges(ranges)}
}

// parseRangeSpec разбирает "a-b", "a-" или "-n". ok=false означает диапазон вне файла.
func parseRangeSpec(spec string, size uint64) (ByteRange, bool, error) {
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return ByteRange{}, false, fmt.Errorf("missing dash in %q", spec)
	}

	startStr := strings.TrimSpace(spec[:dash])
	endStr := strings.TrimSpace(spec[dash+1:])
	if startStr == "" && endStr == "" {
		return ByteRange{}, false, fmt.Errorf("empty range %q", spec)
	}
	if (startStr != "" && !isDigits(startStr)) || (endStr != "" && !isDigits(endStr)) {
		return ByteRange{}, false, fmt.Errorf("invalid range %q", spec)
	}

	if size == 0 {
		return ByteRange{}, false, nil
	}
	last := size - 1

	// -n: последние n байтов
	if startStr == "" {
		suffix := parseDigits(endStr)
		if suffix == 0 {
			return ByteRange{}, false, nil
		}
		if suffix > size {
			suffix = size
		}
		return ByteRange{Start: size - suffix, End: last}, true, nil
	}

	start := parseDigits(startStr)
	if start > last {
		return ByteRange{}, false, nil
	}

	end := last
	if endStr != "" {
		end = parseDigits(endStr)
		if end < start {
			return ByteRange{}, false, nil
		}
		if end > last {
			end = last
		}
	}

	return ByteRange{Start: start, End: end}, true, nil
}

// combineRanges склеивает пересекающиеся и соседние диапазоны.
func combineRanges(ranges []ByteRange) []ByteRange {
	sorted := append([]ByteRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	out := sorted[:1]
	for _, r := range sorted[1:] {
		cur := &out[len(out)-1]
		if r.Start <= cur.End+1 {
			if r.End > cur.End {
				cur.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// parseDigits переполнение трактует как бесконечно большое число.
func parseDigits(s string) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return math.MaxUint64
	}
	return n
}

// resolveRange применяет настройки и If-Range, прежде чем разбирать Range.
func (s *Files) resolveRange(req, res http.Header, size uint64) RangeOutcome {
	if !s.Options.AcceptRanges {
		return RangeOutcome{Kind: RangeFull}
	}

	header := req.Get("Range")
	if header == "" || !isRangeFresh(req, res) {
		return RangeOutcome{Kind: RangeFull}
	}

	return ParseRange(size, header)
}
