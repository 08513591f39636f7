package filesvc

import "github.com/yourname/devfiles/internal/models"

// Options неизменяемая конфигурация ответчика, общая для всех запросов.
type Options struct {
	Root         string
	ETag         bool
	AcceptRanges bool
	// CacheControl выставляется как есть, если не пустой.
	CacheControl string
	LastModified bool
	// Headers пользовательские заголовки; nil, если их нет.
	Headers HeaderSource
	// ThrottleBytesPerSec ограничивает скорость отдачи тела на запрос, 0 отключает ограничение.
	ThrottleBytesPerSec int
}

// DefaultOptions возвращает опции с включёнными ETag, Accept-Ranges и Last-Modified.
func DefaultOptions(root string) Options {
	return Options{
		Root:         root,
		ETag:         true,
		AcceptRanges: true,
		LastModified: true,
	}
}

// HeaderSource источник пользовательских заголовков: StaticHeaders или ComputedHeaders.
type HeaderSource interface {
	headersFor(name string, meta models.FileMetadata) map[string]string
}

// StaticHeaders одинаковый набор заголовков для всех файлов.
type StaticHeaders map[string]string

func (h StaticHeaders) headersFor(string, models.FileMetadata) map[string]string {
	return h
}

// ComputedHeaders вычисляет заголовки по пути и метаданным файла.
type ComputedHeaders func(name string, meta models.FileMetadata) map[string]string

func (h ComputedHeaders) headersFor(name string, meta models.FileMetadata) map[string]string {
	if h == nil {
		return nil
	}
	return h(name, meta)
}
