package filesvc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yourname/devfiles/internal/metrics"
	"github.com/yourname/devfiles/internal/models"
)

type (
	// ByteSource хранилище артефактов сборки: диск, память или бакет.
	ByteSource interface {
		// Stat возвращает метаданные файла; ошибки оборачивают models.ErrNotFound или models.ErrIO.
		Stat(ctx context.Context, name string) (models.FileMetadata, error)
		// OpenRange открывает чтение байтов [start, end] включительно.
		OpenRange(ctx context.Context, name string, start, end uint64) (io.ReadCloser, error)
	}

	// Service отвечает на GET/HEAD запросы к файлам сборки.
	Service interface {
		Respond(w http.ResponseWriter, r *http.Request) error
	}
)

type Deps struct {
	Source  ByteSource
	Options Options
	Logger  zerolog.Logger
	Metrics metrics.Recorder
}

type Files struct {
	Deps
	root   string
	stream *StreamComposer
}

// New конструирует файловый сервис; Options.Root должен быть абсолютным путём.
func New(deps Deps) (*Files, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("byte source is required")
	}

	root := strings.TrimSpace(deps.Options.Root)
	if root == "" {
		return nil, fmt.Errorf("root is required")
	}
	root = path.Clean(unixify(root))

	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}

	return &Files{
		Deps: deps,
		root: root,
		stream: &StreamComposer{
			Source:      deps.Source,
			Window:      streamWindow,
			BytesPerSec: deps.Options.ThrottleBytesPerSec,
		},
	}, nil
}

var _ Service = (*Files)(nil)

// Root возвращает нормализованный корень сервиса.
func (s *Files) Root() string {
	return s.root
}
