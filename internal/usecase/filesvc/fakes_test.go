package filesvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/yourname/devfiles/internal/models"
)

var testModTime = time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)

// memSource источник в памяти, считающий открытия и закрытия.
type memSource struct {
	mu     sync.Mutex
	files  map[string][]byte
	opened int
	closed int
	// failAt обрывает чтение ошибкой после стольких байтов диапазона; <0 не обрывает.
	failAt int
	// truncate отдаёт на столько байтов меньше, чем просили.
	truncate int
}

func newMemSource(files map[string][]byte) *memSource {
	return &memSource{files: files, failAt: -1}
}

func (s *memSource) Stat(_ context.Context, name string) (models.FileMetadata, error) {
	if name == "/srv" || name == "/srv/dir" {
		return models.FileMetadata{IsDir: true, ModTime: testModTime}, nil
	}
	data, ok := s.files[name]
	if !ok {
		return models.FileMetadata{}, fmt.Errorf("%s: %w", name, models.ErrNotFound)
	}
	return models.FileMetadata{Size: uint64(len(data)), ModTime: testModTime}, nil
}

func (s *memSource) OpenRange(_ context.Context, name string, start, end uint64) (io.ReadCloser, error) {
	data, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, models.ErrNotFound)
	}

	chunk := data[start : end+1]
	if s.truncate > 0 && s.truncate < len(chunk) {
		chunk = chunk[:len(chunk)-s.truncate]
	}

	s.mu.Lock()
	s.opened++
	s.mu.Unlock()

	var r io.Reader = bytes.NewReader(chunk)
	if s.failAt >= 0 {
		r = io.MultiReader(io.LimitReader(r, int64(s.failAt)), errReader{})
	}
	return &countingCloser{Reader: r, src: s}, nil
}

func (s *memSource) counts() (opened, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.closed
}

type countingCloser struct {
	io.Reader
	src *memSource
}

func (c *countingCloser) Close() error {
	c.src.mu.Lock()
	defer c.src.mu.Unlock()
	c.src.closed++
	return nil
}

var errBrokenDisk = errors.New("broken disk")

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errBrokenDisk }

// countingMetrics считает события потоковой отдачи.
type countingMetrics struct {
	mu       sync.Mutex
	streamed int64
	aborted  int
}

func (m *countingMetrics) ObserveResponse(string, int, time.Duration) {}

func (m *countingMetrics) AddStreamedBytes(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamed += n
}

func (m *countingMetrics) StreamAborted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborted++
}
