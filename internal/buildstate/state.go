// Package buildstate хранит признак актуальности выходного каталога сборки.
//
// Пока сборка идёт, состояние невалидно и запросы к файлам ждут Ready.
// Кто переключает состояние (сборщик напрямую или Watch по событиям файловой системы),
// пакету безразлично.
package buildstate

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourname/devfiles/internal/models"
)

// State признак валидности сборки с ожиданием перехода в валидное состояние.
type State struct {
	mu    sync.Mutex
	valid bool
	ready chan struct{} // закрыт, пока valid
}

// New создаёт состояние; valid задаёт начальное значение.
func New(valid bool) *State {
	s := &State{valid: valid, ready: make(chan struct{})}
	if valid {
		close(s.ready)
	}
	return s
}

// Invalidate отмечает начало пересборки.
func (s *State) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.valid {
		s.valid = false
		s.ready = make(chan struct{})
	}
}

// Done отмечает конец сборки и будит ожидающих.
func (s *State) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.valid {
		s.valid = true
		close(s.ready)
	}
}

// Valid сообщает текущее значение без ожидания.
func (s *State) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid
}

// Ready блокируется, пока сборка невалидна.
// Отмена ctx даёт ошибку, обёрнутую в models.ErrNotReady.
func (s *State) Ready(ctx context.Context) error {
	s.mu.Lock()
	ch := s.ready
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", models.ErrNotReady, ctx.Err())
	}
}
