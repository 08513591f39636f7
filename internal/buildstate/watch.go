package buildstate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultSettle пауза без событий, после которой сборка считается завершённой.
const DefaultSettle = 200 * time.Millisecond

// Watch следит за root и его подкаталогами: любое изменение делает state невалидным,
// тишина дольше settle возвращает его в валидное. Блокируется до отмены ctx.
func Watch(ctx context.Context, root string, settle time.Duration, state *State, logger zerolog.Logger) error {
	if settle <= 0 {
		settle = DefaultSettle
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err = addTree(w, root); err != nil {
		return err
	}
	logger.Info().Str("root", root).Dur("settle", settle).Msg("Watching build output")

	// невалидное состояние на старте тоже снимается тишиной:
	// сборка могла закончиться до запуска наблюдателя
	timer := time.NewTimer(settle)
	if state.Valid() {
		timer.Stop()
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addTree(w, ev.Name); addErr != nil {
						logger.Warn().Err(addErr).Str("dir", ev.Name).Msg("Failed to watch new directory")
					}
				}
			}
			if state.Valid() {
				logger.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("Build output changed")
			}
			state.Invalidate()
			timer.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("Watcher error")
		case <-timer.C:
			state.Done()
			logger.Debug().Msg("Build output settled")
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// каталог мог исчезнуть между событием и обходом
			if errors.Is(err, fs.ErrNotExist) && p != root {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}
