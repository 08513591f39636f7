package filesvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"golang.org/x/time/rate"
)

// streamWindow размер окна чтения: медленный клиент тормозит чтение источника.
const streamWindow = 64 << 10

// StreamComposer отдаёт части по порядку, держа открытым не больше одного чтения.
type StreamComposer struct {
	Source      ByteSource
	Window      int
	BytesPerSec int
}

// Chunks возвращает тело ответа как последовательность кусков.
// Слайс куска переиспользуется: потребитель должен записать его до запроса следующего.
// Прерывание итерации закрывает текущее чтение; оставшиеся диапазоны не открываются.
func (c *StreamComposer) Chunks(ctx context.Context, name string, parts []Part) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		window := c.Window
		if window <= 0 {
			window = streamWindow
		}
		buf := make([]byte, window)

		for _, part := range parts {
			if part.Preamble != "" && !yield([]byte(part.Preamble), nil) {
				return
			}
			if !c.emitRange(ctx, name, part.ByteRange, buf, yield) {
				return
			}
			if part.Suffix != "" && !yield([]byte(part.Suffix), nil) {
				return
			}
		}
	}
}

// emitRange читает один диапазон; false значит, что итерацию нужно прекратить.
func (c *StreamComposer) emitRange(ctx context.Context, name string, r ByteRange, buf []byte, yield func([]byte, error) bool) bool {
	rc, err := c.Source.OpenRange(ctx, name, r.Start, r.End)
	if err != nil {
		yield(nil, fmt.Errorf("open %s [%d-%d]: %w", name, r.Start, r.End, err))
		return false
	}
	defer rc.Close()

	remaining := r.Length()
	for remaining > 0 {
		if err = ctx.Err(); err != nil {
			yield(nil, err)
			return false
		}

		want := uint64(len(buf))
		if remaining < want {
			want = remaining
		}

		n, readErr := rc.Read(buf[:want])
		if n > 0 {
			remaining -= uint64(n)
			if !yield(buf[:n], nil) {
				return false
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if remaining == 0 {
					break
				}
				readErr = io.ErrUnexpectedEOF
			}
			yield(nil, fmt.Errorf("read %s [%d-%d]: %w", name, r.Start, r.End, readErr))
			return false
		}
	}

	return true
}

// Copy пишет последовательность в w и возвращает число записанных байтов.
// Ограничитель скорости создаётся на каждый вызов.
func (c *StreamComposer) Copy(ctx context.Context, w io.Writer, chunks iter.Seq2[[]byte, error]) (int64, error) {
	var limiter *rate.Limiter
	if c.BytesPerSec > 0 {
		burst := max(c.BytesPerSec, c.Window, streamWindow)
		limiter = rate.NewLimiter(rate.Limit(c.BytesPerSec), burst)
	}

	var written int64
	for chunk, err := range chunks {
		if err != nil {
			return written, err
		}

		if limiter != nil {
			if err = limiter.WaitN(ctx, len(chunk)); err != nil {
				return written, err
			}
		}

		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	return written, nil
}
