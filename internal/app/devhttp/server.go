// Package devhttp HTTP-сервер, отдающий артефакты сборки.
//
// Все пути, кроме служебных /-/..., уходят в filesvc.Files.Respond.
package devhttp

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/afero"
	"github.com/yourname/devfiles/internal/buildstate"
	"github.com/yourname/devfiles/internal/config"
	"github.com/yourname/devfiles/internal/metrics"
	"github.com/yourname/devfiles/internal/usecase/filesvc"
	"github.com/yourname/devfiles/internal/usecase/filesvc/adapters/source"
)

type Server struct {
	FilesService filesvc.Service
	Cfg          *config.Config
	State        *buildstate.State

	fs      afero.Fs
	root    string
	metrics metrics.Recorder
	logger  zerolog.Logger
}

// Deps внешние зависимости сервера. Source подменяет источник из конфигурации.
type Deps struct {
	Logger  zerolog.Logger
	Metrics metrics.Recorder
	Source  filesvc.ByteSource
}

// NewServer конструктор
func NewServer(ctx context.Context, cfg *config.Config, deps Deps) (http.Handler, *Server, error) {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}

	srv := &Server{
		Cfg:     cfg,
		State:   buildstate.New(true),
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}

	files, err := srv.buildFileService(ctx, deps.Source)
	if err != nil {
		return nil, nil, err
	}
	srv.FilesService = files

	rtr := chi.NewRouter()
	rtr.Use(middleware.RequestID)
	rtr.Use(hlog.NewHandler(srv.logger))
	rtr.Use(hlog.AccessHandler(srv.logAccess))
	rtr.Use(middleware.Recoverer)

	rtr.Get("/-/health", srv.health)
	rtr.Head("/-/health", srv.health)
	rtr.Group(func(r chi.Router) {
		r.Use(srv.waitBuild)
		r.Handle("/*", http.HandlerFunc(srv.serveFile))
	})

	return rtr, srv, nil
}

func (s *Server) buildFileService(ctx context.Context, src filesvc.ByteSource) (*filesvc.Files, error) {
	cfg := s.Cfg

	root, err := serviceRoot(cfg)
	if err != nil {
		return nil, err
	}
	s.root = root

	if src == nil {
		src, err = s.buildSource(ctx, root)
		if err != nil {
			return nil, err
		}
	}

	opts := filesvc.DefaultOptions(root)
	opts.ETag = cfg.ETag
	opts.AcceptRanges = cfg.AcceptRanges
	opts.LastModified = cfg.LastModified
	opts.CacheControl = cfg.CacheControl
	opts.ThrottleBytesPerSec = cfg.ThrottleBytesPerSec
	if len(cfg.Headers) > 0 {
		opts.Headers = filesvc.StaticHeaders(cfg.Headers)
	}

	return filesvc.New(filesvc.Deps{
		Source:  src,
		Options: opts,
		Logger:  s.logger.With().Str("component", "filesvc").Logger(),
		Metrics: s.metrics,
	})
}

func (s *Server) buildSource(ctx context.Context, root string) (filesvc.ByteSource, error) {
	cfg := s.Cfg

	switch cfg.Source {
	case "disk":
		src := source.NewDisk()
		s.fs = src.FS()
		return src, nil
	case "cached":
		src := source.NewCached(cfg.CacheTTL)
		s.fs = src.FS()
		return src, nil
	case "memory":
		src := source.NewMemory()
		if err := src.FS().MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create memory root: %w", err)
		}
		s.fs = src.FS()
		return src, nil
	case "s3":
		cli, err := source.NewS3Client(ctx, source.S3ClientConfig{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return source.NewS3(source.S3Config{
			Client: cli,
			Bucket: cfg.S3.Bucket,
			Prefix: cfg.S3.Prefix,
			Root:   root,
		})
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// serviceRoot для диска абсолютный путь, для памяти и S3 виртуальный от "/".
func serviceRoot(cfg *config.Config) (string, error) {
	switch cfg.Source {
	case "disk", "cached":
		abs, err := filepath.Abs(cfg.Root)
		if err != nil {
			return "", fmt.Errorf("resolve root %q: %w", cfg.Root, err)
		}
		return filepath.ToSlash(abs), nil
	default:
		return path.Clean("/" + strings.ReplaceAll(cfg.Root, `\`, "/")), nil
	}
}

// FS файловая система источника, в которую может писать сборщик; nil для S3.
func (s *Server) FS() afero.Fs {
	return s.fs
}

// Root нормализованный корень, под которым лежат артефакты.
func (s *Server) Root() string {
	return s.root
}

// Watch следит за выходным каталогом, если это включено в конфигурации.
// Блокируется до отмены ctx.
func (s *Server) Watch(ctx context.Context) error {
	if !s.Cfg.Watch {
		return nil
	}
	if s.Cfg.Source != "disk" && s.Cfg.Source != "cached" {
		return fmt.Errorf("watch is not supported for source %q", s.Cfg.Source)
	}

	logger := s.logger.With().Str("component", "buildstate").Logger()
	return buildstate.Watch(ctx, s.root, s.Cfg.WatchSettle, s.State, logger)
}
