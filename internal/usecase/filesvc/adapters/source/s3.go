package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/yourname/devfiles/internal/models"
)

// S3API подмножество клиента S3, которое нужно источнику.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 отдаёт артефакты, выгруженные сборкой в бакет.
// Путь под Root отображается в ключ Prefix + относительный путь.
type S3 struct {
	client S3API
	bucket string
	prefix string
	root   string
}

// S3Config параметры источника.
type S3Config struct {
	Client S3API
	Bucket string
	Prefix string
	// Root корень сервиса, который срезается с пути перед построением ключа.
	Root string
}

// NewS3 проверяет конфигурацию и создаёт источник.
func NewS3(cfg S3Config) (*S3, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &S3{
		client: cfg.Client,
		bucket: cfg.Bucket,
		prefix: prefix,
		root:   path.Clean("/" + cfg.Root),
	}, nil
}

// Stat читает размер и время изменения через HeadObject.
func (s *S3) Stat(ctx context.Context, name string) (models.FileMetadata, error) {
	key, ok := s.objectKey(name)
	if !ok {
		return models.FileMetadata{}, fmt.Errorf("%s: %w", name, models.ErrNotFound)
	}
	if key == s.prefix {
		// корень бакета ведёт себя как каталог
		return models.FileMetadata{IsDir: true}, nil
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = classifyS3(key, err)
		if errors.Is(err, models.ErrNotFound) && s.isPrefix(ctx, key) {
			return models.FileMetadata{IsDir: true}, nil
		}
		return models.FileMetadata{}, err
	}

	meta := models.FileMetadata{}
	if out.ContentLength != nil && *out.ContentLength > 0 {
		meta.Size = uint64(*out.ContentLength)
	}
	if out.LastModified != nil {
		meta.ModTime = *out.LastModified
	}

	return meta, nil
}

// OpenRange делает ranged GetObject; тело закрывает вызывающий.
func (s *S3) OpenRange(ctx context.Context, name string, start, end uint64) (io.ReadCloser, error) {
	key, ok := s.objectKey(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, models.ErrNotFound)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		return nil, classifyS3(key, err)
	}

	return out.Body, nil
}

// isPrefix сообщает, есть ли объекты под key/, то есть ведёт ли себя key как каталог.
func (s *S3) isPrefix(ctx context.Context, key string) bool {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(key + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false
	}
	return len(out.Contents) > 0 || len(out.CommonPrefixes) > 0
}

func (s *S3) objectKey(name string) (string, bool) {
	name = path.Clean("/" + name)
	rel := name
	if s.root != "/" {
		if name != s.root && !strings.HasPrefix(name, s.root+"/") {
			return "", false
		}
		rel = strings.TrimPrefix(name, s.root)
	}
	return s.prefix + strings.TrimPrefix(rel, "/"), true
}

func classifyS3(key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%s: %w", key, models.ErrNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return fmt.Errorf("%s: %w", key, models.ErrNotFound)
	}

	return fmt.Errorf("%s: %w: %w", key, models.ErrIO, err)
}

// S3ClientConfig параметры подключения к S3 или совместимому хранилищу.
type S3ClientConfig struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// NewS3Client собирает клиент из цепочки AWS по умолчанию и явных параметров.
func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}
