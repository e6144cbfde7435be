// Package objectstore archives finished videos to S3 so task records keep
// pointing at a durable location after the provider's link expires.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/phrazzld/vidgen-api/internal/generation"
	"golang.org/x/sync/errgroup"
)

const uploadPartSize = 5 * 1024 * 1024

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Config holds S3 archive settings.
type Config struct {
	Bucket    string
	Region    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// Fetcher streams a remote file into w.
type Fetcher interface {
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Uploader is the subset of *manager.Uploader the archiver needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver implements generation.VideoArchiver.
type S3Archiver struct {
	cfg      Config
	fetcher  Fetcher
	uploader Uploader
	logger   *slog.Logger
}

var _ generation.VideoArchiver = (*S3Archiver)(nil)

// NewS3Archiver builds an archiver from static credentials when provided,
// otherwise from the default AWS credential chain.
func NewS3Archiver(ctx context.Context, cfg Config, fetcher Fetcher, logger *slog.Logger) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", generation.ErrInvalidConfig)
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	uploader := manager.NewUploader(s3.NewFromConfig(awsCfg), func(u *manager.Uploader) {
		u.PartSize = uploadPartSize
	})
	return NewArchiver(cfg, fetcher, uploader, logger), nil
}

// NewArchiver wires an archiver around an existing uploader.
func NewArchiver(cfg Config, fetcher Fetcher, uploader Uploader, logger *slog.Logger) *S3Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Archiver{
		cfg:      cfg,
		fetcher:  fetcher,
		uploader: uploader,
		logger:   logger.With(slog.String("component", "s3_archiver")),
	}
}

// Archive streams sourceURL into the bucket under key without buffering the
// whole file in memory. A key without an extension is stored as .mp4.
func (a *S3Archiver) Archive(ctx context.Context, key, sourceURL string) (*generation.ArchivedVideo, error) {
	objectKey := path.Join(a.cfg.Prefix, key)
	if path.Ext(objectKey) == "" {
		objectKey += ".mp4"
	}

	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	var size int64
	g.Go(func() error {
		n, err := a.fetcher.Download(gctx, sourceURL, pw)
		size = n
		_ = pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		_, err := a.uploader.Upload(gctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.cfg.Bucket),
			Key:         aws.String(objectKey),
			Body:        pr,
			ContentType: aws.String(contentType(objectKey)),
		})
		if err != nil {
			_ = pr.CloseWithError(err)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("video archive failed",
			slog.String("key", objectKey),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("archive %s: %w", objectKey, err)
	}

	a.logger.Info("video archived", slog.String("key", objectKey), slog.Int64("size_bytes", size))
	return &generation.ArchivedVideo{URL: a.PublicURL(objectKey), SizeBytes: size}, nil
}

func contentType(key string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// PublicURL returns the virtual-hosted style URL of an object.
func (a *S3Archiver) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.cfg.Bucket, a.cfg.Region, strings.TrimLeft(key, "/"))
}
