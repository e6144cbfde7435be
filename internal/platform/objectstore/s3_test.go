package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	body string
	err  error
}

func (f *fakeFetcher) Download(_ context.Context, _ string, w io.Writer) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := io.Copy(w, bytes.NewBufferString(f.body))
	return n, err
}

type recordingUploader struct {
	key         string
	bucket      string
	contentType string
	received []byte
	err      error
}

func (u *recordingUploader) Upload(
	_ context.Context,
	input *s3.PutObjectInput,
	_ ...func(*manager.Uploader),
) (*manager.UploadOutput, error) {
	u.key = aws.ToString(input.Key)
	u.bucket = aws.ToString(input.Bucket)
	u.contentType = aws.ToString(input.ContentType)
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	u.received = data
	if u.err != nil {
		return nil, u.err
	}
	return &manager.UploadOutput{Location: "ignored"}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiveStreamsToBucket(t *testing.T) {
	t.Parallel()

	up := &recordingUploader{}
	a := NewArchiver(Config{Bucket: "vids", Region: "eu-west-1", Prefix: "videos"},
		&fakeFetcher{body: "mp4-data"}, up, discardLogger())

	got, err := a.Archive(context.Background(), "task-1", "https://provider/x.mp4")
	require.NoError(t, err)
	assert.Equal(t, "videos/task-1.mp4", up.key)
	assert.Equal(t, "vids", up.bucket)
	assert.Equal(t, "video/mp4", up.contentType)
	assert.Equal(t, "mp4-data", string(up.received))
	assert.Equal(t, int64(8), got.SizeBytes)
	assert.Equal(t, "https://vids.s3.eu-west-1.amazonaws.com/videos/task-1.mp4", got.URL)
}

func TestArchiveThumbnailKeepsImageType(t *testing.T) {
	t.Parallel()

	up := &recordingUploader{}
	a := NewArchiver(Config{Bucket: "vids", Region: "eu-west-1", Prefix: "videos"},
		&fakeFetcher{body: "jpg"}, up, discardLogger())

	got, err := a.Archive(context.Background(), "u1/task-1.jpg", "https://provider/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "videos/u1/task-1.jpg", up.key)
	assert.Equal(t, "image/jpeg", up.contentType)
	assert.Equal(t, "https://vids.s3.eu-west-1.amazonaws.com/videos/u1/task-1.jpg", got.URL)
}

func TestArchiveDownloadFailure(t *testing.T) {
	t.Parallel()

	a := NewArchiver(Config{Bucket: "vids", Region: "us-east-1"},
		&fakeFetcher{err: errors.New("link expired")}, &recordingUploader{}, discardLogger())

	_, err := a.Archive(context.Background(), "task-1", "https://provider/x.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link expired")
}

func TestArchiveUploadFailure(t *testing.T) {
	t.Parallel()

	a := NewArchiver(Config{Bucket: "vids", Region: "us-east-1"},
		&fakeFetcher{body: "data"}, &recordingUploader{err: errors.New("access denied")}, discardLogger())

	_, err := a.Archive(context.Background(), "task-1", "https://provider/x.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
