package infrastructure

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/yourusername/kara-dl-go/internal/domain"
	"github.com/yourusername/kara-dl-go/pkg/logger"
)

// MediaDownloader implements Downloader by fetching media files from the
// repository an item was queued from
type MediaDownloader struct {
	client      *RepositoryClient
	mediasDir   string
	tempDir     string
	multiLogger *logger.MultiLogger
}

// NewMediaDownloader creates a downloader writing finished files to mediasDir
func NewMediaDownloader(client *RepositoryClient, mediasDir, tempDir string, multiLogger *logger.MultiLogger) *MediaDownloader {
	return &MediaDownloader{
		client:      client,
		mediasDir:   mediasDir,
		tempDir:     tempDir,
		multiLogger: multiLogger,
	}
}

// Download resolves the media file of item and streams it into the medias directory
func (d *MediaDownloader) Download(ctx context.Context, item *domain.DownloadItem) error {
	if item.KID == "" || item.Repository == "" {
		return domain.NewValidationError("download %s has no kid or repository", item.UUID)
	}

	kara, err := d.client.GetKara(ctx, item.Repository, item.KID)
	if err != nil {
		d.logFailure(item, "failed to resolve kara", err)
		return fmt.Errorf("failed to resolve kara %s: %w", item.KID, err)
	}
	if kara.MediaFile == "" {
		err := domain.NewValidationError("kara %s has no media file", item.KID)
		d.logFailure(item, "kara has no media", err)
		return err
	}

	if err := os.MkdirAll(d.tempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	if err := os.MkdirAll(d.mediasDir, 0755); err != nil {
		return fmt.Errorf("failed to create medias directory: %w", err)
	}

	mediaURL := d.client.MediaURL(item.Repository, kara.MediaFile)
	tempPath := filepath.Join(d.tempDir, item.UUID+".part")
	written, err := d.fetch(ctx, mediaURL, tempPath)
	if err != nil {
		os.Remove(tempPath)
		d.logFailure(item, "transfer failed", err, zap.String("url", mediaURL))
		return err
	}

	if kara.MediaSize > 0 && written != kara.MediaSize {
		os.Remove(tempPath)
		err := fmt.Errorf("size mismatch for %s: got %d bytes, expected %d", kara.MediaFile, written, kara.MediaSize)
		d.logFailure(item, "transfer incomplete", err)
		return err
	}

	destPath := filepath.Join(d.mediasDir, filepath.Base(kara.MediaFile))
	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move media into place: %w", err)
	}

	if d.multiLogger != nil {
		d.multiLogger.LogTransfer(item.UUID, true, "media downloaded",
			zap.String("kid", item.KID),
			zap.String("file", destPath),
			zap.Int64("bytes", written))
	}
	return nil
}

func (d *MediaDownloader) fetch(ctx context.Context, mediaURL, tempPath string) (int64, error) {
	resp, err := d.client.Open(ctx, mediaURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	file, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return written, fmt.Errorf("failed to write media: %w", err)
	}
	return written, nil
}

func (d *MediaDownloader) logFailure(item *domain.DownloadItem, msg string, err error, fields ...zap.Field) {
	if d.multiLogger == nil {
		return
	}
	fields = append(fields, zap.String("kid", item.KID), zap.Error(err))
	d.multiLogger.LogTransfer(item.UUID, false, msg, fields...)
}

// LocalMediaStore implements MediaStore over the medias directory
type LocalMediaStore struct {
	mediasDir string
}

// NewLocalMediaStore creates a media store rooted at mediasDir
func NewLocalMediaStore(mediasDir string) *LocalMediaStore {
	return &LocalMediaStore{mediasDir: mediasDir}
}

// Stat returns the size of a local media file and whether it exists
func (s *LocalMediaStore) Stat(mediafile string) (int64, bool) {
	if mediafile == "" {
		return 0, false
	}
	info, err := os.Stat(filepath.Join(s.mediasDir, filepath.Base(mediafile)))
	if err != nil || info.IsDir() {
		return 0, false
	}
	return info.Size(), true
}
