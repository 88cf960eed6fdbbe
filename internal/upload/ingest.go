// Package upload validates image uploads and writes them to a Storage backend.
package upload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/instaclone/instaclone/internal/metrics"
)

const (
	CategoryProfiles = "profiles"
	CategoryArticles = "articles"

	MaxFiles      = 10
	MaxTotalBytes = 10 << 20
)

var (
	ErrType     = errors.New("this type of file is not acceptable")
	ErrTooLarge = errors.New("upload exceeds 10 MB")
	ErrTooMany  = errors.New("at most 10 files per upload")
	ErrNoFiles  = errors.New("no files uploaded")
)

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Ingest is the single entry point for user uploads.
type Ingest struct {
	storage Storage
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewIngest(storage Storage, log logrus.FieldLogger) *Ingest {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Ingest{storage: storage, log: log, now: time.Now}
}

func (i *Ingest) Storage() Storage {
	return i.storage
}

// Validate checks a batch without storing anything.
func Validate(category string, files []*multipart.FileHeader) error {
	if !ValidCategory(category) {
		return fmt.Errorf("unknown upload category %q", category)
	}
	if len(files) == 0 {
		return ErrNoFiles
	}
	if len(files) > MaxFiles {
		return ErrTooMany
	}
	var total int64
	for _, fh := range files {
		if !allowedExt[strings.ToLower(filepath.Ext(fh.Filename))] {
			return fmt.Errorf("%w: %s", ErrType, fh.Filename)
		}
		total += fh.Size
	}
	if total > MaxTotalBytes {
		return ErrTooLarge
	}
	return nil
}

// Store validates the batch and writes every file, returning the generated
// names in upload order. A failure part way removes what was already written.
func (i *Ingest) Store(ctx context.Context, category string, files []*multipart.FileHeader) ([]string, error) {
	if err := Validate(category, files); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for _, fh := range files {
		name := i.newName(fh.Filename)
		if err := i.put(ctx, category, name, fh); err != nil {
			i.Discard(ctx, category, names)
			return nil, err
		}
		names = append(names, name)
		metrics.FilesStored.WithLabelValues(category).Inc()
	}
	return names, nil
}

// Discard removes stored files, logging failures.
func (i *Ingest) Discard(ctx context.Context, category string, names []string) {
	for _, name := range names {
		if err := i.storage.Remove(ctx, category, name); err != nil {
			i.log.WithError(err).WithFields(logrus.Fields{"category": category, "name": name}).Warn("remove upload failed")
		}
	}
}

func (i *Ingest) put(ctx context.Context, category, name string, fh *multipart.FileHeader) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}
	return i.storage.Put(ctx, category, name, src, fh.Size, contentType)
}

// newName is <unix millis>-<uuid><lower-case ext>.
func (i *Ingest) newName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return strconv.FormatInt(i.now().UnixMilli(), 10) + "-" + uuid.NewString() + ext
}
