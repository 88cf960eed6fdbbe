package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrNotFound = errors.New("file not found")

// Storage persists uploaded files under a category.
type Storage interface {
	Put(ctx context.Context, category, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, category, name string) (io.ReadSeekCloser, error)
	Remove(ctx context.Context, category, name string) error
}

// ValidCategory reports whether category is one of the known upload categories.
func ValidCategory(category string) bool {
	return category == CategoryProfiles || category == CategoryArticles
}

func checkKey(category, name string) error {
	if !ValidCategory(category) {
		return fmt.Errorf("%w: unknown category %q", ErrNotFound, category)
	}
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("%w: invalid name %q", ErrNotFound, name)
	}
	return nil
}

// DiskStorage keeps files at <root>/<category>/<name>.
type DiskStorage struct {
	root string
}

func NewDisk(root string) (*DiskStorage, error) {
	for _, category := range []string{CategoryProfiles, CategoryArticles} {
		if err := os.MkdirAll(filepath.Join(root, category), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &DiskStorage{root: root}, nil
}

func (d *DiskStorage) path(category, name string) (string, error) {
	if err := checkKey(category, name); err != nil {
		return "", err
	}
	return filepath.Join(d.root, category, name), nil
}

func (d *DiskStorage) Put(_ context.Context, category, name string, r io.Reader, _ int64, _ string) error {
	path, err := d.path(category, name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

func (d *DiskStorage) Open(_ context.Context, category, name string) (io.ReadSeekCloser, error) {
	path, err := d.path(category, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (d *DiskStorage) Remove(_ context.Context, category, name string) error {
	path, err := d.path(category, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStorage keeps files as objects named <category>/<name> in one bucket.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

func NewMinio(ctx context.Context, cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStorage{client: client, bucket: cfg.Bucket}, nil
}

func (m *MinioStorage) Put(ctx context.Context, category, name string, r io.Reader, size int64, contentType string) error {
	if err := checkKey(category, name); err != nil {
		return err
	}
	_, err := m.client.PutObject(ctx, m.bucket, category+"/"+name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", name, err)
	}
	return nil
}

func (m *MinioStorage) Open(ctx context.Context, category, name string) (io.ReadSeekCloser, error) {
	if err := checkKey(category, name); err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, category+"/"+name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", name, err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat object %s: %w", name, err)
	}
	return obj, nil
}

func (m *MinioStorage) Remove(ctx context.Context, category, name string) error {
	if err := checkKey(category, name); err != nil {
		return err
	}
	return m.client.RemoveObject(ctx, m.bucket, category+"/"+name, minio.RemoveObjectOptions{})
}
