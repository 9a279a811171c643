package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicBaseURL is the externally reachable root for stored objects,
	// e.g. https://cdn.example.com. Object keys are appended to it.
	PublicBaseURL string
	// KeyPrefix namespaces uploaded attachments, e.g. "qa".
	KeyPrefix string
}

func LoadS3ConfigFromEnv() (S3Config, error) {
	cfg := S3Config{
		Endpoint:      strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		Region:        strings.TrimSpace(os.Getenv("S3_REGION")),
		Bucket:        strings.TrimSpace(os.Getenv("S3_BUCKET")),
		AccessKey:     strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		SecretKey:     strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("S3_PUBLIC_BASE_URL")), "/"),
		KeyPrefix:     strings.Trim(strings.TrimSpace(os.Getenv("S3_KEY_PREFIX")), "/"),
	}
	useSSL := strings.TrimSpace(os.Getenv("S3_USE_SSL"))
	if useSSL == "" {
		cfg.UseSSL = false
	} else {
		b, err := strconv.ParseBool(useSSL)
		if err != nil {
			return S3Config{}, fmt.Errorf("invalid S3_USE_SSL: %w", err)
		}
		cfg.UseSSL = b
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "qa"
	}

	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return S3Config{}, errors.New("missing required S3 env: S3_ENDPOINT, S3_BUCKET, S3_ACCESS_KEY, S3_SECRET_KEY")
	}
	if cfg.PublicBaseURL == "" {
		return S3Config{}, errors.New("missing required S3 env: S3_PUBLIC_BASE_URL")
	}
	// Region can be empty for MinIO.
	return cfg, nil
}

// S3Storage uploads processed attachment images and hands back stable
// public URLs. The URL, not the key, is what gets persisted on messages.
type S3Storage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	keyPrefix     string
	opts          ImageProcessOptions
}

func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &S3Storage{
		client:        cl,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		keyPrefix:     strings.Trim(cfg.KeyPrefix, "/"),
		opts:          DefaultAttachmentOptions(),
	}, nil
}

type ObjectStat struct {
	ETag         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// UploadImage processes the raw upload and stores it under a fresh key.
// Returns the public URL of the stored object.
func (s *S3Storage) UploadImage(ctx context.Context, data []byte) (string, error) {
	processed, contentType, _, err := ProcessAttachmentImage(data, s.opts)
	if err != nil {
		return "", err
	}

	key, err := SafeJoinAttachmentPath(s.keyPrefix, uuid.NewString()+".jpg")
	if err != nil {
		return "", err
	}

	if _, err := s.PutObject(ctx, key, processed, contentType); err != nil {
		return "", err
	}
	return s.publicBaseURL + "/" + key, nil
}

func (s *S3Storage) PutObject(ctx context.Context, key string, body []byte, contentType string) (ObjectStat, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return ObjectStat{}, err
	}
	// minio-go returns ETag without quotes typically.
	return ObjectStat{ETag: info.ETag, Size: info.Size, ContentType: contentType, LastModified: time.Now().UTC()}, nil
}

func (s *S3Storage) StatObject(ctx context.Context, key string) (ObjectStat, error) {
	st, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectStat{}, err
	}
	return ObjectStat{ETag: st.ETag, Size: st.Size, ContentType: st.ContentType, LastModified: st.LastModified}, nil
}

func (s *S3Storage) DeleteObject(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// SafeJoinAttachmentPath ensures we don't allow path traversal.
func SafeJoinAttachmentPath(prefix string, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("empty key")
	}
	// Disallow attempts to escape.
	if strings.Contains(key, "..") || strings.ContainsAny(key, "\\") {
		return "", errors.New("invalid key")
	}
	// Remove leading slashes.
	key = strings.TrimLeft(key, "/")
	if prefix != "" {
		prefix = strings.Trim(prefix, "/")
		key = prefix + "/" + key
	}
	if strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	// Basic url.PathEscape isn't desired for keys, but validate it's parseable.
	if _, err := url.Parse("https://example.com/" + key); err != nil {
		return "", errors.New("invalid key")
	}
	return key, nil
}
