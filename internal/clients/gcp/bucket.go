package gcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
)

// BucketService stores rendered packet artifacts. Objects are addressed by an
// opaque key; callers persist only the public URL.
type BucketService interface {
	UploadFile(ctx context.Context, key string, file io.Reader) error
	DeleteFile(ctx context.Context, key string) error
	GetPublicURL(key string) string
	// KeyFromURL reverses GetPublicURL. Returns an error for URLs that do
	// not address this bucket.
	KeyFromURL(url string) (string, error)
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
	cdnDomain     string
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	bucketName := strings.TrimSpace(os.Getenv("PACKET_GCS_BUCKET_NAME"))
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var PACKET_GCS_BUCKET_NAME")
	}
	cdnDomain := strings.TrimSpace(os.Getenv("PACKET_CDN_DOMAIN"))

	saPath := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if saPath != "" {
		opts = append(opts, option.WithCredentialsFile(saPath))
	} else {
		serviceLog.Warn("GOOGLE_APPLICATION_CREDENTIALS_JSON not set, relying on ambient credentials")
	}

	stClient, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucketName,
		cdnDomain:     cdnDomain,
	}, nil
}

func (bs *bucketService) UploadFile(ctx context.Context, key string, file io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	w := bs.storageClient.Bucket(bs.bucketName).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object %q: %w", key, err)
	}
	return nil
}

func (bs *bucketService) DeleteFile(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := bs.storageClient.Bucket(bs.bucketName).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

func (bs *bucketService) GetPublicURL(key string) string {
	if bs.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", bs.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucketName, key)
}

func (bs *bucketService) KeyFromURL(url string) (string, error) {
	prefixes := []string{
		fmt.Sprintf("https://storage.googleapis.com/%s/", bs.bucketName),
	}
	if bs.cdnDomain != "" {
		prefixes = append(prefixes, fmt.Sprintf("https://%s/", bs.cdnDomain))
	}
	for _, p := range prefixes {
		if strings.HasPrefix(url, p) {
			return strings.TrimPrefix(url, p), nil
		}
	}
	return "", fmt.Errorf("url %q does not address bucket %q", url, bs.bucketName)
}
