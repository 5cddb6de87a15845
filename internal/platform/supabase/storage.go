package supabase

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"

	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

type StorageOptions struct {
	URL    string
	Key    string
	Bucket string
}

// Storage stores uploaded note files in a Supabase Storage bucket.
type Storage struct {
	client *storage.Client
	url    string
	bucket string
	log    *logger.Logger
}

func NewStorage(opts StorageOptions, log *logger.Logger) (*Storage, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.URL), "/")
	if base == "" || strings.TrimSpace(opts.Key) == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for storage")
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		bucket = "uploads"
	}
	return &Storage{
		client: storage.NewClient(base+"/storage/v1", opts.Key, nil),
		url:    base,
		bucket: bucket,
		log:    log.With("service", "SupabaseStorage"),
	}, nil
}

// Put uploads data under key. The storage client has no context support;
// ctx is only checked before the call.
func (s *Storage) Put(ctx context.Context, key, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	upsert := true
	opts := storage.FileOptions{ContentType: &contentType, Upsert: &upsert}
	if _, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), opts); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	s.log.Debug("object stored", "bucket", s.bucket, "key", key, "bytes", len(data))
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// PublicURL is the object URL for public buckets.
func (s *Storage) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.url, s.bucket, key)
}
