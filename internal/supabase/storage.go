package supabase

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"
)

const uploadRetries = 3

var retryBackoffs = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, apiKey, bucket string) (*StorageClient, error) {
	baseURL := strings.TrimRight(supabaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("supabase url is required for storage")
	}
	client := storage.NewClient(baseURL+"/storage/v1", apiKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

// DocumentPath is users/{user}/documents/{job}/{file}. Requests without an
// authenticated user are filed under "anonymous".
func DocumentPath(userID string, jobID uuid.UUID, filename string) string {
	if userID == "" {
		userID = "anonymous"
	}
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document.pdf"
	}
	return fmt.Sprintf("users/%s/documents/%s/%s", userID, jobID.String(), name)
}

// UploadDocument stores an OP document and returns its storage path and
// public URL.
func (s *StorageClient) UploadDocument(ctx context.Context, userID string, jobID uuid.UUID, filename string, data []byte) (string, string, error) {
	storagePath := DocumentPath(userID, jobID, filename)

	contentType := "application/pdf"
	upsert := true
	err := RetryWithBackoff(ctx, func() error {
		_, err := s.client.UploadFile(s.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
			ContentType: &contentType,
			Upsert:      &upsert,
		})
		return err
	}, uploadRetries)
	if err != nil {
		return "", "", fmt.Errorf("failed to upload document: %w", err)
	}

	return storagePath, s.PublicURL(storagePath), nil
}

func (s *StorageClient) PublicURL(storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, storagePath)
}

func (s *StorageClient) DeleteDocument(ctx context.Context, storagePath string) error {
	_, err := s.client.RemoveFile(s.bucket, []string{storagePath})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// DeleteJobDocuments removes every file stored for a job.
func (s *StorageClient) DeleteJobDocuments(ctx context.Context, userID string, jobID uuid.UUID) error {
	prefix := path.Dir(DocumentPath(userID, jobID, "x"))

	files, err := s.client.ListFiles(s.bucket, prefix, storage.FileSearchOptions{
		Limit: 1000,
	})
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	if len(files) == 0 {
		return nil
	}

	paths := make([]string, len(files))
	for i, file := range files {
		paths[i] = prefix + "/" + file.Name
	}
	if _, err := s.client.RemoveFile(s.bucket, paths); err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}
	return nil
}

func (s *StorageClient) DownloadDocument(ctx context.Context, storagePath string) ([]byte, error) {
	var data []byte
	err := RetryWithBackoff(ctx, func() error {
		var err error
		data, err = s.client.DownloadFile(s.bucket, storagePath)
		return err
	}, uploadRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to download document: %w", err)
	}
	return data, nil
}

// RetryWithBackoff runs fn up to maxRetries times, sleeping 1s, 2s, 4s
// between attempts. It stops early when ctx is done.
func RetryWithBackoff(ctx context.Context, fn func() error, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if i == maxRetries-1 || i >= len(retryBackoffs) {
			continue
		}
		timer := time.NewTimer(retryBackoffs[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
