// Package store keeps record snapshots in an object storage bucket.
//
// Every key maps to one object under a fixed prefix. The object body is the
// serialized snapshot; the time the record was last synced travels in the
// object's user metadata so listings can drive timestamp-based planning
// without fetching bodies.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"tag-sync/core/storage"

	"github.com/minio/minio-go/v7"
)

// ErrNotFound is returned when a key has no object.
var ErrNotFound = errors.New("key not found")

const (
	metaModified = "Last-Synced"
	extension    = ".tag"
	contentType  = "application/cbor"
)

// KeyInfo is one listed key.
type KeyInfo struct {
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a key-value store over a bucket.
type Store struct {
	client storage.Client
	bucket string
	prefix string
}

// New creates a store writing objects under prefix in bucket.
func New(client storage.Client, bucket, prefix string) *Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string { return s.bucket }

// ObjectName maps a key to its object name.
func (s *Store) ObjectName(key string) string {
	return s.prefix + url.PathEscape(key) + extension
}

// KeyOf maps an object name back to its key.
func (s *Store) KeyOf(objectName string) (string, bool) {
	if !strings.HasPrefix(objectName, s.prefix) || !strings.HasSuffix(objectName, extension) {
		return "", false
	}
	escaped := strings.TrimSuffix(strings.TrimPrefix(objectName, s.prefix), extension)
	key, err := url.PathUnescape(escaped)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

// Get returns the value stored under key and its last-modified stamp.
func (s *Store) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	name := s.ObjectName(key)
	info, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, time.Time{}, fmt.Errorf("stat %s: %w", key, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, time.Time{}, fmt.Errorf("read %s: %w", key, err)
	}
	return data, modifiedOf(info), nil
}

// Set stores data under key with the given last-modified stamp.
func (s *Store) Set(ctx context.Context, key string, data []byte, modified time.Time) error {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{metaModified: modified.UTC().Format(time.RFC3339Nano)},
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.ObjectName(key), bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// ListKeys lists every key starting with prefix.
func (s *Store) ListKeys(ctx context.Context, prefix string) ([]KeyInfo, error) {
	opts := minio.ListObjectsOptions{
		Prefix:       s.prefix + url.PathEscape(prefix),
		Recursive:    true,
		WithMetadata: true,
	}

	var out []KeyInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		key, ok := s.KeyOf(obj.Key)
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, KeyInfo{Key: key, LastModified: modifiedOf(obj)})
	}
	return out, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, s.ObjectName(key), minio.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every record key of namespace and returns how many were
// removed. Keys of other namespaces are left alone, including those sharing
// the listing prefix.
func (s *Store) Clear(ctx context.Context, namespace string) (int, error) {
	listed, err := s.ListKeys(ctx, Prefix(namespace))
	if err != nil {
		return 0, err
	}
	var keys []KeyInfo
	for _, k := range listed {
		if _, ok := RecordKey(namespace, k.Key); ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}

	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: s.ObjectName(k.Key)}
	}
	close(objects)

	var errs []error
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("remove %s: %w", rerr.ObjectName, rerr.Err))
	}
	if len(errs) > 0 {
		return len(keys) - len(errs), errors.Join(errs...)
	}
	return len(keys), nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// modifiedOf prefers the sync stamp and falls back to the object time.
func modifiedOf(info minio.ObjectInfo) time.Time {
	for k, v := range info.UserMetadata {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if k != strings.ToLower(metaModified) {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return info.LastModified
}
