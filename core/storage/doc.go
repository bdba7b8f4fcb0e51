// Package storage wraps the MinIO client behind the Client interface used by
// the snapshot store. It works against AWS S3 and self-hosted MinIO alike.
//
// NewClient builds a client whose transport bounds dialing, TLS handshakes and
// the first response byte by Config.TimeoutSeconds; every other operation is
// bounded by its context. EnsureBucket creates the snapshot bucket on first
// use. Tests substitute core/storage/mocks.
//
//	client, err := storage.NewClient(cfg.Storage)
//	if err != nil {
//	    return err
//	}
//	err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
