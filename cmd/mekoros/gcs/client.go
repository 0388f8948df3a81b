// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gcs ships dictionary snapshots to a Google Cloud Storage
// bucket so a wiped local install can restore its learned words.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Uploader pushes dictionary backups into one bucket.
type Uploader struct {
	client *storage.Client
	bucket string
}

func NewUploader(ctx context.Context, bucket, saKeyPath string) (*Uploader, error) {
	if _, err := os.Stat(saKeyPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("service account key not found at path: %s", saKeyPath)
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsFile(saKeyPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// BackupObject names a snapshot inside the bucket: the prefix plus
// the snapshot's own timestamped filename, joined with forward
// slashes regardless of the local OS.
func BackupObject(prefix, localPath string) string {
	return path.Join(prefix, filepath.Base(localPath))
}

// PutBackup uploads one snapshot and returns its object name. The
// object carries the entry count and upload time as metadata so a
// restore can pick the richest snapshot without downloading any,
// and stays uncached so a restore always sees the latest bytes.
func (u *Uploader) PutBackup(ctx context.Context, localPath, prefix string, entries int) (string, error) {
	snapshot, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open the backup snapshot %s: %w", localPath, err)
	}
	defer snapshot.Close()

	object := BackupObject(prefix, localPath)
	writer := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = "application/json"
	writer.CacheControl = "no-cache, no-store, must-revalidate"
	writer.Metadata = map[string]string{
		"dictionary-entries": strconv.Itoa(entries),
		"uploaded-at":        time.Now().UTC().Format(time.RFC3339),
	}

	if _, err := io.Copy(writer, snapshot); err != nil {
		return "", fmt.Errorf("failed to copy snapshot %s to GCS object %s: %w", localPath, object, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for %s: %w", object, err)
	}
	return object, nil
}

func (u *Uploader) Close() error {
	return u.client.Close()
}
