// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackupObject(t *testing.T) {
	tests := []struct {
		prefix    string
		localPath string
		want      string
	}{
		{"dictionary", "/data/word_dictionary.json.20260826T120000.bak", "dictionary/word_dictionary.json.20260826T120000.bak"},
		{"dictionary/", "backup.json", "dictionary/backup.json"},
		{"", "/data/backup.json", "backup.json"},
		{"team/dicts", "word_dictionary.json.bak", "team/dicts/word_dictionary.json.bak"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BackupObject(tt.prefix, tt.localPath))
	}
}

func TestNewUploaderMissingKey(t *testing.T) {
	_, err := NewUploader(context.Background(), "bucket", "/nonexistent/key.json")
	assert.ErrorContains(t, err, "service account key not found")
}
