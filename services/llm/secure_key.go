// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/sys/unix"
)

// minMlockLimitKB is the minimum RLIMIT_MEMLOCK needed to lock the
// key buffer. Below this, memguard falls back to unlocked pages and a
// warning is logged.
const minMlockLimitKB = 64

var memguardInitOnce sync.Once

// SecureKey holds an API key sealed in a memguard enclave. The
// plaintext exists only inside Use callbacks.
type SecureKey struct {
	enclave *memguard.Enclave
}

// LoadKey reads an API key from the environment variable envVar, with
// a /run/secrets file fallback at secretPath, and seals it. Returns
// ErrMissingKey (wrapped) when neither source has a value.
func LoadKey(envVar, secretPath string) (*SecureKey, error) {
	raw := strings.TrimSpace(os.Getenv(envVar))
	if raw == "" && secretPath != "" {
		if content, err := os.ReadFile(secretPath); err == nil {
			raw = strings.TrimSpace(string(content))
			slog.Info("read API key from secrets file", "path", secretPath)
		}
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: set %s or provide %s", ErrMissingKey, envVar, secretPath)
	}

	memguardInitOnce.Do(func() {
		memguard.CatchInterrupt()
		checkMlockLimit()
	})

	return &SecureKey{enclave: memguard.NewEnclave([]byte(raw))}, nil
}

// Use opens the enclave, invokes fn with the plaintext key, and wipes
// the decrypted buffer before returning.
func (k *SecureKey) Use(fn func(key string) error) error {
	buf, err := k.enclave.Open()
	if err != nil {
		return fmt.Errorf("open key enclave: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.String())
}

// checkMlockLimit warns when RLIMIT_MEMLOCK is too small to lock the
// key buffer in RAM.
func checkMlockLimit() {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlimit); err != nil {
		slog.Warn("could not read RLIMIT_MEMLOCK", "error", err)
		return
	}
	if rlimit.Cur == unix.RLIM_INFINITY {
		return
	}
	limitKB := int64(rlimit.Cur / 1024)
	if limitKB < minMlockLimitKB {
		slog.Warn("RLIMIT_MEMLOCK is low; API key pages may not be locked",
			"limit_kb", limitKB,
			"required_kb", minMlockLimitKB,
		)
	}
}
