// SPDX-License-Identifier: MIT

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/clipforge/mediastudio/internal/log"
)

// Local writes artifacts under a root directory with atomic rename
// semantics, so a crash mid-write never leaves a partial file behind.
type Local struct {
	root string
}

// NewLocal creates the root directory if needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: root}, nil
}

// Put writes data to root/key. Keys may contain forward slashes for
// sub-directories but must not escape the root.
func (l *Local) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	path := filepath.Join(l.root, filepath.FromSlash(key))

	if dir := filepath.Dir(path); dir != l.root {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("create object directory: %w", err)
		}
	}

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return "", fmt.Errorf("stage object %s: %w", key, err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger := log.WithComponent("storage")
			logger.Warn().Err(err).Str("key", key).Msg("pending file cleanup failed")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("commit object %s: %w", key, err)
	}

	logger := log.WithComponent("storage")
	logger.Debug().
		Str("key", key).
		Int("bytes", len(data)).
		Msg("object stored locally")
	return path, nil
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key must not be empty")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}
