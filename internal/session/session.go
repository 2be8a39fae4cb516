// SPDX-License-Identifier: MIT

// Package session provides the scoped working directory each pipeline
// invocation owns: every path a stage writes is issued by a Session, and
// the whole tree is removed when the Session closes, on every exit path.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/clipforge/mediastudio/internal/log"
)

// Session owns a uniquely named private directory. Never shared across
// invocations; two concurrent requests can never collide on disk.
type Session struct {
	id  string
	dir string
}

// Open creates a fresh session directory under root. An empty root falls
// back to the system temp directory.
func Open(root string) (*Session, error) {
	if root == "" {
		root = os.TempDir()
	}

	id := uuid.NewString()
	dir := filepath.Join(root, "mediastudio-"+id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	return &Session{id: id, dir: dir}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Dir returns the session's private directory.
func (s *Session) Dir() string {
	return s.dir
}

// Path returns an absolute path for name inside the session directory.
// name must be a plain relative name; traversal and absolute paths are
// rejected so stages cannot write outside the session.
func (s *Session) Path(name string) (string, error) {
	if strings.Contains(name, "\\") {
		return "", fmt.Errorf("path contains backslash: %s", name)
	}
	clean := filepath.Clean(name)
	if clean == "" || clean == "." || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid session path name: %s", name)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes session dir: %s", name)
	}
	return filepath.Join(s.dir, clean), nil
}

// Close removes the session directory tree. Best-effort: failures are
// logged, never returned, so cleanup can't shadow the primary result.
func (s *Session) Close() {
	if err := os.RemoveAll(s.dir); err != nil {
		logger := log.WithComponent("session")
		logger.Warn().
			Err(err).
			Str(log.FieldSessionID, s.id).
			Str(log.FieldPath, s.dir).
			Msg("session cleanup failed")
	}
}
