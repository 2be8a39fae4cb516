// SPDX-License-Identifier: MIT

// Package storage persists rendered outputs. The pipeline hands over
// bytes; the store decides where they live and returns a location the
// caller can serve.
package storage

import "context"

// ContentType values used by the pipeline outputs.
const (
	ContentTypeMP4  = "video/mp4"
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
)

// ObjectStore writes a rendered artifact under key and returns its
// location: a filesystem path for the local backend, a public URL for
// the s3 backend.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
