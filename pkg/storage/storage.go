// Package storage defines the object store port used by the upload relay and
// the admin tooling. Providers live in the s3 and gcs subpackages.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrObjectNotFound is returned by providers when a key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object is a single upload handed to a provider.
type Object struct {
	Key          string
	ContentType  string
	Size         int64
	CacheControl string
	Body         io.Reader
}

// ObjectStore is the minimal surface the shop needs from a bucket.
type ObjectStore interface {
	Put(ctx context.Context, obj Object) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Provider() string
}

// PublicURL joins a public base (e.g. https://bucket.s3.region.amazonaws.com) and an object key.
func PublicURL(base, key string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if base == "" {
		return key
	}
	return base + "/" + key
}
