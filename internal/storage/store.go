package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar"

	"songplay_etl/internal/config"
)

// Object is a single entry in a store listing. Key is relative to the store root.
type Object struct {
	Key  string
	Size int64
}

// Store is a flat key space rooted at a location, either an S3 prefix or a local directory.
// Keys always use '/' as separator.
type Store interface {
	// Location returns the root the store was opened at.
	Location() string
	// List returns every object whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes body to key, replacing any existing object. meta is attached where the backend supports it.
	Put(ctx context.Context, key string, body io.ReadSeeker, meta map[string]string) error
	Delete(ctx context.Context, key string) error
	// DeleteAll removes every object under the directory prefix.
	DeleteAll(ctx context.Context, prefix string) error
}

// Open returns the store for location. s3://, s3a:// and s3n:// locations are opened on S3,
// anything else (optionally prefixed file://) is a local directory.
func Open(awsCfg config.AWSConfig, location string) (Store, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || u.Scheme == "file" {
		root := strings.TrimPrefix(location, "file://")
		return NewLocalStore(root)
	}

	switch u.Scheme {
	case "s3", "s3a", "s3n":
		if u.Host == "" {
			return nil, fmt.Errorf("missing bucket in location %q", location)
		}
		return NewS3Store(awsCfg, u.Host, u.Path)
	default:
		return nil, fmt.Errorf("unsupported location scheme %q in %q", u.Scheme, location)
	}
}

// Match lists the objects whose keys match the doublestar glob pattern, or the pattern
// with a ".gz" suffix. Only the static prefix of the pattern is listed from the store.
func Match(ctx context.Context, s Store, pattern string) ([]Object, error) {
	objects, err := s.List(ctx, staticPrefix(pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", pattern, err)
	}

	var matched []Object
	for _, obj := range objects {
		ok, err := doublestar.Match(pattern, obj.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if !ok && !strings.HasSuffix(pattern, ".gz") {
			// compressed sibling, e.g. *.json also picks up x.json.gz
			ok, _ = doublestar.Match(pattern+".gz", obj.Key)
		}
		if ok {
			matched = append(matched, obj)
		}
	}
	return matched, nil
}

// staticPrefix returns the directory part of pattern before its first meta character.
func staticPrefix(pattern string) string {
	i := strings.IndexAny(pattern, "*?[{\\")
	if i < 0 {
		return pattern
	}
	j := strings.LastIndex(pattern[:i], "/")
	if j < 0 {
		return ""
	}
	return pattern[:j+1]
}
