// Package snapshot archives the raw rendered HTML of extracted product
// pages to a blob provider.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Provider persists one page snapshot and returns its location.
type Provider interface {
	Put(ctx context.Context, pageURL, html string) (string, error)
}

// ObjectPath derives a stable object name for a page: prefix/host/hash.html.
func ObjectPath(prefix, pageURL, html string) string {
	host := "unknown"
	if u, err := url.Parse(pageURL); err == nil && u.Hostname() != "" {
		host = strings.ToLower(u.Hostname())
	}
	sum := sha256.Sum256([]byte(html))
	name := hex.EncodeToString(sum[:]) + ".html"
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return host + "/" + name
	}
	return prefix + "/" + host + "/" + name
}

// Noop discards snapshots.
type Noop struct{}

// Put discards the snapshot.
func (Noop) Put(context.Context, string, string) (string, error) { return "", nil }

// FS writes snapshots under a local directory.
type FS struct {
	Dir    string
	Prefix string
}

var _ Provider = (*FS)(nil)

// Put writes the snapshot file and returns its path.
func (f *FS) Put(_ context.Context, pageURL, html string) (string, error) {
	rel := ObjectPath(f.Prefix, pageURL, html)
	path := filepath.Join(f.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}
